package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newRecordService(t *testing.T) (*RecordService, *fakeRepoManager, sqlmockDB) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := NewRecordService(db, rm, logging.NewNop())
	s.now = func() time.Time { return testNow }
	return s, rm, sqlmockDB{mock}
}

func TestValidateCollection(t *testing.T) {
	require.NoError(t, ValidateCollection("social_posts"))
	require.NoError(t, ValidateCollection("a1"))

	for _, bad := range []string{"", "Posts", "1posts", "posts;drop", "with space"} {
		require.ErrorIs(t, ValidateCollection(bad), common.ErrInvalidCollection, bad)
	}
}

func TestRecordInsert_GeneratesIDAndNotifies(t *testing.T) {
	s, rm, db := newRecordService(t)
	db.ExpectBegin()
	db.ExpectCommit()

	rec, err := s.Insert(context.Background(), common.CollectionSocialPosts, models.Record{"title": "hi", "created_at": "spoofed"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID())
	require.Equal(t, "2024-05-01T12:00:00Z", rec[common.FieldCreatedAt])

	require.Equal(t, []smodels.ChangeNotice{{
		Collection:      common.CollectionSocialPosts,
		ID:              rec.ID(),
		Type:            "INSERT",
		CommitTimestamp: testNow,
	}}, rm.c.getNotices())
	require.NoError(t, db.ExpectationsWereMet())
}

func TestRecordInsert_KeepsGivenIDAndRollsBackOnError(t *testing.T) {
	s, rm, db := newRecordService(t)
	db.ExpectBegin()
	db.ExpectCommit()
	db.ExpectBegin()
	db.ExpectRollback()

	rec, err := s.Insert(context.Background(), "posts", models.Record{"id": "p1"})
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ID())

	_, err = s.Insert(context.Background(), "posts", models.Record{"id": "p1"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	require.Len(t, rm.c.getNotices(), 1)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestRecordInsert_RepositoryFailure(t *testing.T) {
	s, rm, db := newRecordService(t)
	rm.c.insertErr = errors.New("db down")
	db.ExpectBegin()
	db.ExpectRollback()

	_, err := s.Insert(context.Background(), "posts", models.Record{"title": "x"})
	require.ErrorContains(t, err, "db down")
	require.Empty(t, rm.c.getNotices())
}

func TestRecordUpdate_ProtectsIdentity(t *testing.T) {
	s, rm, db := newRecordService(t)
	_, err := rm.c.Insert(context.Background(), "posts", "p1", models.Record{"id": "p1", "title": "a", "created_at": "t0"})
	require.NoError(t, err)
	db.ExpectBegin()
	db.ExpectCommit()

	rec, err := s.Update(context.Background(), "posts", "p1", models.Record{"id": "other", "created_at": "t9", "title": "b"})
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ID())
	require.Equal(t, "t0", rec[common.FieldCreatedAt])
	require.Equal(t, "b", rec["title"])
	require.Equal(t, "2024-05-01T12:00:00Z", rec[common.FieldUpdatedAt])

	notices := rm.c.getNotices()
	require.Len(t, notices, 1)
	require.Equal(t, "UPDATE", notices[0].Type)
}

func TestRecordUpdate_NotFound(t *testing.T) {
	s, _, db := newRecordService(t)
	db.ExpectBegin()
	db.ExpectRollback()

	_, err := s.Update(context.Background(), "posts", "nope", models.Record{"title": "b"})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordDelete(t *testing.T) {
	s, rm, db := newRecordService(t)
	_, err := rm.c.Insert(context.Background(), "posts", "p1", models.Record{"id": "p1"})
	require.NoError(t, err)
	db.ExpectBegin()
	db.ExpectCommit()
	db.ExpectBegin()
	db.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), "posts", "p1"))
	require.NoError(t, s.Delete(context.Background(), "posts", "p1"))

	notices := rm.c.getNotices()
	require.Len(t, notices, 1)
	require.Equal(t, "DELETE", notices[0].Type)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestRecordReads(t *testing.T) {
	s, rm, _ := newRecordService(t)
	_, err := rm.c.Insert(context.Background(), "posts", "p1", models.Record{"id": "p1", "user_id": "u1"})
	require.NoError(t, err)
	_, err = rm.c.Insert(context.Background(), "posts", "p2", models.Record{"id": "p2", "user_id": "u2"})
	require.NoError(t, err)

	rows, err := s.Select(context.Background(), "posts", models.Query{Filters: []models.Filter{models.Eq("user_id", "u2")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "p2", rows[0].ID())

	rec, err := s.Single(context.Background(), "posts", "p1")
	require.NoError(t, err)
	require.Equal(t, "u1", rec["user_id"])

	_, err = s.Single(context.Background(), "Bad Name", "p1")
	require.ErrorIs(t, err, common.ErrInvalidCollection)
	_, err = s.Select(context.Background(), "", models.Query{})
	require.ErrorIs(t, err, common.ErrInvalidCollection)
}
