package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestInsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+records\b.*RETURNING data$`).
		WithArgs("social_posts", "p1", `{"id":"p1","title":"hi"}`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"p1","title":"hi"}`)))
	mock.ExpectQuery(`INSERT\s+INTO\s+records`).
		WithArgs("social_posts", "p1", `{"id":"p1"}`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	rec, err := repo.Insert(context.Background(), "social_posts", "p1", models.Record{"id": "p1", "title": "hi"})
	require.NoError(t, err)
	require.Equal(t, models.Record{"id": "p1", "title": "hi"}, rec)

	_, err = repo.Insert(context.Background(), "social_posts", "p1", models.Record{"id": "p1"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `^SELECT data FROM records WHERE collection = \$1 AND id = \$2$`

	mock.ExpectQuery(q).
		WithArgs("social_posts", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"p1","likes":3}`)))
	mock.ExpectQuery(q).
		WithArgs("social_posts", "nope").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.Get(context.Background(), "social_posts", "p1")
	require.NoError(t, err)
	require.Equal(t, float64(3), rec["likes"])

	_, err = repo.Get(context.Background(), "social_posts", "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSelect(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT data FROM records WHERE collection = \$1 AND data -> \$2::text = \$3::jsonb ORDER BY seq LIMIT \$4`).
		WithArgs("social_accounts", "user_id", `"u1"`, 2).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"a1"}`)).
			AddRow([]byte(`{"id":"a2"}`)))

	rows, err := repo.Select(context.Background(), "social_accounts", models.Query{
		Filters: []models.Filter{models.Eq("user_id", "u1")},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a2", rows[1].ID())
}

func TestSelect_EmptyIsNotNil(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT data FROM records`).
		WithArgs("social_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	rows, err := repo.Select(context.Background(), "social_accounts", models.Query{})
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestSelect_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT data FROM records`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Select(context.Background(), "social_accounts", models.Query{})
	require.ErrorContains(t, err, "db down")
}

func TestUpdate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^UPDATE records SET data = data \|\| \$3::jsonb.*RETURNING data$`

	mock.ExpectQuery(q).
		WithArgs("social_posts", "p1", `{"title":"new"}`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"p1","title":"new","likes":1}`)))
	mock.ExpectQuery(q).
		WithArgs("social_posts", "nope", `{"title":"new"}`).
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.Update(context.Background(), "social_posts", "p1", models.Record{"title": "new"})
	require.NoError(t, err)
	require.Equal(t, "new", rec["title"])
	require.Equal(t, float64(1), rec["likes"])

	_, err = repo.Update(context.Background(), "social_posts", "nope", models.Record{"title": "new"})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `^DELETE FROM records WHERE collection = \$1 AND id = \$2$`

	mock.ExpectExec(q).WithArgs("social_posts", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("social_posts", "p1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), "social_posts", "p1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Delete(context.Background(), "social_posts", "p1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNotify(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`^SELECT pg_notify\(\$1, \$2\)$`).
		WithArgs(NotifyChannel, `{"collection":"social_posts","id":"p1","type":"INSERT","commit_timestamp":"2024-05-01T12:00:00Z"}`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Notify(context.Background(), smodels.ChangeNotice{
		Collection:      "social_posts",
		ID:              "p1",
		Type:            "INSERT",
		CommitTimestamp: ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
