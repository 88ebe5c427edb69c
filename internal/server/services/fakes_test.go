package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/dbx"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/records"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[string]*smodels.User
	createErr error
	getErr    error
	recovery  map[string]string
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*smodels.User{}, recovery: map[string]string{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *smodels.User) (*smodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	u.ID = fmt.Sprintf("u%d", len(f.byID)+1)
	u.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*smodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*smodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) SetRecoveryToken(_ context.Context, id, token string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recovery[id] = token
	return nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*smodels.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*smodels.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &smodels.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*smodels.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	delete(f.tokens, token)
	return ok, nil
}

type fakeRecordsRepo struct {
	mu        sync.Mutex
	rows      map[string]models.Record
	notices   []smodels.ChangeNotice
	insertErr error
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{rows: map[string]models.Record{}}
}

func key(collection, id string) string { return collection + "/" + id }

func (f *fakeRecordsRepo) Insert(_ context.Context, collection, id string, data models.Record) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, ok := f.rows[key(collection, id)]; ok {
		return nil, common.ErrAlreadyExists
	}
	f.rows[key(collection, id)] = data.Clone()
	return data.Clone(), nil
}

func (f *fakeRecordsRepo) Get(_ context.Context, collection, id string) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[key(collection, id)]; ok {
		return r.Clone(), nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeRecordsRepo) Select(_ context.Context, collection string, q models.Query) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Record, 0)
	for k, r := range f.rows {
		if len(k) > len(collection) && k[:len(collection)+1] == collection+"/" && q.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRecordsRepo) Update(_ context.Context, collection, id string, patch models.Record) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[key(collection, id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	r = r.Merge(patch)
	f.rows[key(collection, id)] = r
	return r.Clone(), nil
}

func (f *fakeRecordsRepo) Delete(_ context.Context, collection, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[key(collection, id)]
	delete(f.rows, key(collection, id))
	return ok, nil
}

func (f *fakeRecordsRepo) Notify(_ context.Context, n smodels.ChangeNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return nil
}

func (f *fakeRecordsRepo) getNotices() []smodels.ChangeNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]smodels.ChangeNotice(nil), f.notices...)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	c *fakeRecordsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo(), c: newFakeRecordsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository             { return m.c }

// sqlmockDB exposes the transaction expectations the services need.
type sqlmockDB struct {
	sqlmock.Sqlmock
}
