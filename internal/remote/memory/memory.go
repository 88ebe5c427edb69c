// Package memory is an in-process implementation of remote.Client. It keeps
// users, collections and buckets in maps guarded by one mutex, and publishes
// committed changes through a realtime.Hub. Tests use it as the remote store;
// the CLI uses it for its offline demo mode.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/realtime"
	"github.com/dmitrijs2005/socialhub/internal/remote"
)

// Operation names accepted by FailNext.
const (
	OpGetSession = "get_session"
	OpSignUp     = "sign_up"
	OpSignIn     = "sign_in"
	OpSignOut    = "sign_out"
	OpReset      = "reset_password"
	OpInsert     = "insert"
	OpSelect     = "select"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpSingle     = "single"
	OpSubscribe  = "subscribe"
	OpUpload     = "upload"
	OpRemove     = "remove"
	OpList       = "list"
)

type collection struct {
	order []string
	rows  map[string]models.Record
}

// Store is the in-memory remote store.
type Store struct {
	mu sync.Mutex

	collections map[string]*collection
	buckets     map[string]map[string]*object

	users         map[string]*account
	session       *models.Session
	listeners     map[int]remote.AuthListener
	nextListener  int
	recoveryCount int

	failures map[string][]error

	hub       *realtime.Hub
	publicURL string
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPublicURL sets the base of URLs returned by PublicURL.
func WithPublicURL(base string) Option {
	return func(s *Store) { s.publicURL = base }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collection),
		buckets:     make(map[string]map[string]*object),
		users:       make(map[string]*account),
		listeners:   make(map[int]remote.AuthListener),
		failures:    make(map[string][]error),
		hub:         realtime.NewHub(),
		publicURL:   "http://localhost/storage/v1",
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ remote.Client = (*Store)(nil)

func (s *Store) Auth() remote.Auth         { return s }
func (s *Store) Tables() remote.Tables     { return s }
func (s *Store) Realtime() remote.Realtime { return s }
func (s *Store) Storage() remote.Storage   { return s }

// Close drops nothing: the store lives as long as its owner keeps it.
func (s *Store) Close() error { return nil }

// FailNext makes the next call of op return err. Calls queue up.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Hub exposes the change feed, e.g. to count live channels.
func (s *Store) Hub() *realtime.Hub {
	return s.hub
}

// injected pops a queued failure for op. Callers hold s.mu.
func (s *Store) injected(op string) error {
	q := s.failures[op]
	if len(q) == 0 {
		return nil
	}
	s.failures[op] = q[1:]
	return q[0]
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{rows: make(map[string]models.Record)}
		s.collections[name] = c
	}
	return c
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
}
