// Package remote defines the contract of the hosted backend-as-a-service the
// dashboard core talks to. It is split into the four call families the store
// offers (auth, tabular data, realtime, object storage); Client bundles them.
//
// Implementations live in sub-packages: memory (in-process, used by tests and
// the offline demo mode) and grpcclient (the self-hosted backend).
//
// Errors returned by implementations should wrap the sentinels from package
// common (ErrNotFound, ErrAlreadyExists, ErrUnauthorized, ErrUnavailable, ...)
// so that callers can inspect them with errors.Is.
package remote

import (
	"context"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// AuthListener receives auth state changes. It is called synchronously by
// the store and must not block.
type AuthListener func(event models.AuthEvent, session *models.Session)

// Auth is the authentication family.
type Auth interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, opts models.SignUpOptions) (*models.AuthResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.AuthResponse, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	// OnAuthStateChange registers l and returns the function removing it.
	OnAuthStateChange(l AuthListener) (unsubscribe func())
}

// Tables is the tabular data family. Collections are addressed by name and
// records are schema-less.
type Tables interface {
	Insert(ctx context.Context, collection string, fields models.Record) (models.Record, error)
	Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error)
	// Update patches the record with the given id. It fails with
	// common.ErrNotFound unless exactly one record matched.
	Update(ctx context.Context, collection, id string, fields models.Record) (models.Record, error)
	// Delete removes the record. Deleting an unknown id succeeds.
	Delete(ctx context.Context, collection, id string) error
	// Single returns the record with the given id or common.ErrNotFound.
	Single(ctx context.Context, collection, id string) (models.Record, error)
}

// Subscription is a live realtime channel.
type Subscription interface {
	// Unsubscribe removes the channel. It is safe to call more than once.
	Unsubscribe() error
}

// Realtime is the change-feed family.
type Realtime interface {
	// Subscribe opens channel name bound to collection and event. handler is
	// called for every matching committed change until Unsubscribe.
	Subscribe(ctx context.Context, name, collection string, event models.EventType, handler func(models.ChangeEvent)) (Subscription, error)
}

// Storage is the object storage family.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error)
	// PublicURL derives the public URL of an object without any network call
	// and without checking that the object exists.
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths []string) error
	List(ctx context.Context, bucket, folder string) ([]models.FileObject, error)
}

// Client is a configured handle to the whole remote store.
type Client interface {
	Auth() Auth
	Tables() Tables
	Realtime() Realtime
	Storage() Storage
	Close() error
}
