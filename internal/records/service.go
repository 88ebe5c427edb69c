// Package records is the record access layer of the dashboard: generic CRUD
// over named collections of the remote store, the domain reads the screens
// use, and object storage helpers.
//
// Every failure is returned, never retried. Read-family failures match
// common.ErrRemoteRead and write-family failures match common.ErrRemoteWrite;
// the store's own error stays reachable through errors.Is and errors.As.
package records

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
)

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Service wraps the tabular and storage families of a remote client.
type Service struct {
	tables  remote.Tables
	storage remote.Storage
	logger  logging.Logger
}

func NewService(client remote.Client, logger logging.Logger) *Service {
	return &Service{
		tables:  client.Tables(),
		storage: client.Storage(),
		logger:  logger.With("module", "records"),
	}
}

// ValidateCollection rejects names that cannot be a collection.
func ValidateCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: %q", common.ErrInvalidCollection, name)
	}
	return nil
}

// Create inserts fields and returns the stored record with its id.
func (s *Service) Create(ctx context.Context, collection string, fields models.Record) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	rec, err := s.tables.Insert(ctx, collection, fields)
	if err != nil {
		return nil, s.writeError(ctx, "create", collection, err)
	}
	return rec, nil
}

// Read returns the records matching q. No match is an empty, non-nil slice.
func (s *Service) Read(ctx context.Context, collection string, q models.Query) ([]models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	recs, err := s.tables.Select(ctx, collection, q)
	if err != nil {
		return nil, s.readError(ctx, "read", collection, err)
	}
	if recs == nil {
		recs = []models.Record{}
	}
	return recs, nil
}

// Update patches the record with id. An unknown id fails with an error
// matching both common.ErrRemoteWrite and common.ErrNotFound.
func (s *Service) Update(ctx context.Context, collection, id string, fields models.Record) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	rec, err := s.tables.Update(ctx, collection, id, fields)
	if err != nil {
		return nil, s.writeError(ctx, "update", collection, err, "id", id)
	}
	return rec, nil
}

// Delete removes the record with id. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if err := s.tables.Delete(ctx, collection, id); err != nil {
		return s.writeError(ctx, "delete", collection, err, "id", id)
	}
	return nil
}

// GetByID returns exactly one record. A missing record fails with an error
// matching common.ErrRemoteRead, like any other read failure, and also
// common.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, collection, id string) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	rec, err := s.tables.Single(ctx, collection, id)
	if err != nil {
		return nil, s.readError(ctx, "get_by_id", collection, err, "id", id)
	}
	return rec, nil
}

func (s *Service) readError(ctx context.Context, op, target string, err error, kv ...any) error {
	s.logger.Warn(ctx, "remote read failed", append([]any{"op", op, "target", target, "error", err}, kv...)...)
	return fmt.Errorf("%w: %s %s: %w", common.ErrRemoteRead, op, target, err)
}

func (s *Service) writeError(ctx context.Context, op, target string, err error, kv ...any) error {
	s.logger.Warn(ctx, "remote write failed", append([]any{"op", op, "target", target, "error", err}, kv...)...)
	return fmt.Errorf("%w: %s %s: %w", common.ErrRemoteWrite, op, target, err)
}
