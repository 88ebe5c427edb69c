package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/realtime"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/google/uuid"
)

// Changes are published while s.mu is held so subscribers see them in
// commit order; Hub.Publish never blocks.

// Insert stores a copy of fields. The id is generated unless fields carries
// a non-empty string id; reusing an existing id fails with ErrAlreadyExists.
func (s *Store) Insert(ctx context.Context, name string, fields models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpInsert); err != nil {
		return nil, err
	}

	c := s.collection(name)
	row := fields.Clone()
	if row == nil {
		row = models.Record{}
	}
	id := row.ID()
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := c.rows[id]; exists {
		return nil, fmt.Errorf("%s/%s: %w", name, id, common.ErrAlreadyExists)
	}
	row[common.FieldID] = id
	row[common.FieldCreatedAt] = s.timestamp()

	c.rows[id] = row
	c.order = append(c.order, id)

	s.hub.Publish(models.ChangeEvent{Collection: name, Type: models.EventInsert, New: row.Clone(), CommitTimestamp: s.now()})
	return row.Clone(), nil
}

// Select returns matching rows in insertion order unless q orders them.
func (s *Store) Select(ctx context.Context, name string, q models.Query) ([]models.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpSelect); err != nil {
		return nil, err
	}

	out := make([]models.Record, 0)
	c, ok := s.collections[name]
	if !ok {
		return out, nil
	}
	for _, id := range c.order {
		if row := c.rows[id]; q.Match(row) {
			out = append(out, row.Clone())
		}
	}
	if q.OrderBy != nil {
		models.SortRecords(out, *q.OrderBy)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, name, id string, fields models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpUpdate); err != nil {
		return nil, err
	}

	c, ok := s.collections[name]
	if !ok || c.rows[id] == nil {
		return nil, notFound(name, id)
	}
	// id and created_at are owned by the store
	patch := fields.Clone()
	delete(patch, common.FieldID)
	delete(patch, common.FieldCreatedAt)
	row := c.rows[id].Merge(patch)
	row[common.FieldUpdatedAt] = s.timestamp()
	c.rows[id] = row

	s.hub.Publish(models.ChangeEvent{
		Collection:      name,
		Type:            models.EventUpdate,
		New:             row.Clone(),
		Old:             models.Record{common.FieldID: id},
		CommitTimestamp: s.now(),
	})
	return row.Clone(), nil
}

// Delete removes the row; unknown ids succeed without an event.
func (s *Store) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpDelete); err != nil {
		return err
	}

	c, ok := s.collections[name]
	if !ok || c.rows[id] == nil {
		return nil
	}
	delete(c.rows, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })

	s.hub.Publish(models.ChangeEvent{
		Collection:      name,
		Type:            models.EventDelete,
		Old:             models.Record{common.FieldID: id},
		CommitTimestamp: s.now(),
	})
	return nil
}

func (s *Store) Single(ctx context.Context, name, id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpSingle); err != nil {
		return nil, err
	}

	c, ok := s.collections[name]
	if !ok || c.rows[id] == nil {
		return nil, notFound(name, id)
	}
	return c.rows[id].Clone(), nil
}

// Subscribe registers handler on the store's hub. The channel name is only
// informational here.
func (s *Store) Subscribe(ctx context.Context, name, collection string, event models.EventType, handler func(models.ChangeEvent)) (remote.Subscription, error) {
	s.mu.Lock()
	err := s.injected(OpSubscribe)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return realtime.Forward(s.hub.Subscribe(collection, event, 0), handler), nil
}
