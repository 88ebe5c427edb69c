// Package records persists schema-less records as JSONB rows keyed by
// (collection, id) and announces committed changes with pg_notify.
package records

import (
	"context"

	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying ChangeNotice payloads.
const NotifyChannel = "record_changes"

type Repository interface {
	// Insert fails with common.ErrAlreadyExists when the id is taken.
	Insert(ctx context.Context, collection, id string, data models.Record) (models.Record, error)
	// Get returns common.ErrNotFound for unknown ids.
	Get(ctx context.Context, collection, id string) (models.Record, error)
	Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error)
	// Update merges patch into the stored record.
	Update(ctx context.Context, collection, id string, patch models.Record) (models.Record, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, collection, id string) (bool, error)
	// Notify queues notice on NotifyChannel; it is delivered on commit.
	Notify(ctx context.Context, notice smodels.ChangeNotice) error
}
