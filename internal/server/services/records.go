package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/dbx"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateCollection accepts lower-case identifiers such as "social_posts".
func ValidateCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: %q", common.ErrInvalidCollection, name)
	}
	return nil
}

// RecordService stores schema-less records. Every mutation commits
// together with its change notice, so listeners observe changes in commit
// order and never see rolled back ones.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *RecordService {
	return &RecordService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "record_service"),
		now:         time.Now,
	}
}

// Insert stores fields as a new record. The id is generated unless fields
// carries a non-empty string id; created_at is always set here.
func (s *RecordService) Insert(ctx context.Context, collection string, fields models.Record) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	row := fields.Clone()
	if row == nil {
		row = models.Record{}
	}
	id := row.ID()
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	row[common.FieldID] = id
	row[common.FieldCreatedAt] = timestamp(now)

	var out models.Record
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		var err error
		if out, err = repo.Insert(ctx, collection, id, row); err != nil {
			return err
		}
		return repo.Notify(ctx, notice(collection, id, models.EventInsert, now))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordService) Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.repomanager.Records(s.db).Select(ctx, collection, q)
}

func (s *RecordService) Single(ctx context.Context, collection, id string) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.repomanager.Records(s.db).Get(ctx, collection, id)
}

// Update merges fields into the record. The id cannot be changed and
// updated_at is set here.
func (s *RecordService) Update(ctx context.Context, collection, id string, fields models.Record) (models.Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	patch := fields.Clone()
	if patch == nil {
		patch = models.Record{}
	}
	delete(patch, common.FieldID)
	delete(patch, common.FieldCreatedAt)
	now := s.now()
	patch[common.FieldUpdatedAt] = timestamp(now)

	var out models.Record
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		var err error
		if out, err = repo.Update(ctx, collection, id, patch); err != nil {
			return err
		}
		return repo.Notify(ctx, notice(collection, id, models.EventUpdate, now))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record. Unknown ids succeed without a change notice.
func (s *RecordService) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		deleted, err := repo.Delete(ctx, collection, id)
		if err != nil || !deleted {
			return err
		}
		return repo.Notify(ctx, notice(collection, id, models.EventDelete, s.now()))
	})
}

func notice(collection, id string, t models.EventType, at time.Time) smodels.ChangeNotice {
	return smodels.ChangeNotice{Collection: collection, ID: id, Type: string(t), CommitTimestamp: at.UTC()}
}

// timestamp is the stored form of created_at and updated_at.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
