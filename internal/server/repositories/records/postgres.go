package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/dbx"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, collection, id string, data models.Record) (models.Record, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	query :=
		`INSERT INTO records (collection, id, data)
		 VALUES ($1, $2, $3::jsonb)
		 RETURNING data`

	var out []byte
	if err := r.db.QueryRowContext(ctx, query, collection, id, string(body)).Scan(&out); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeRecord(out)
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (models.Record, error) {
	query := `SELECT data FROM records WHERE collection = $1 AND id = $2`

	var out []byte
	if err := r.db.QueryRowContext(ctx, query, collection, id).Scan(&out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeRecord(out)
}

func (r *PostgresRepository) Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error) {
	query, args, err := buildSelect(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, collection, id string, patch models.Record) (models.Record, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	query :=
		`UPDATE records SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING data`

	var out []byte
	if err := r.db.QueryRowContext(ctx, query, collection, id, string(body)).Scan(&out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeRecord(out)
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) (bool, error) {
	query := `DELETE FROM records WHERE collection = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Notify(ctx context.Context, notice smodels.ChangeNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, string(body)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func decodeRecord(body []byte) (models.Record, error) {
	rec := models.Record{}
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
