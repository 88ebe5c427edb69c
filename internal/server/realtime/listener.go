// Package realtime turns the record_changes notifications of PostgreSQL
// into change events on a realtime.Hub.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/records"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the part of *pgx.Conn the listener uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// connect is a seam for tests.
var connect = func(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RowReader reads the current state of a record.
type RowReader interface {
	Single(ctx context.Context, collection, id string) (models.Record, error)
}

// Publisher receives the resulting change events.
type Publisher interface {
	Publish(ev models.ChangeEvent) int
}

type Listener struct {
	dsn        string
	rows       RowReader
	hub        Publisher
	logger     logging.Logger
	retryDelay time.Duration
}

func NewListener(dsn string, rows RowReader, hub Publisher, logger logging.Logger) *Listener {
	return &Listener{
		dsn:        dsn,
		rows:       rows,
		hub:        hub,
		logger:     logger.With("module", "change_listener"),
		retryDelay: 2 * time.Second,
	}
}

// Run listens until ctx is done. A lost connection is re-established
// after a short delay; notifications sent in between are lost.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn(ctx, "change listener disconnected", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{records.NotifyChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Info(ctx, "listening for record changes", "channel", records.NotifyChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(ctx, n.Payload)
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var notice smodels.ChangeNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		l.logger.Warn(ctx, "bad change notice", "error", err)
		return
	}

	ev := models.ChangeEvent{
		Collection:      notice.Collection,
		Type:            models.EventType(notice.Type),
		CommitTimestamp: notice.CommitTimestamp,
	}
	switch ev.Type {
	case models.EventInsert, models.EventUpdate:
		rec, err := l.rows.Single(ctx, notice.Collection, notice.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// deleted before we got to read it; its DELETE follows
				return
			}
			l.logger.Warn(ctx, "could not read changed record", "collection", notice.Collection, "id", notice.ID, "error", err)
			return
		}
		ev.New = rec
		if ev.Type == models.EventUpdate {
			ev.Old = models.Record{common.FieldID: notice.ID}
		}
	case models.EventDelete:
		ev.Old = models.Record{common.FieldID: notice.ID}
	default:
		l.logger.Warn(ctx, "unknown change type", "type", notice.Type)
		return
	}

	l.hub.Publish(ev)
}
