// Package hooks holds the primitives screens use to stay in sync with the
// remote store: Watcher keeps one realtime channel per mount, Query keeps
// the result of the latest read for a dependency list.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/records"
	"github.com/dmitrijs2005/socialhub/internal/remote"
)

// ChannelPrefix prefixes realtime channel names.
const ChannelPrefix = "realtime-"

// Key identifies what a Watcher is mounted on.
type Key struct {
	Collection string
	Event      models.EventType
}

// Watcher forwards change events of one collection to onEvent. It owns at
// most one channel at a time.
type Watcher struct {
	rt      remote.Realtime
	onEvent func(models.ChangeEvent)
	logger  logging.Logger

	mu  sync.Mutex
	sub remote.Subscription
	key Key
}

func NewWatcher(rt remote.Realtime, onEvent func(models.ChangeEvent), logger logging.Logger) *Watcher {
	return &Watcher{rt: rt, onEvent: onEvent, logger: logger.With("module", "watcher")}
}

// Mount opens a channel for collection and event. Mounting the key that is
// already mounted does nothing; mounting another key tears the old channel
// down before the new one is opened. If opening fails no channel is left.
func (w *Watcher) Mount(ctx context.Context, collection string, event models.EventType) error {
	if err := records.ValidateCollection(collection); err != nil {
		return err
	}
	if event == "" {
		event = models.EventAll
	}
	key := Key{Collection: collection, Event: event}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub != nil && w.key == key {
		return nil
	}
	w.teardownLocked(ctx)

	sub, err := w.rt.Subscribe(ctx, ChannelPrefix+collection, collection, event, w.deliver)
	if err != nil {
		w.logger.Warn(ctx, "subscribe failed", "collection", collection, "event", string(event), "error", err)
		return fmt.Errorf("%w: subscribe %s: %w", common.ErrRemoteRead, collection, err)
	}
	w.sub = sub
	w.key = key
	w.logger.Debug(ctx, "channel opened", "collection", collection, "event", string(event))
	return nil
}

// Unmount removes the channel, if any.
func (w *Watcher) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked(context.Background())
}

// Active returns the mounted key and whether a channel is open.
func (w *Watcher) Active() (Key, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key, w.sub != nil
}

func (w *Watcher) teardownLocked(ctx context.Context) {
	if w.sub == nil {
		return
	}
	if err := w.sub.Unsubscribe(); err != nil {
		w.logger.Warn(ctx, "unsubscribe failed", "collection", w.key.Collection, "error", err)
	}
	w.sub = nil
	w.key = Key{}
}

// deliver must not take w.mu: Unsubscribe waits for in-flight deliveries.
func (w *Watcher) deliver(ev models.ChangeEvent) {
	if w.onEvent != nil {
		w.onEvent(ev)
	}
}
