package hooks

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/google/go-cmp/cmp"
)

// Reader is the read operation of the record access layer.
type Reader interface {
	Read(ctx context.Context, collection string, q models.Query) ([]models.Record, error)
}

// QueryState is what a screen renders. Data is never nil. On error Data
// keeps the last successful result.
type QueryState struct {
	Data    []models.Record
	Loading bool
	Err     error
}

type QueryOption func(*Query)

// WithOnChange registers fn to receive every state change in order.
func WithOnChange(fn func(QueryState)) QueryOption {
	return func(q *Query) { q.onChange = fn }
}

func WithLogger(l logging.Logger) QueryOption {
	return func(q *Query) { q.logger = l }
}

// Query keeps the result of the latest read of one collection. Every fetch
// gets a new generation; a response whose generation is no longer current,
// or that arrives after Close, is discarded.
type Query struct {
	reader     Reader
	collection string
	logger     logging.Logger
	onChange   func(QueryState)

	mu      sync.Mutex
	state   QueryState
	query   models.Query
	deps    []any
	hasDeps bool
	gen     uint64
	version uint64
	closed  bool
	reads   sync.WaitGroup

	notifyMu  sync.Mutex
	delivered uint64
}

func NewQuery(reader Reader, collection string, opts ...QueryOption) *Query {
	q := &Query{
		reader:     reader,
		collection: collection,
		logger:     logging.NewNop(),
		state:      QueryState{Data: []models.Record{}, Loading: true},
	}
	for _, o := range opts {
		o(q)
	}
	q.logger = q.logger.With("module", "query", "collection", collection)
	return q
}

// compareUnexported lets dependency structs with unexported fields compare
// by value instead of panicking.
var compareUnexported = cmp.Exporter(func(reflect.Type) bool { return true })

// SetDeps records query and issues a read when deps differ from the
// previous call, or on the first call. It reports whether a read started.
func (q *Query) SetDeps(ctx context.Context, query models.Query, deps ...any) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.query = query
	if q.hasDeps && cmp.Equal(q.deps, deps, compareUnexported) {
		q.mu.Unlock()
		return false
	}
	q.hasDeps = true
	q.deps = slices.Clone(deps)
	v, snap := q.startLocked(ctx)
	q.mu.Unlock()

	q.notify(v, snap)
	return true
}

// Refetch reads again with the current query, superseding any read in
// flight.
func (q *Query) Refetch(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	v, snap := q.startLocked(ctx)
	q.mu.Unlock()

	q.notify(v, snap)
}

func (q *Query) startLocked(ctx context.Context) (uint64, QueryState) {
	q.gen++
	gen := q.gen
	query := q.query

	q.state.Loading = true
	q.state.Err = nil

	q.reads.Add(1)
	go q.run(ctx, gen, query)

	return q.commitLocked()
}

func (q *Query) run(ctx context.Context, gen uint64, query models.Query) {
	defer q.reads.Done()

	data, err := q.reader.Read(ctx, q.collection, query)

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		q.logger.Debug(ctx, "discarding superseded read", "generation", gen)
		return
	}
	if err != nil {
		q.state.Err = err
	} else {
		if data == nil {
			data = []models.Record{}
		}
		q.state.Data = data
	}
	q.state.Loading = false
	v, snap := q.commitLocked()
	q.mu.Unlock()

	q.notify(v, snap)
}

// State returns the current state.
func (q *Query) State() QueryState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Close marks the query unmounted. Reads still in flight are discarded.
func (q *Query) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Wait blocks until all started reads have returned.
func (q *Query) Wait() {
	q.reads.Wait()
}

func (q *Query) commitLocked() (uint64, QueryState) {
	q.version++
	return q.version, q.snapshotLocked()
}

func (q *Query) snapshotLocked() QueryState {
	s := q.state
	s.Data = slices.Clone(q.state.Data)
	return s
}

func (q *Query) notify(version uint64, snap QueryState) {
	if q.onChange == nil {
		return
	}
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()
	if version <= q.delivered {
		return
	}
	q.delivered = version
	q.onChange(snap)
}
