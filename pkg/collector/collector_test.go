package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	value   string
	found   bool
	getErr  error
	saved   []string
	saveErr error
}

func (s *fakeStore) GetPointer(ctx context.Context) (string, bool, error) {
	return s.value, s.found, s.getErr
}

func (s *fakeStore) SetPointer(ctx context.Context, value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, value)
	return nil
}

type fakeSink struct {
	saves [][]Record
	err   error
}

func (s *fakeSink) Save(ctx context.Context, records []Record) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, records)
	return nil
}

type fakeExecutor struct {
	pages   [][]Record
	errAt   int // 1-based page index that fails, 0 for never
	queries []string
}

func (e *fakeExecutor) Execute(ctx context.Context, query string) ([]Record, error) {
	e.queries = append(e.queries, query)
	call := len(e.queries)
	if e.errAt != 0 && call == e.errAt {
		return nil, errors.New("backend unavailable")
	}
	if call > len(e.pages) {
		return nil, nil
	}
	return e.pages[call-1], nil
}

func makeRows(n int, start int64) []Record {
	rows := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Record{
			"timestamp": start + int64(i),
			"actor":     fmt.Sprintf("user-%d", i),
			"action":    "login",
		})
	}
	return rows
}

func newTestCollector(t *testing.T, store *fakeStore, sink *fakeSink, exec *fakeExecutor, pageLimit int) *Collector {
	t.Helper()
	cfg := queryConfig(Microseconds)
	c := New(slog.Default(), cfg, store, sink, exec)
	c.pageLimit = pageLimit
	c.now = func() time.Time { return resolveNow }
	return c
}

func TestCollectEmptyResultIsNoOp(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	exec := &fakeExecutor{}

	c := newTestCollector(t, store, sink, exec, 1000)

	run, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.True(t, run.Cold)
	require.Zero(t, run.BatchCount)
	require.Empty(t, run.Rows)
	require.Len(t, exec.queries, 1)
	require.Empty(t, sink.saves, "no sink call on empty result")
	require.Empty(t, store.saved, "no pointer update on empty result")
}

func TestCollectPaginationTermination(t *testing.T) {
	store := &fakeStore{value: "1700000000000000", found: true}
	sink := &fakeSink{}
	exec := &fakeExecutor{pages: [][]Record{
		makeRows(2, 1700000000000001),
		makeRows(2, 1700000000000003),
		makeRows(2, 1700000000000005),
		makeRows(2, 1700000000000007), // never reached
	}}

	c := newTestCollector(t, store, sink, exec, 2)

	run, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.False(t, run.Cold)
	require.Equal(t, 3, run.BatchCount)
	require.Len(t, run.Rows, 6)

	// Exactly max_batches fetches, all with the same lower bound
	require.Len(t, exec.queries, 3)
	for _, q := range exec.queries {
		require.Contains(t, q, "timestamp > 1700000000000000")
	}

	// One save of the full accumulated set, then the pointer
	require.Len(t, sink.saves, 1)
	require.Len(t, sink.saves[0], 6)
	require.Equal(t, []string{"1700000000000000"}, store.saved)
}

func TestCollectShortPageTerminates(t *testing.T) {
	store := &fakeStore{value: "1700000000000000", found: true}
	sink := &fakeSink{}
	exec := &fakeExecutor{pages: [][]Record{makeRows(1, 1700000000000001)}}

	c := newTestCollector(t, store, sink, exec, 1000)

	run, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, run.BatchCount)
	require.Equal(t, 1, run.LastBatchSize)
	require.Len(t, exec.queries, 1, "a short page ends the run regardless of max_batches")
	require.Len(t, sink.saves, 1)
	require.Len(t, sink.saves[0], 1)
}

func TestCollectAbortDiscardsPartialRun(t *testing.T) {
	store := &fakeStore{value: "1700000000000000", found: true}
	sink := &fakeSink{}
	exec := &fakeExecutor{
		pages: [][]Record{makeRows(2, 1700000000000001)},
		errAt: 2,
	}

	c := newTestCollector(t, store, sink, exec, 2)

	_, err := c.Collect(context.Background())
	require.Error(t, err)

	var reqErr *RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	require.Contains(t, reqErr.Query, "timestamp > 1700000000000000")

	require.Empty(t, sink.saves, "partial accumulation is discarded")
	require.Empty(t, store.saved, "pointer is not updated on abort")
}

func TestCollectColdStartPersistsDefaultWindow(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	exec := &fakeExecutor{pages: [][]Record{makeRows(3, 1709000000000000)}}

	c := newTestCollector(t, store, sink, exec, 1000)

	run, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.True(t, run.Cold)

	weekAgo := resolveNow.Add(-7 * 24 * time.Hour)
	require.Equal(t, weekAgo, run.Start.Time())
	require.Equal(t, []string{"1709467200000000"}, store.saved)
}

func TestCollectTracksLastRowValue(t *testing.T) {
	store := &fakeStore{value: "100", found: true}
	sink := &fakeSink{}
	exec := &fakeExecutor{pages: [][]Record{makeRows(3, 101)}}

	c := newTestCollector(t, store, sink, exec, 1000)

	run, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(103), run.LastRowValue)
}

func TestCollectStoreErrorPropagates(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db locked")}
	c := newTestCollector(t, store, &fakeSink{}, &fakeExecutor{}, 1000)

	_, err := c.Collect(context.Background())
	require.ErrorContains(t, err, "db locked")
}

func TestCollectSinkErrorAborts(t *testing.T) {
	store := &fakeStore{value: "100", found: true}
	sink := &fakeSink{err: errors.New("sink full")}
	exec := &fakeExecutor{pages: [][]Record{makeRows(1, 101)}}

	c := newTestCollector(t, store, sink, exec, 1000)

	_, err := c.Collect(context.Background())
	require.ErrorContains(t, err, "sink full")
	require.Empty(t, store.saved, "pointer is not updated when the sink fails")
}
