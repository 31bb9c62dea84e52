package collector

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("collector")

// Record is one collected row: pointer column and configured columns mapped
// to their queried values.
type Record map[string]any

// QueryExecutor runs one page query against the remote store and returns the
// rows in the order the query produced them. Transport concerns (auth
// refresh, retries, timeouts) live behind this interface.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) ([]Record, error)
}

// Sink durably records a flushed batch of rows downstream.
type Sink interface {
	Save(ctx context.Context, records []Record) error
}

// CollectionRun is the state of one Collect invocation. It is created at run
// start and threaded through the paging loop; callers get the final value
// back on success.
type CollectionRun struct {
	// Start is the resolved lower bound for every page of the run, and the
	// value persisted on flush.
	Start Pointer
	// Cold reports whether Start came from the default look-back window
	// rather than a stored pointer.
	Cold bool

	Rows          []Record
	BatchCount    int
	LastBatchSize int

	// LastRowValue is the pointer column value of the final accumulated row,
	// for callers that want to advance the pointer past what was collected.
	// The core deliberately does not do this itself.
	LastRowValue any
}

// Collector drives the incremental collection loop: resolve the pointer,
// page through rows above it, save the accumulated set, persist the pointer.
type Collector struct {
	logger *slog.Logger
	cfg    *Config
	store  PointerStore
	sink   Sink
	exec   QueryExecutor

	pageLimit int
	now       func() time.Time
}

func New(logger *slog.Logger, cfg *Config, store PointerStore, sink Sink, exec QueryExecutor) *Collector {
	return &Collector{
		logger:    logger.With("module", "collector", "table", cfg.Source()),
		cfg:       cfg,
		store:     store,
		sink:      sink,
		exec:      exec,
		pageLimit: PageLimit,
		now:       time.Now,
	}
}

// Collect performs one run. Delivery is at-least-once: rows are saved before
// the pointer, and a failure anywhere aborts the run without touching
// previously persisted state. Callers must not run two collections for the
// same source concurrently.
func (c *Collector) Collect(ctx context.Context) (*CollectionRun, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	start := time.Now()
	defer func() {
		runDuration.WithLabelValues(c.cfg.Source()).Observe(time.Since(start).Seconds())
	}()

	c.logger.Info("starting collection run")

	stored, found, err := c.store.GetPointer(ctx)
	if err != nil {
		return nil, err
	}

	pointer, cold := Resolve(stored, found, c.cfg.TimeFormat, c.now())
	if cold {
		c.logger.Debug("no valid pointer found, using default window", "pointer", pointer.String())
	} else {
		c.logger.Debug("resolved stored pointer", "pointer", pointer.String())
	}

	span.SetAttributes(
		attribute.String("pointer", pointer.String()),
		attribute.Bool("cold_start", cold),
	)

	run := &CollectionRun{Start: pointer, Cold: cold}

	for {
		query := BuildQuery(c.cfg, run.Start, c.pageLimit)
		c.logger.Debug("constructed query", "query", query)

		rows, err := c.executePage(ctx, query)
		if err != nil {
			c.logger.Error("query failed, aborting run", "batch", run.BatchCount+1, "err", err)
			return nil, &RequestFailedError{Query: query, Err: err}
		}

		if len(rows) == 0 {
			c.logger.Info("no more rows found")
			break
		}

		run.Rows = append(run.Rows, rows...)
		run.BatchCount++
		run.LastBatchSize = len(rows)
		run.LastRowValue = rows[len(rows)-1][c.cfg.PointerPath]

		rowsCollected.WithLabelValues(c.cfg.Source()).Add(float64(len(rows)))
		batchSizeHist.WithLabelValues(c.cfg.Source()).Observe(float64(len(rows)))

		c.logger.Info("collected batch", "batch", run.BatchCount, "rows", len(rows))

		// A short page signals end-of-data.
		if run.BatchCount >= c.cfg.MaxBatches || len(rows) < c.pageLimit {
			break
		}
	}

	if len(run.Rows) == 0 {
		c.logger.Info("nothing to save")
		return run, nil
	}

	if err := c.flush(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

func (c *Collector) executePage(ctx context.Context, query string) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "executePage")
	defer span.End()

	pagesFetched.WithLabelValues(c.cfg.Source()).Inc()

	return c.exec.Execute(ctx, query)
}

// flush saves the accumulated rows, then persists the pointer at its
// resolve-time value.
func (c *Collector) flush(ctx context.Context, run *CollectionRun) error {
	ctx, span := tracer.Start(ctx, "flush")
	defer span.End()

	span.SetAttributes(attribute.Int("rows", len(run.Rows)))

	c.logger.Debug("saving rows", "rows", len(run.Rows), "batches", run.BatchCount)
	if err := c.sink.Save(ctx, run.Rows); err != nil {
		return err
	}

	if err := c.store.SetPointer(ctx, run.Start.String()); err != nil {
		return err
	}

	runsFlushed.WithLabelValues(c.cfg.Source()).Inc()
	c.logger.Info("collection run flushed", "rows", len(run.Rows), "batches", run.BatchCount, "pointer", run.Start.String())

	return nil
}
