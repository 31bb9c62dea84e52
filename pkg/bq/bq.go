package bq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/quarrydev/quarry/pkg/collector"
)

// Client executes collection queries against BigQuery. It satisfies
// collector.QueryExecutor.
type Client struct {
	logger  *slog.Logger
	client  *bigquery.Client
	limiter *rate.Limiter
}

var tracer = otel.Tracer("bq")

// NewClient builds an authenticated BigQuery client. A non-empty
// serviceAccountJSON is parsed as a service account secret; malformed or
// rejected secrets surface as collector.ErrInvalidCredentials. An empty
// secret falls back to application default credentials.
func NewClient(ctx context.Context, projectID string, serviceAccountJSON []byte, logger *slog.Logger) (*Client, error) {
	var opts []option.ClientOption

	if len(serviceAccountJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON, bigquery.Scope)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", collector.ErrInvalidCredentials, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	logger = logger.With("module", "bq")
	logger.Debug("bigquery client created", "project_id", projectID)

	return &Client{
		logger:  logger,
		client:  bqClient,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}, nil
}

// Execute runs one page query and returns the rows in result order.
func (c *Client) Execute(ctx context.Context, query string) ([]collector.Record, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	// Pace queries to stay inside interactive query quotas.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	c.logger.Info("executing query on bigquery")

	start := time.Now()
	it, err := c.client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	rows := []collector.Record{}
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read query results: %w", err)
		}

		record := make(collector.Record, len(row))
		for k, v := range row {
			record[k] = v
		}
		rows = append(rows, record)
	}

	queryDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("rows", len(rows)))

	c.logger.Debug("query executed", "rows", len(rows), "duration", time.Since(start).String())

	return rows, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
