package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	echopprof "github.com/sevenNt/echo-pprof"
	"github.com/urfave/cli/v2"

	"github.com/quarrydev/quarry/pkg/bq"
	"github.com/quarrydev/quarry/pkg/collector"
	"github.com/quarrydev/quarry/pkg/parq"
	"github.com/quarrydev/quarry/pkg/store"
	"github.com/quarrydev/quarry/pkg/tracing"
)

func main() {
	app := cli.App{
		Name:    "collect",
		Usage:   "incremental BigQuery table collector",
		Version: "0.0.1",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "project-id",
			Usage:   "Google Cloud project ID containing the source table",
			EnvVars: []string{"QUARRY_PROJECT_ID"},
		},
		&cli.StringFlag{
			Name:    "dataset",
			Usage:   "BigQuery dataset name",
			EnvVars: []string{"QUARRY_DATASET"},
		},
		&cli.StringFlag{
			Name:    "table",
			Usage:   "BigQuery table name",
			EnvVars: []string{"QUARRY_TABLE"},
		},
		&cli.StringSliceFlag{
			Name:    "columns",
			Usage:   "columns to project from the source table",
			EnvVars: []string{"QUARRY_COLUMNS"},
		},
		&cli.StringFlag{
			Name:    "pointer-path",
			Usage:   "column used to order rows and bound incremental queries",
			EnvVars: []string{"QUARRY_POINTER_PATH"},
		},
		&cli.IntFlag{
			Name:    "max-batches",
			Usage:   "maximum number of pages to collect per run",
			Value:   3,
			EnvVars: []string{"QUARRY_MAX_BATCHES"},
		},
		&cli.StringFlag{
			Name:    "time-format",
			Usage:   "pointer encoding, 'microseconds' or 'timestamp'",
			Value:   "microseconds",
			EnvVars: []string{"QUARRY_TIME_FORMAT"},
		},
		&cli.DurationFlag{
			Name:    "interval",
			Usage:   "time between collection runs",
			Value:   10 * time.Minute,
			EnvVars: []string{"QUARRY_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "sqlite-path",
			Usage:   "path to the sqlite database holding the pointer and collected rows",
			Value:   "/data/quarry.db",
			EnvVars: []string{"QUARRY_SQLITE_PATH"},
		},
		&cli.StringFlag{
			Name:    "parquet-dir",
			Usage:   "write collected rows to parquet files in this directory instead of sqlite",
			EnvVars: []string{"QUARRY_PARQUET_DIR"},
		},
		&cli.StringFlag{
			Name:    "service-account-file",
			Usage:   "path to a service account JSON key, uses application default credentials if unset",
			EnvVars: []string{"QUARRY_SERVICE_ACCOUNT_FILE"},
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "port to serve the http server on",
			Value:   8080,
			EnvVars: []string{"QUARRY_PORT"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			Value:   false,
			EnvVars: []string{"QUARRY_DEBUG"},
		},
	}

	app.Action = Collect

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// Collect is the main function for the collector
func Collect(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()

	// Create a channel that will be closed when we want to stop the application
	// Usually when a critical routine returns an error
	kill := make(chan struct{})

	// Logging
	logLevel := slog.LevelInfo
	if cctx.Bool("debug") {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel, AddSource: true}))
	slog.SetDefault(slog.New(logger.Handler()))

	logger.Info("starting up")

	// Registers a tracer Provider globally if the exporter endpoint is set
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		logger.Info("registering global tracer provider")
		shutdown, err := tracing.InstallExportPipeline(ctx, "quarry-collect", 1)
		if err != nil {
			logger.Error("failed to install export pipeline", "error", err)
			return err
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.Error("failed to shutdown export pipeline", "error", err)
			}
		}()
	}

	cfg, err := collector.Validate(collector.RawConfig{
		ProjectID:   cctx.String("project-id"),
		DatasetName: cctx.String("dataset"),
		TableName:   cctx.String("table"),
		Columns:     cctx.StringSlice("columns"),
		PointerPath: cctx.String("pointer-path"),
		MaxBatches:  cctx.Int("max-batches"),
		TimeFormat:  cctx.String("time-format"),
	})
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	var serviceAccountJSON []byte
	if cctx.String("service-account-file") != "" {
		serviceAccountJSON, err = os.ReadFile(cctx.String("service-account-file"))
		if err != nil {
			logger.Error("failed to read service account file", "error", err)
			return err
		}
	}

	bqClient, err := bq.NewClient(ctx, cfg.ProjectID, serviceAccountJSON, logger)
	if err != nil {
		logger.Error("failed to create bigquery client", "error", err)
		return err
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logger.Error("failed to close bigquery client", "error", err)
		}
	}()

	db, err := store.NewStore(cctx.String("sqlite-path"), cfg.Source(), logger)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		return err
	}

	var sink collector.Sink = db
	if cctx.String("parquet-dir") != "" {
		logger.Info("parquet dir set, writing rows to parquet files")
		sink, err = parq.NewSink(logger, cctx.String("parquet-dir"), cfg.Source())
		if err != nil {
			logger.Error("failed to create parquet sink", "error", err)
			return err
		}
	}

	c := collector.New(logger, cfg, db, sink, bqClient)

	// Run collections on the configured interval until shutdown
	shutdownScheduler := make(chan struct{})
	schedulerShutdown := make(chan struct{})
	go func() {
		logger := logger.With("source", "scheduler")

		ticker := time.NewTicker(cctx.Duration("interval"))
		defer ticker.Stop()

		for {
			run, err := c.Collect(ctx)
			if err != nil {
				logger.Error("collection run failed", "error", err)
			} else {
				logger.Info("collection run finished",
					"rows", len(run.Rows),
					"batches", run.BatchCount,
					"cold_start", run.Cold,
					"pointer", run.Start.String(),
				)
			}

			select {
			case <-shutdownScheduler:
				logger.Info("shutting down scheduler")
				close(schedulerShutdown)
				return
			case <-ticker.C:
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(slogecho.New(logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "quarry",
		HistogramOptsFunc: func(opts prometheus.HistogramOpts) prometheus.HistogramOpts {
			opts.Buckets = prometheus.ExponentialBuckets(0.00001, 2, 20)
			return opts
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/rows", db.HandleGetRows)
	e.GET("/pointer", db.HandleGetPointer)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Quarry")
	})
	echopprof.Wrap(e)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cctx.Int("port")),
		Handler: e,
	}

	// Startup HTTP server
	shutdownHTTPServer := make(chan struct{})
	httpServerShutdown := make(chan struct{})
	go func() {
		logger := logger.With("source", "http_server")

		logger.Info("http server listening on port", "port", cctx.Int("port"))

		go func() {
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("failed to start http server", "error", err)
				close(kill)
			}
		}()
		<-shutdownHTTPServer
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down http server", "error", err)
		}
		logger.Info("http server shut down")
		close(httpServerShutdown)
	}()

	// Trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signals:
		logger.Info("received signal, shutting down")
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	case <-kill:
		logger.Info("shutting down due to server error")
	}

	logger.Info("shutting down, waiting for routines to finish")
	cancel()
	close(shutdownScheduler)
	close(shutdownHTTPServer)

	<-schedulerShutdown
	<-httpServerShutdown
	logger.Info("shutdown complete")

	return nil
}
