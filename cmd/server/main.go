// Command server runs the classroom progress tracker: the table storage
// backend selected by configuration, the engines on top of it, and the
// JSON HTTP API in front.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/classquest/classquest/config"
	"github.com/classquest/classquest/internal/application"
	"github.com/classquest/classquest/internal/infrastructure/persistence/csvfile"
	"github.com/classquest/classquest/internal/infrastructure/persistence/gsheet"
	"github.com/classquest/classquest/internal/infrastructure/persistence/postgres"
	"github.com/classquest/classquest/internal/infrastructure/persistence/rediscache"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/internal/infrastructure/persistence/xlsxfile"
	httpiface "github.com/classquest/classquest/internal/interface/http"
	"github.com/classquest/classquest/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Observability.LogLevel))
	log.Info("starting",
		logger.F("app", cfg.App.Name),
		logger.F("version", cfg.App.Version),
		logger.F("env", string(cfg.App.Environment)),
		logger.Backend(string(cfg.Storage.Backend)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := buildBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if closeBackend != nil {
		defer closeBackend()
	}

	store := wrapStore(backend, cfg.Redis, log)

	registry := application.NewRegistry(store, log)
	ledger := application.NewLedgerEngine(store, registry, log, nil)
	tracker := application.NewAttendanceTracker(store, registry, log)
	observations := application.NewObservationLog(store, registry, log, nil)
	levels := application.NewLevelService(store, registry, log)

	server := httpiface.NewServer(cfg.HTTP, log, registry, ledger, tracker, observations, levels)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackend constructs the configured storage backend. The CSV default
// needs no configuration; sheets and postgres refuse to start with missing
// credentials rather than silently falling back.
func buildBackend(ctx context.Context, cfg config.StorageConfig) (tablestore.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendCSV:
		s, err := csvfile.New(cfg.DataDir)
		return s, nil, err
	case config.BackendXLSX:
		s, err := xlsxfile.New(cfg.WorkbookPath)
		return s, nil, err
	case config.BackendSheets:
		s, err := gsheet.New(gsheet.Config{
			SpreadsheetID: cfg.SpreadsheetID,
			AccessToken:   cfg.AccessToken,
			Timeout:       cfg.SheetsTimeout,
		})
		return s, nil, err
	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// wrapStore layers the caches onto the backend: the optional shared Redis
// cache first, then the per-process invalidating cache every deployment
// gets.
func wrapStore(backend tablestore.Store, cfg config.RedisConfig, log *logger.Logger) tablestore.Store {
	store := backend
	if cfg.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
		store = rediscache.New(store, client, cfg.TTL)
		log.Info("redis table cache enabled", logger.F("addr", cfg.Addr))
	}
	return tablestore.NewCache(store)
}
