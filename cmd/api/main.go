package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"matching-core/internal/api"
	"matching-core/internal/api/grpcapi"
	"matching-core/internal/book"
	"matching-core/internal/config"
	"matching-core/internal/engine"
	"matching-core/internal/logging"
	"matching-core/internal/persistence"
	"matching-core/internal/projection"
	"matching-core/internal/publish"
)

func main() {
	configPath := flag.String("config", getenv("CONFIG_PATH", ""), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	specs, err := cfg.Registry()
	if err != nil {
		return err
	}

	// ---------------- Stores ----------------

	eventStore, err := openEventStore(cfg, logger)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	snapshotStore, err := persistence.NewFileSnapshotStore(filepath.Join(cfg.Store.DataDir, "snapshots"))
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer snapshotStore.Close()

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// ---------------- Engine ----------------

	entries := projection.NewMemoryEntryRepository()
	eng := engine.NewEngine(&engine.EngineConfig{
		ShardCount:     cfg.Engine.ShardCount,
		QueueSize:      cfg.Engine.QueueSize,
		IdempotencyTTL: cfg.Engine.IdempotencyTTL,
		MaxRetries:     cfg.Engine.MaxRetries,
		SnapshotEvery:  cfg.Engine.SnapshotEvery,
	}, engine.Dependencies{
		EventStore:    eventStore,
		SnapshotStore: snapshotStore,
		Recovery:      persistence.NewFileRecoveryService(eventStore, snapshotStore, logger),
		Publisher:     publisher,
		Projector:     projection.NewProjector(entries, projection.NewMemoryTradeRepository()),
	}, logger)
	defer eng.Stop()

	initial := make(map[book.BookID]book.TradingStatuses, len(cfg.Books))
	for _, b := range cfg.Books {
		spec, err := specs.Get(b.BookID)
		if err != nil {
			return err
		}
		initial[spec.BookID] = b.Statuses()
	}
	if err := eng.Recover(ctx, initial); err != nil {
		return fmt.Errorf("recover books: %w", err)
	}
	logger.Info("books recovered", zap.Int("books", len(eng.BookIDs())))

	// ---------------- Servers ----------------

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.NewRouter(eng, entries, specs, logger).Handler(),
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpc.NewServer()
	grpcapi.RegisterBooksServer(grpcSrv, grpcapi.NewServer(eng, specs, logger))

	errs := make(chan error, 2)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcSrv.Serve(lis); err != nil {
			errs <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	return runErr
}

func openEventStore(cfg *config.Config, logger *zap.Logger) (persistence.EventStore, error) {
	dir := filepath.Join(cfg.Store.DataDir, "events")
	switch cfg.Store.Driver {
	case config.StoreDriverPebble:
		store, err := persistence.OpenPebbleEventStore(dir, logger)
		if err != nil {
			return nil, fmt.Errorf("open pebble event store: %w", err)
		}
		return store, nil
	default:
		store, err := persistence.NewFileEventStore(dir, logger)
		if err != nil {
			return nil, fmt.Errorf("open file event store: %w", err)
		}
		return store, nil
	}
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (publish.Publisher, error) {
	switch cfg.Publisher.Driver {
	case config.PublisherDriverKafka:
		return publish.NewKafkaPublisher(cfg.Publisher.Brokers, cfg.Publisher.Topic, logger), nil
	case config.PublisherDriverSarama:
		p, err := publish.NewSaramaPublisher(cfg.Publisher.Brokers, cfg.Publisher.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("open sarama publisher: %w", err)
		}
		return p, nil
	default:
		return publish.NopPublisher{}, nil
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
