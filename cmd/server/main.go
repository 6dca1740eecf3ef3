package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"route-audit-service/internal/adapters/alert"
	"route-audit-service/internal/adapters/spreadsheet"
	"route-audit-service/internal/adapters/storage"
	"route-audit-service/internal/api"
	"route-audit-service/internal/config"
	"route-audit-service/internal/platform/logging"
	"route-audit-service/internal/services"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// main is the application composition root.
// It wires the snapshot store, exporter and engine behind the HTTP router.
func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}
	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("warning", w))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, storage.OpenOptions{
		Driver:        cfg.StoreDriver,
		DBPath:        cfg.DBPath,
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Key:           cfg.SnapshotKey,
		Log:           log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	translator, err := services.NewStatusTranslator(cfg.StatusTablePath)
	if err != nil {
		return err
	}

	engine := services.NewEngine(services.EngineOptions{
		Store: store,
		// Remote clients play alerts from the scan result flag.
		Alerter:    alert.Nop{},
		Exporter:   spreadsheet.NewXLSXWriter(),
		Translator: translator,
		Importer: services.NewRouteImporter(services.RouteImporterOptions{
			LookbackWindow: cfg.LookbackWindow,
			DefaultCarrier: cfg.DefaultCarrier,
			Log:            log,
		}),
		Clock:  clockz.RealClock,
		Logger: log,
	})
	engine.Restore(ctx)

	sessions := services.NewKeystrokeSessions(cfg.ScanThreshold, cfg.SessionIdle, clockz.RealClock)
	router := api.NewRouter(engine, sessions, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
