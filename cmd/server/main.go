package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/couchcryptid/weather-type-service/internal/adapter/http"
	"github.com/couchcryptid/weather-type-service/internal/catalog"
	"github.com/couchcryptid/weather-type-service/internal/config"
	"github.com/couchcryptid/weather-type-service/internal/dataset"
	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/form"
	"github.com/couchcryptid/weather-type-service/internal/model"
	"github.com/couchcryptid/weather-type-service/internal/observability"
	"github.com/couchcryptid/weather-type-service/internal/session"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	observations, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded", "path", cfg.DatasetPath, "rows", len(observations))

	predictor, err := newPredictor(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to load model", "error", err)
		os.Exit(1)
	}

	adapter, err := domain.NewAdapter(cat.Codes, cat.Classes, predictor)
	if err != nil {
		logger.Error("model class space does not match catalog", "error", err)
		os.Exit(1)
	}

	svc, store, err := newFormService(cfg, newSessionStore, cat, observations, adapter, logger, metrics)
	if err != nil {
		logger.Error("failed to start form service", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newPredictor picks the remote model when MODEL_URL is set and the local
// artifact otherwise, optionally behind the prediction cache.
func newPredictor(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Predictor, error) {
	var p domain.Predictor
	if cfg.ModelURL != "" {
		p = model.NewClient(cfg.ModelURL, cfg.ModelTimeout, cfg.ModelClasses, metrics, logger)
		logger.Info("remote model enabled", "url", cfg.ModelURL, "timeout", cfg.ModelTimeout, "classes", cfg.ModelClasses)
		if len(cfg.ModelClasses) == 0 {
			logger.Warn("MODEL_CLASSES not set: remote class codes are only checked per prediction")
		}
	} else {
		forest, err := model.Load(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		p = forest
		logger.Info("model loaded", "path", cfg.ModelPath, "kind", forest.Kind(), "classes", forest.Classes())
	}

	if cfg.PredictionCacheSize > 0 {
		p = model.NewCachedPredictor(p, cfg.PredictionCacheSize, metrics)
		logger.Info("prediction cache enabled", "size", cfg.PredictionCacheSize)
	}
	return p, nil
}

type storeOpener func(cfg *config.Config) (session.Store, error)

// newFormService opens the session store and builds the form service on it.
// The store is closed again when the service cannot be built.
func newFormService(cfg *config.Config, openStore storeOpener, cat *catalog.Catalog, observations []domain.Observation,
	adapter *domain.Adapter, logger *slog.Logger, metrics *observability.Metrics) (*form.Service, session.Store, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	svc, err := form.New(cat, observations, adapter, store, logger, metrics)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Error("session store close error", "error", cerr)
		}
		return nil, nil, err
	}
	return svc, store, nil
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		return session.NewSQLiteStore(cfg.SessionDBPath, cfg.SessionTTL, nil)
	case config.SessionStoreMemory:
		return session.NewMemoryStore(cfg.SessionTTL, nil), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
}
