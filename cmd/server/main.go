package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pwheeler/streamrec/internal/api"
	"github.com/pwheeler/streamrec/internal/catalog"
	"github.com/pwheeler/streamrec/internal/config"
	"github.com/pwheeler/streamrec/internal/favorites"
	"github.com/pwheeler/streamrec/internal/logic/recommend"
	"github.com/pwheeler/streamrec/internal/middleware"
	"github.com/pwheeler/streamrec/internal/observability"
	"github.com/pwheeler/streamrec/internal/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	store, err := favorites.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer store.Close()

	sessions, err := session.InitRedis(cfg.RedisAddr, []byte(cfg.SessionSecret), cfg.SessionTTL, metricsRegistry)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer sessions.Close()

	catalogClient := catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, logger, metricsRegistry)

	recommender := recommend.NewRecommender(catalogClient, store, logger, metricsRegistry)

	r := mux.NewRouter()
	srvDeps := api.NewServer(logger, store, sessions, catalogClient, recommender, metricsRegistry, cfg)
	r.HandleFunc("/recommendation", srvDeps.RecommendationHandler).Methods("GET")
	r.HandleFunc("/game", srvDeps.GameHandler).Methods("GET")
	r.HandleFunc("/search", srvDeps.SearchHandler).Methods("GET")
	r.HandleFunc("/favorite", srvDeps.FavoriteHandler).Methods("GET", "POST", "DELETE")
	r.HandleFunc("/register", srvDeps.RegisterHandler).Methods("POST")
	r.HandleFunc("/login", srvDeps.LoginHandler).Methods("POST")
	r.HandleFunc("/logout", srvDeps.LogoutHandler).Methods("POST")
	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")

	r.Handle("/metrics", promhttp.Handler())

	r.Use(middleware.WithTraceLogger(logger))

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, "streamrec")
	}

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Recommendation server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
