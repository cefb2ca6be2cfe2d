package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/devisible/internal/adapter/driven/backend"
	sqliteadapter "github.com/ericfisherdev/devisible/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/devisible/internal/adapter/driving/http"
	"github.com/ericfisherdev/devisible/internal/application"
	"github.com/ericfisherdev/devisible/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		Long: `Run the dashboard API server.

Configuration comes from the optional --config YAML file and DEVISIBLE_
environment variables. DEVISIBLE_SECRET_KEY (64 hex characters) is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			return runServe(cmd.Context(), configFile)
		},
	}
}

func runServe(parent context.Context, configFile string) error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend_url", cfg.BackendURL,
		"session_ttl", cfg.SessionTTL,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	schemaVersion, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "schema_version", schemaVersion)

	// 5. Derive keys and wire adapters.
	keys, err := application.DeriveSessionKeys(cfg.SecretKey)
	if err != nil {
		return err
	}

	sessionStore, err := sqliteadapter.NewSessionRepo(db, keys.Encryption)
	if err != nil {
		return err
	}

	backendClient, err := backend.NewClient(cfg.BackendURL, backend.Options{
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetries,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// 6. Application services.
	views := application.NewViewStore()
	tokens := application.NewTokenIssuer(keys.Signing)
	authSvc := application.NewAuthService(backendClient, sessionStore, views, tokens, cfg.SessionTTL, logger)
	dashboardSvc := application.NewDashboardService(backendClient, views, logger)

	sweeper := application.NewSessionSweeper(sessionStore, backendClient, views, cfg.SweepInterval, logger)
	go sweeper.Start(ctx)

	limiter := httphandler.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)
	go limiter.Start(ctx)

	// 7. HTTP server.
	handler := httphandler.NewHandler(authSvc, dashboardSvc, cfg.SecureCookies, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 8. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 9. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
