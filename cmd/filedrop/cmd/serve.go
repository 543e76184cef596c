package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/CaioWing/filedrop/internal/api"
	"github.com/CaioWing/filedrop/internal/api/middleware"
	"github.com/CaioWing/filedrop/internal/config"
	"github.com/CaioWing/filedrop/internal/domain"
	"github.com/CaioWing/filedrop/internal/repository/postgres"
	"github.com/CaioWing/filedrop/internal/service"
	"github.com/CaioWing/filedrop/internal/storage"
	"github.com/CaioWing/filedrop/internal/storage/local"
	"github.com/CaioWing/filedrop/internal/storage/miniostore"
	"github.com/CaioWing/filedrop/internal/storage/s3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server",
	Long:  "Run the HTTP server. Settings come from FILEDROP_* environment variables and an optional .env file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(log)

		if err := run(cmd.Context(), log); err != nil {
			log.Error("fatal", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func run(ctx context.Context, log *slog.Logger) error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info("starting filedrop",
		"listen", cfg.ListenAddr(),
		"backend", cfg.Storage.Backend,
		"ledger", cfg.DB.Enabled(),
	)

	// File storage
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}

	// Upload ledger (optional)
	var eventRepo domain.EventRepository
	if cfg.DB.Enabled() {
		log.Info("running database migrations")
		if err := postgres.RunMigrations(cfg.DB.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping db: %w", err)
		}
		log.Info("database connected")
		eventRepo = postgres.NewEventRepo(pool)
	}

	// Services
	eventSvc := service.NewEventService(eventRepo, log)
	fileSvc := service.NewFileService(store, eventSvc, log)

	// Storage must be usable before the first request
	if err := fileSvc.Bootstrap(ctx, cfg.Storage.WipeOnStartup); err != nil {
		return err
	}
	log.Info("storage initialized", "wiped", cfg.Storage.WipeOnStartup)

	limiter := middleware.NewRateLimiter(cfg.Server.UploadRateLimit, cfg.Server.UploadBurst)
	defer limiter.Stop()

	// Router
	router := api.NewRouter(api.RouterDeps{
		FileSvc:        fileSvc,
		EventSvc:       eventSvc,
		UploadLimiter:  limiter,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		AllowDeleteAll: cfg.Storage.AllowDeleteAll,
		Logger:         log,
	})

	// HTTP Server
	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down", "cause", context.Cause(ctx))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Service, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		return s3.New(ctx, s3.S3Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Prefix:         cfg.S3.Prefix,
			AccessKeyID:    cfg.S3.AccessKeyID,
			SecretKey:      cfg.S3.SecretKey,
			Endpoint:       cfg.S3.Endpoint,
			BaseURL:        cfg.S3.BaseURL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		}, s3.WithUploadTimeout(cfg.S3.UploadTimeout), s3.WithLogger(log))
	case config.BackendMinio:
		return miniostore.New(miniostore.Config{
			Endpoint:   cfg.Minio.Endpoint,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			Bucket:     cfg.Minio.Bucket,
			Region:     cfg.Minio.Region,
			Prefix:     cfg.Minio.Prefix,
			PublicBase: cfg.Minio.PublicBase,
			UseSSL:     cfg.Minio.UseSSL,
		}, log)
	default:
		return local.New(cfg.Storage.Location, log)
	}
}
