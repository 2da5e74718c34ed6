package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/config"
	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/database"
	"github.com/JonMunkholm/dealership/internal/logging"
	"github.com/JonMunkholm/dealership/internal/metrics"
	"github.com/JonMunkholm/dealership/internal/notify"
	"github.com/JonMunkholm/dealership/internal/storage"
	"github.com/JonMunkholm/dealership/internal/web"
	"github.com/JonMunkholm/dealership/internal/wizard"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	pool, err := database.Connect(ctx, database.PoolOptions{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("connected to database", "name", database.DatabaseName(cfg.Database.URL))

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, pool)
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", applied)
	}
	store := database.NewStore(pool)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Object storage
	minioClient, err := storage.NewMinioClient(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		slog.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}
	limiter := storage.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	uploader := storage.NewUploader(minioClient, storage.Options{
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		MaxSizes: map[string]int64{
			cfg.Storage.ImageBucket:    cfg.Upload.MaxImageSize,
			cfg.Storage.DocumentBucket: cfg.Upload.MaxDocumentSize,
			cfg.Storage.BlogBucket:     cfg.Upload.MaxImageSize,
		},
		Limiter: limiter,
	})
	objects := core.InstrumentObjects(uploader, m)

	// Background jobs and in-memory sweeps stop on shutdown
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Session stores: Redis when configured, memory otherwise
	var (
		sessions    auth.SessionStore
		wizardStore wizard.Store
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		sessions = auth.NewRedisSessionStore(rdb)
		wizardStore = wizard.NewRedisStore(rdb, cfg.Wizard.SessionTTL)
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
	} else {
		sessions = auth.NewMemorySessionStore()
		wizardStore = wizard.NewMemoryStore(jobCtx, cfg.Wizard.SessionTTL)
		slog.Warn("REDIS_ADDR not set, sessions are kept in memory")
	}

	// Notifications
	var notifiers notify.Multi
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL, "dealership")
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		notifiers = append(notifiers, notify.NewPublisher(nc, cfg.Notify.SubjectPrefix))
	}
	if cfg.Notify.SMTPHost != "" {
		dialer := notify.NewDialer(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.SMTPUsername, cfg.Notify.SMTPPassword)
		notifiers = append(notifiers, notify.NewMailer(dialer, cfg.Notify.MailFrom, cfg.Notify.MailTo))
	}

	service := core.NewService(core.Deps{
		Listings:  store,
		Images:    store,
		Financing: store,
		Blog:      store,
		Audit:     store,
		Objects:   objects,
		Notifier:  notifiers,
		Metrics:   m,
	}, core.Options{
		ImageBucket: cfg.Storage.ImageBucket,
		BlogBucket:  cfg.Storage.BlogBucket,
		MaxImages:   cfg.Upload.MaxImages,
	})

	validator, err := wizard.NewValidator()
	if err != nil {
		slog.Error("failed to compile financing form schemas", "error", err)
		os.Exit(1)
	}
	financingWizard := wizard.New(wizardStore, validator, objects, service, cfg.Storage.DocumentBucket)

	secret := cfg.Auth.TokenSecret
	if secret == "" {
		secret = randomSecret()
		slog.Warn("AUTH_TOKEN_SECRET not set, admin sessions will not survive a restart")
	}
	if cfg.Auth.AdminPasswordHash == "" {
		slog.Warn("ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}
	authenticator := auth.New(auth.Options{
		Username:     cfg.Auth.AdminUsername,
		PasswordHash: cfg.Auth.AdminPasswordHash,
		Secret:       secret,
		TTL:          cfg.Auth.SessionTTL,
	}, sessions)

	server := web.NewServer(web.Deps{
		Service: service,
		Wizard:  financingWizard,
		Auth:    authenticator,
		Metrics: m,
		Health:  store.Ping,
	}, cfg)

	if cfg.Reconcile.Enabled {
		go service.StartReconciler(jobCtx, core.ReconcileConfig{
			Interval:    cfg.Reconcile.Interval,
			GracePeriod: cfg.Reconcile.GracePeriod,
			BatchSize:   cfg.Reconcile.BatchSize,
		})
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
