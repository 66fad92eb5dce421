package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/blob"
	"refdesk/internal/adapters/email"
	web "refdesk/internal/adapters/http"
	"refdesk/internal/adapters/http/middleware"
	"refdesk/internal/adapters/metrics"
	"refdesk/internal/adapters/storage"
	accountStore "refdesk/internal/adapters/storage/account"
	assignmentStore "refdesk/internal/adapters/storage/assignment"
	auditStore "refdesk/internal/adapters/storage/audit"
	eventStore "refdesk/internal/adapters/storage/event"
	forumStore "refdesk/internal/adapters/storage/forum"
	honorStore "refdesk/internal/adapters/storage/honor"
	outboxStore "refdesk/internal/adapters/storage/outbox"
	refereeStore "refdesk/internal/adapters/storage/referee"
	sessionStore "refdesk/internal/adapters/storage/session"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/config"
	"refdesk/internal/domain/outbox"
	"refdesk/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m := metrics.New(metrics.WithRuntimeCollectors())
	timedDB := storage.NewTimedDB(db, m, time.Duration(cfg.SlowQueryMs)*time.Millisecond)

	stores := &web.Stores{
		Accounts:    accountStore.NewSQLiteStore(timedDB),
		Referees:    refereeStore.NewSQLiteStore(timedDB),
		Events:      eventStore.NewSQLiteStore(timedDB),
		Assignments: assignmentStore.NewSQLiteStore(timedDB),
		Honors:      honorStore.NewSQLiteStore(timedDB),
		Forum:       forumStore.NewSQLiteStore(timedDB),
		Audit:       auditStore.NewSQLiteStore(timedDB),
		Outbox:      outboxStore.NewSQLiteStore(timedDB),
	}
	sessions := sessionStore.NewSQLiteStore(timedDB)
	stores.Sessions = sessions

	if err := orchestrators.ExecuteSeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword,
		orchestrators.SeedAdminDeps{AccountStore: stores.Accounts}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	var sender email.Sender
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender_configured", "provider", "noop", "warning", "resend_key is not set, mail delivery is disabled")
		} else {
			slog.Info("email_sender_configured", "provider", "noop")
		}
	}

	processor := orchestrators.NewOutboxProcessor(stores.Outbox,
		map[string]orchestrators.ActionExecutor{outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender}},
		m, orchestrators.WithOutboxAudit(stores.Audit))
	go processor.Run(ctx, cfg.OutboxInterval)

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = auth.RandomSecret(32); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("auth_config", "event", "ephemeral_jwt_secret", "detail", "sessions end on restart")
	}
	tokens, err := auth.NewTokenManager(secret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	csrfKey, err := csrfKeyFrom(cfg.CSRFKey)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Second)
	go limiter.Janitor(ctx)
	go purgeRevocations(ctx, sessions)

	handler := web.NewMux(stores, web.Options{
		Tokens:         tokens,
		Blobs:          blobs,
		Processor:      processor,
		Metrics:        m,
		DB:             timedDB,
		Limiter:        limiter,
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: cfg.TrustedOrigins,
		HonorMaxAmount: cfg.HonorMaxAmount,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SlowRequest:    time.Duration(cfg.SlowRequestMs) * time.Millisecond,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stop", "reason", "signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobDriver == config.BlobDriverS3 {
		s, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 blob store: %w", err)
		}
		slog.Info("blob_store_configured", "driver", "s3", "bucket", cfg.S3Bucket)
		return s, nil
	}
	s, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("open fs blob store: %w", err)
	}
	slog.Info("blob_store_configured", "driver", "fs", "dir", cfg.BlobDir)
	return s, nil
}

// csrfKeyFrom decodes the configured key, or generates one for this process.
func csrfKeyFrom(hexKey string) ([]byte, error) {
	if hexKey == "" {
		var err error
		if hexKey, err = auth.RandomSecret(32); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		slog.Warn("auth_config", "event", "ephemeral_csrf_key")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: csrf_key must be 64 hex characters", config.ErrInvalidConfig)
	}
	return key, nil
}

func purgeRevocations(ctx context.Context, sessions *sessionStore.SQLiteStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				slog.Warn("session_event", "event", "purge_failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("session_event", "event", "revocations_purged", "count", n)
			}
		}
	}
}
