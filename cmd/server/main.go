// Command server runs the tenderdesk API: authentication, session
// lifecycle, password reset, and dossier tracking. main wires dependencies
// and owns the process lifecycle; business logic lives in internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tenderdesk/internal/audit"
	"tenderdesk/internal/auth/reset"
	"tenderdesk/internal/auth/secrets"
	"tenderdesk/internal/auth/service"
	"tenderdesk/internal/auth/session"
	"tenderdesk/internal/auth/token"
	"tenderdesk/internal/boot"
	"tenderdesk/internal/directory"
	"tenderdesk/internal/dossier"
	"tenderdesk/internal/idempotency"
	"tenderdesk/internal/platform/config"
	"tenderdesk/internal/platform/httpserver"
	"tenderdesk/internal/platform/logger"
	platformredis "tenderdesk/internal/platform/redis"
	"tenderdesk/internal/ratelimit"
	httptransport "tenderdesk/internal/transport/http"
)

func main() {
	log := logger.New()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	codec, err := token.NewCodec(cfg.SigningSecret, "tenderdesk", "tenderdesk-api")
	if err != nil {
		log.Error("token codec construction failed", "error", err)
		os.Exit(1)
	}

	dir := directory.NewInMemoryDirectory()
	if err := bootstrapAdmin(ctx, dir); err != nil {
		log.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	var (
		sessions   session.Store
		challenges reset.ChallengeStore
		buckets    ratelimit.BucketStore
		health     func(ctx context.Context) error
	)
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient.Client)
		challenges = reset.NewRedisChallengeStore(redisClient.Client)
		buckets = ratelimit.NewRedisBucketStore(redisClient.Client)
		health = redisClient.Health
		defer redisClient.Close()
		log.Info("using redis-backed stores")
	} else {
		memSessions := session.NewInMemoryStore()
		memSessions.StartSweeper(ctx, cfg.SessionSweepInterval, log)
		sessions = memSessions
		challenges = reset.NewInMemoryChallengeStore()
		buckets = ratelimit.NewInMemoryBucketStore()
		log.Info("using in-memory stores")
	}

	auditLog := audit.NewInMemoryStore(4096)
	auditor := audit.NewPublisher(auditLog, log, audit.WithAsyncBuffer(256))
	defer auditor.Close()

	authSvc := service.New(dir, codec, sessions, cfg.TokenTTL, log, service.WithAuditor(auditor))
	flow := reset.NewFlow(dir, challenges, reset.LogSender{Logger: log}, cfg.ResetCodeTTL, log,
		reset.WithAuditor(auditor))
	dossierSvc := dossier.NewService(dossier.NewInMemoryStore(), log, dossier.WithAuditor(auditor))
	limiter := ratelimit.NewLimiter(buckets, log, ratelimit.WithDisabled(cfg.RateLimitDisabled))

	guard := idempotency.NewGuard(cfg.IdempotencyRetention, cfg.IdempotencyWait, log)
	guard.StartJanitor(ctx, time.Hour, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:          log,
		Auth:            authSvc,
		Reset:           flow,
		Dossiers:        dossierSvc,
		Boot:            boot.NewGeneration(),
		AuditLog:        auditLog,
		Auditor:         auditor,
		Limiter:         limiter,
		Guard:           guard,
		SensitiveLimit:  cfg.SensitiveLimit,
		SensitiveWindow: cfg.SensitiveWindow,
		Health:          health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// bootstrapAdmin seeds an initial admin account from the environment so a
// fresh deployment with the in-memory directory has someone who can log in.
func bootstrapAdmin(ctx context.Context, dir directory.Directory) error {
	email := os.Getenv("TENDERDESK_ADMIN_EMAIL")
	password := os.Getenv("TENDERDESK_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	hash, err := secrets.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = directory.SeedIdentity(ctx, dir, email, hash, directory.RoleAdmin)
	return err
}
