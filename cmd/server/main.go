package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"familygate/internal/audit"
	consenthandler "familygate/internal/consent/handler"
	consentservice "familygate/internal/consent/service"
	consentstore "familygate/internal/consent/store"
	identityhandler "familygate/internal/identity/handler"
	identityservice "familygate/internal/identity/service"
	identitystore "familygate/internal/identity/store"
	"familygate/internal/invite"
	"familygate/internal/jwttoken"
	onboardinghandler "familygate/internal/onboarding/handler"
	onboardingservice "familygate/internal/onboarding/service"
	"familygate/internal/platform/config"
	"familygate/internal/platform/httpserver"
	"familygate/internal/platform/logger"
	"familygate/internal/platform/metrics"
	platformredis "familygate/internal/platform/redis"
	profilehandler "familygate/internal/profile/handler"
	profileservice "familygate/internal/profile/service"
	profilestore "familygate/internal/profile/store"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		profiles   profilestore.Store
		persons    profilestore.PersonStore
		accounts   profilestore.AccountStore
		consents   consentstore.Store
		consentTx  consentservice.Tx
		boardingTx onboardingservice.Tx
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			cancel()
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		cancel()

		pg := profilestore.NewPostgres(db)
		profiles = pg
		persons = pg
		accounts = pg
		consents = consentstore.NewPostgres(db)
		consentTx = newConsentPostgresTx(db)
		boardingTx = newOnboardingPostgresTx(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		mem := profilestore.NewMemory()
		consentMem := consentstore.NewMemory()
		profiles = mem
		persons = mem
		accounts = mem
		consents = consentMem
		consentTx = consentservice.NewMemoryTx(mem, consentMem)
		boardingTx = onboardingservice.NewMemoryTx(mem)
	}

	// Sessions: Redis when configured, in-memory otherwise.
	var sessions identitystore.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = identitystore.NewRedis(redisClient.Client)
	} else {
		log.Warn("REDIS_URL not set, using in-memory session store")
		sessions = identitystore.NewMemory()
	}

	// Audit feed, optionally forwarded to Kafka.
	auditOpts := []audit.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := audit.NewKafkaClient(cfg.KafkaBrokers)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		auditOpts = append(auditOpts, audit.WithKafka(kafkaClient, cfg.AuditTopic))
	}
	auditor := audit.New(log, auditOpts...)
	defer auditor.Close()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	consentSvc := consentservice.NewService(profiles, persons, consents, consentTx, auditor,
		consentservice.WithConsentTTL(cfg.ConsentTTL),
		consentservice.WithRenewalWarningWindow(cfg.RenewalWarningWindow),
	)
	profileSvc := profileservice.NewService(profiles)
	onboardingSvc := onboardingservice.NewService(
		profiles, accounts, persons,
		consentSvc,
		invite.NewDecoder(cfg.InviteSigningKey),
		boardingTx,
		auditor,
	)
	identitySvc := identityservice.NewService(
		profiles, sessions, jwtService, auditor,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)

	router := chi.NewRouter()
	profilehandler.New(profileSvc, consentSvc, log, m, validator).Register(router)
	consenthandler.New(consentSvc, log, m, validator).Register(router)
	onboardinghandler.New(onboardingSvc, log, m, validator).Register(router)
	identityhandler.New(identitySvc, log, m, validator).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting familygate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
