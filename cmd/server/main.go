package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"pontes/internal/audit"
	httpapi "pontes/internal/http"
	jwttoken "pontes/internal/jwt_token"
	"pontes/internal/platform/config"
	"pontes/internal/platform/httpserver"
	"pontes/internal/platform/logger"
	platformmetrics "pontes/internal/platform/metrics"
	"pontes/internal/platform/observability"
	"pontes/internal/platform/postgres"
	"pontes/internal/platform/redis"
	ratelimitmw "pontes/internal/ratelimit/middleware"
	ratelimitmodels "pontes/internal/ratelimit/models"
	"pontes/internal/ratelimit/store/bucket"
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/drafts"
	triagehandler "pontes/internal/triage/handler"
	triagemetrics "pontes/internal/triage/metrics"
	"pontes/internal/triage/service"
	"pontes/internal/triage/store"
	"pontes/pkg/platform/circuit"
)

const auditQueueSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.IsProduction(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Environment, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	questionnaire, err := catalog.FromFile(cfg.Triage.CatalogPath)
	if err != nil {
		return err
	}
	log.Info("triage catalog loaded", "version", questionnaire.Version, "steps", questionnaire.Len())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	healthChecks := map[string]httpapi.HealthCheck{}
	var limiter ratelimitmw.Limiter = bucket.NewInMemoryBucketStore()
	limiterOpts := []ratelimitmw.Option{ratelimitmw.WithDisabled(cfg.RateLimit.Disabled)}

	var records service.RecordStore = store.NewInMemoryStore()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		records = store.NewPostgres(db)
		healthChecks["postgres"] = db.PingContext
		log.Info("triage records stored in postgres")
	} else {
		log.Warn("DATABASE_URL not set, triage records kept in memory")
	}

	var draftStore service.DraftStore = drafts.NewInMemoryStore(cfg.Triage.DraftTTL)
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		draftStore = drafts.NewRedis(redisClient.Client, drafts.WithTTL(cfg.Triage.DraftTTL))
		healthChecks["redis"] = redisClient.Health
		limiterOpts = append(limiterOpts, ratelimitmw.WithFallback(limiter, circuit.New("ratelimit-redis")))
		limiter = bucket.NewRedisBucketStore(redisClient.Client)
		log.Info("triage drafts stored in redis")
	}

	g, gctx := errgroup.WithContext(ctx)

	var auditStore audit.Store = audit.NewLogStore(log)
	if len(cfg.Audit.Brokers) > 0 {
		kafka, err := audit.NewKafkaStore(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		if err := kafka.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic not ensured", "topic", cfg.Audit.Topic, "error", err)
		}
		queue := audit.NewQueue(auditQueueSize)
		worker := audit.NewWorker(kafka, queue.Inbox(), log)
		g.Go(func() error {
			if err := worker.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		auditStore = queue
		log.Info("audit events published to kafka", "topic", cfg.Audit.Topic)
	}

	triageService, err := service.New(questionnaire, records, draftStore,
		service.WithLogger(log),
		service.WithAuditPublisher(audit.NewPublisher(auditStore)),
		service.WithMetrics(triagemetrics.New(reg)),
	)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	router := httpapi.NewRouter(httpapi.Config{
		Logger:       log,
		Metrics:      platformmetrics.New(reg),
		Gatherer:     reg,
		Validator:    jwttoken.NewJWTServiceAdapter(jwtService),
		HealthChecks: healthChecks,
		RateLimit: ratelimitmw.New(limiter,
			ratelimitmodels.Policy{Limit: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
			log, limiterOpts...,
		).PerUser,
		Features: []httpapi.Registrar{triagehandler.New(triageService, log)},
	})

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting pontes triage", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
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
