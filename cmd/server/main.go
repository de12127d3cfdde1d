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

	"debrief/internal/adjudicate"
	adjudicateMetrics "debrief/internal/adjudicate/metrics"
	"debrief/internal/audit"
	"debrief/internal/compare"
	compareMetrics "debrief/internal/compare/metrics"
	"debrief/internal/evidence"
	"debrief/internal/evidence/cache"
	"debrief/internal/evidence/nli"
	"debrief/internal/evidence/scite"
	jwttoken "debrief/internal/jwt_token"
	"debrief/internal/platform/config"
	"debrief/internal/platform/httpserver"
	"debrief/internal/platform/logger"
	"debrief/internal/platform/middleware"
	platformRedis "debrief/internal/platform/redis"
	"debrief/internal/report"
	"debrief/internal/run"
	"debrief/internal/run/handler"
	runMetrics "debrief/internal/run/metrics"
	"debrief/internal/run/store"
)

// main wires the analysis pipeline and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		procedures run.ProcedureStore
		events     run.EventStore
		reports    run.ReportStore
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}

		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate schema", "error", err)
			os.Exit(1)
		}
		procedures, events, reports = pg, pg, pg
		log.Info("storage ready", "backend", "postgres")
	} else {
		mem := store.NewMemory()
		procedures, events, reports = mem, mem, mem
		log.Warn("no postgres DSN configured, using in-memory storage")
	}

	// Evidence source: scite client, optionally wrapped in a Redis cache.
	var source evidence.Source = scite.NewClient(cfg.EvidenceAPIBase, cfg.EvidenceAPIKey,
		scite.WithLogger(log))
	redisClient, err := platformRedis.New(config.RedisFromEnv())
	if err != nil {
		log.Error("redis connect", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		source = cache.New(source, redisClient.Client, cfg.EvidenceCacheTTL,
			cache.WithLogger(log))
		log.Info("evidence cache enabled", "ttl", cfg.EvidenceCacheTTL)
	}

	scorer := nli.NewScorer(cfg.ScorerEndpoint, nli.WithLogger(log))

	// Audit trail: memory store, plus a Kafka sink when brokers are set.
	auditStore := audit.NewMemoryStore()
	publisherOpts := []audit.PublisherOption{audit.WithPublisherLogger(log)}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
			log.Error("ensure audit topic", "error", err)
			os.Exit(1)
		}

		outbox := make(chan audit.Event, 256)
		publisherOpts = append(publisherOpts, audit.WithOutbox(outbox))
		go func() {
			if err := audit.NewWorker(sink, outbox, log).Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		log.Info("audit trail forwarding to kafka", "topic", cfg.AuditTopic)
	}
	auditor := audit.NewPublisher(auditStore, publisherOpts...)

	// Pipeline services.
	engine := compare.NewEngine(
		compare.WithLogger(log),
		compare.WithMetrics(compareMetrics.New()),
	)
	adjudicator := adjudicate.NewService(source, scorer,
		adjudicate.WithLogger(log),
		adjudicate.WithMetrics(adjudicateMetrics.New()),
		adjudicate.WithWorkers(cfg.AdjudicationWorkers),
	)
	builder := report.NewBuilder()

	service, err := run.NewService(procedures, events, reports, engine, adjudicator, builder,
		run.WithLogger(log),
		run.WithMetrics(runMetrics.New()),
		run.WithAuditTrail(auditor),
	)
	if err != nil {
		log.Error("build run service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "debrief", "debrief-api")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recover(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h := handler.New(service,
		handler.WithLogger(log),
		handler.WithJWTValidator(jwttoken.NewJWTServiceAdapter(jwtService)),
		handler.WithAPIKeyHash(cfg.APIKeyHash),
	)
	h.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting debrief", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	stopWorker()
}
