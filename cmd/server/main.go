package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditwatch/internal/anomaly"
	"creditwatch/internal/audit"
	auditkafka "creditwatch/internal/audit/kafka"
	"creditwatch/internal/ingest"
	"creditwatch/internal/platform/config"
	"creditwatch/internal/platform/httpserver"
	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/metrics"
	platformredis "creditwatch/internal/platform/redis"
	"creditwatch/internal/report/store"
	memstore "creditwatch/internal/report/store/memory"
	pgstore "creditwatch/internal/report/store/postgres"
	httptransport "creditwatch/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	st, tx, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Error("store setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	auditor, auditClose, err := buildAuditor(cfg, log, m)
	if err != nil {
		log.Error("audit setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer auditClose()

	ingestOpts := []ingest.Option{
		ingest.WithLogger(log),
		ingest.WithMetrics(m),
		ingest.WithAudit(auditor),
	}
	if redisClient, err := platformredis.New(cfg.RedisURL); err != nil {
		log.Error("redis setup failed", "error", err.Error())
		os.Exit(1)
	} else if redisClient != nil {
		defer redisClient.Close()
		ingestOpts = append(ingestOpts, ingest.WithDedupCache(ingest.NewRedisDedupCache(redisClient)))
	}
	ingestService := ingest.NewService(st, tx, ingestOpts...)

	engine := anomaly.NewEngine(
		anomaly.WithEngineLogger(log),
		anomaly.WithEngineMetrics(m),
	)
	analysisService := anomaly.NewService(st, engine,
		anomaly.WithLogger(log),
		anomaly.WithMetrics(m),
		anomaly.WithAudit(auditor),
	)

	handler := httptransport.NewHandler(ingestService, analysisService, st, log)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httptransport.NewRouter(handler))

	srv := httpserver.New(cfg.Addr, mux)

	log.Info("starting creditwatch", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// buildStore selects postgres when a DSN is configured, the in-memory
// implementation otherwise.
func buildStore(cfg config.Server) (store.Store, store.Tx, func(), error) {
	if cfg.PostgresDSN == "" {
		mem := memstore.New()
		return mem, memstore.NewTx(mem), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if err := pgstore.EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return pgstore.New(db), pgstore.NewTx(db), func() { db.Close() }, nil
}

// buildAuditor uses Kafka when brokers are configured, the in-memory sink
// otherwise.
func buildAuditor(cfg config.Server, log *slog.Logger, m *metrics.Metrics) (*audit.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		pub := audit.NewPublisher(audit.NewInMemoryStore(), audit.WithLogger(log), audit.WithMetrics(m))
		return pub, func() {}, nil
	}
	sink, err := auditkafka.New(context.Background(), cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if err != nil {
		return nil, nil, err
	}
	pub := audit.NewPublisher(sink, audit.WithLogger(log), audit.WithMetrics(m))
	return pub, sink.Close, nil
}
