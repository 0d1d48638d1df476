// Command server runs the certificate-request orchestrator: the HTTP API,
// the webhook reconciliation bridge, and the notification dispatch loop.
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

	"golang.org/x/sync/errgroup"

	"github.com/dewauriarte/SIGCERH-sub005/internal/acta"
	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/notificacion"
	"github.com/dewauriarte/SIGCERH-sub005/internal/pago"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/config"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/httpserver"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/logger"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/postgres"
	platformredis "github.com/dewauriarte/SIGCERH-sub005/internal/platform/redis"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	httptransport "github.com/dewauriarte/SIGCERH-sub005/internal/transport/http"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		solicitudes  solicitud.Store
		actaStore    acta.Store
		pagos        pago.Store
		webhookStore pago.WebhookStore
		auditStore   auditoria.Store
		runner       tx.Runner
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		solicitudes = solicitud.NewPostgres(db)
		actaStore = acta.NewPostgres(db)
		pagos = pago.NewPostgres(db)
		webhookStore = pago.NewPostgresWebhookStore(db)
		auditStore = auditoria.NewPostgres(db)
		runner = db
		log.Info("postgres stores ready")
	} else {
		solicitudes = solicitud.NewInMemoryStore()
		actaStore = acta.NewInMemoryStore()
		pagos = pago.NewInMemoryStore()
		webhookStore = pago.NewInMemoryWebhookStore()
		auditStore = auditoria.NewInMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	var stream auditoria.Stream
	if len(cfg.Kafka.Seeds) > 0 {
		kafkaStream, err := auditoria.NewKafkaStream(cfg.Kafka.Seeds, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaStream.Close()
		stream = kafkaStream
		log.Info("audit stream ready", "topic", cfg.Kafka.Topic)
	}
	publisher := auditoria.NewPublisher(auditStore, stream, log)

	var deduper pago.Deduper = pago.NewMemoryDeduper()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		deduper = pago.NewRedisDeduper(redisClient, 24*time.Hour)
		log.Info("redis replay dedupe ready")
	}

	queue := notificacion.NewQueue()
	notifStore := notificacion.NewInMemoryStore()
	worker := notificacion.NewWorker(queue, notifStore, notificacion.NewLogChannel(log), m, log, notificacion.WorkerConfig{
		Interval:    cfg.Worker.PollInterval,
		BackoffBase: cfg.Worker.BackoffBase,
		MaxAttempts: cfg.Worker.MaxAttempts,
	})

	engine := solicitud.NewEngine(solicitudes, publisher, worker, m, log, runner)
	actaService := acta.NewService(actaStore, publisher, log, runner)
	bridge := pago.NewBridge(pagos, webhookStore, engine, deduper, publisher, m, log, cfg.Webhook.MaxConcurrency)

	router := httptransport.NewRouter(httptransport.Deps{
		Engine:           engine,
		Actas:            actaService,
		Bridge:           bridge,
		Worker:           worker,
		Notificacion:     notifStore,
		Logger:           log,
		JWTValidator:     middleware.NewHMACValidator(cfg.Server.JWTSigningKey),
		WebhookTokenHash: cfg.Webhook.TokenHash,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	// Webhooks acknowledged before a previous shutdown still need
	// reconciling.
	if err := bridge.Recover(ctx); err != nil {
		log.Warn("webhook recovery sweep failed", "error", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
