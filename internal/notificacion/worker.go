package notificacion

import (
	"context"
	"log/slog"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
)

// Worker drains the priority queue and delivers events over the configured
// channel. Failed deliveries are retried with exponential backoff; once the
// attempt ceiling is hit the event is marked FALLIDA and left in the store
// for operator review.
type Worker struct {
	queue       *Queue
	store       Store
	channel     Channel
	metrics     *metrics.Metrics
	logger      *slog.Logger
	interval    time.Duration
	backoffBase time.Duration
	maxAttempts int

	now func() time.Time
}

type WorkerConfig struct {
	Interval    time.Duration
	BackoffBase time.Duration
	MaxAttempts int
}

func NewWorker(queue *Queue, store Store, channel Channel, m *metrics.Metrics, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Worker{
		queue:       queue,
		store:       store,
		channel:     channel,
		metrics:     m,
		logger:      logger,
		interval:    cfg.Interval,
		backoffBase: cfg.BackoffBase,
		maxAttempts: cfg.MaxAttempts,
		now:         time.Now,
	}
}

// Enqueue persists the event and makes it eligible for delivery.
func (w *Worker) Enqueue(ctx context.Context, evento *Evento) error {
	evento.Estado = EstadoPendiente
	if evento.FechaEncolado.IsZero() {
		evento.FechaEncolado = w.now()
	}
	if err := w.store.Save(ctx, evento); err != nil {
		return err
	}
	clone := *evento
	w.queue.Push(&clone)
	w.metrics.NotificationQueueSize.Set(float64(w.queue.Len()))
	return nil
}

// Reenviar re-queues a permanently failed event after operator review. The
// attempt counter restarts so the event gets a full retry budget again.
func (w *Worker) Reenviar(ctx context.Context, evento *Evento) error {
	evento.Estado = EstadoReenviada
	evento.Intentos = 0
	evento.ProximoIntento = time.Time{}
	evento.UltimoError = ""
	if err := w.store.Update(ctx, evento); err != nil {
		return err
	}
	clone := *evento
	w.queue.Push(&clone)
	w.metrics.NotificationQueueSize.Set(float64(w.queue.Len()))
	return nil
}

// Run drains the queue on a fixed interval until the context is cancelled.
// The event being delivered when cancellation arrives is finished first.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.DrainDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.DrainDue(ctx)
		}
	}
}

// DrainDue delivers every currently eligible event, best first.
func (w *Worker) DrainDue(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		evento := w.queue.PopDue(w.now())
		if evento == nil {
			w.metrics.NotificationQueueSize.Set(float64(w.queue.Len()))
			return
		}
		w.deliver(ctx, evento)
		w.metrics.NotificationQueueSize.Set(float64(w.queue.Len()))
	}
}

func (w *Worker) deliver(ctx context.Context, evento *Evento) {
	evento.Intentos++
	err := w.channel.Send(ctx, evento)
	if err == nil {
		evento.Estado = EstadoEnviada
		evento.UltimoError = ""
		if updateErr := w.store.Update(ctx, evento); updateErr != nil {
			w.logger.Error("notification state update failed",
				"notificacion_id", evento.ID.String(), "error", updateErr)
		}
		w.metrics.NotificationsSent.Inc()
		return
	}

	evento.UltimoError = err.Error()
	if evento.Intentos >= w.maxAttempts {
		evento.Estado = EstadoFallida
		if updateErr := w.store.Update(ctx, evento); updateErr != nil {
			w.logger.Error("notification state update failed",
				"notificacion_id", evento.ID.String(), "error", updateErr)
		}
		w.metrics.NotificationsFailed.Inc()
		w.logger.Warn("notification permanently failed",
			"notificacion_id", evento.ID.String(),
			"tipo", string(evento.Tipo),
			"intentos", evento.Intentos,
			"error", err,
		)
		return
	}

	// Exponential backoff: base doubles with each failed attempt.
	delay := w.backoffBase << (evento.Intentos - 1)
	evento.ProximoIntento = w.now().Add(delay)
	if updateErr := w.store.Update(ctx, evento); updateErr != nil {
		w.logger.Error("notification state update failed",
			"notificacion_id", evento.ID.String(), "error", updateErr)
	}
	w.queue.Push(evento)
	w.logger.Info("notification delivery retry scheduled",
		"notificacion_id", evento.ID.String(),
		"intentos", evento.Intentos,
		"proximo_intento", evento.ProximoIntento,
		"error", err,
	)
}
