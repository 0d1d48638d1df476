package pago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

//go:generate mockgen -source=bridge.go -destination=mock_engine_test.go -package=pago

// LifecycleEngine is the bridge's port into the request lifecycle.
type LifecycleEngine interface {
	AttemptTransition(ctx context.Context, id domain.SolicitudID, target solicitud.Estado, rol solicitud.Rol, payload solicitud.Payload) (*solicitud.TransitionResult, error)
}

// Reconciliation outcomes reported in metrics.
const (
	outcomeValidado      = "validado"
	outcomeRechazado     = "rechazado"
	outcomeDuplicado     = "duplicado"
	outcomeIgnorado      = "ignorado"
	outcomeSinCorrelar   = "sin_correlacion"
	outcomeInvalido      = "payload_invalido"
	outcomeEngineRechazo = "rechazo_del_motor"
)

// Bridge absorbs gateway webhooks into the request lifecycle. Receipt and
// processing are decoupled: Ingest persists the raw event and the HTTP layer
// acknowledges immediately; Process reconciles asynchronously and never
// surfaces errors to the gateway. Webhooks for the same order number
// serialize; distinct orders reconcile with bounded parallelism.
type Bridge struct {
	pagos    Store
	webhooks WebhookStore
	engine   LifecycleEngine
	deduper  Deduper
	audit    *auditoria.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	sem        chan struct{}
	ordenLocks [32]sync.Mutex
	now        func() time.Time
}

func NewBridge(pagos Store, webhooks WebhookStore, engine LifecycleEngine, deduper Deduper, audit *auditoria.Publisher, m *metrics.Metrics, logger *slog.Logger, maxConcurrency int) *Bridge {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Bridge{
		pagos:    pagos,
		webhooks: webhooks,
		engine:   engine,
		deduper:  deduper,
		audit:    audit,
		metrics:  m,
		logger:   logger,
		sem:      make(chan struct{}, maxConcurrency),
		now:      time.Now,
	}
}

// IniciarPagoInput opens a payment for a request.
type IniciarPagoInput struct {
	SolicitudID domain.SolicitudID
	NumeroOrden string
	MontoCents  int64
	Metodo      Metodo
}

// IniciarPago registers a PENDIENTE payment with its order number. The
// gateway later reports the outcome by webhook carrying that number.
func (b *Bridge) IniciarPago(ctx context.Context, input IniciarPagoInput) (*Pago, error) {
	if input.SolicitudID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "solicitud_id requerido")
	}
	if input.NumeroOrden == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "numero de orden requerido")
	}
	if input.MontoCents <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "monto debe ser positivo")
	}
	if input.Metodo == "" {
		input.Metodo = MetodoTarjeta
	}

	now := b.now()
	p := &Pago{
		ID:                 domain.NewPagoID(),
		SolicitudID:        input.SolicitudID,
		NumeroOrden:        input.NumeroOrden,
		MontoCents:         input.MontoCents,
		Metodo:             input.Metodo,
		Estado:             EstadoPendiente,
		FechaCreacion:      now,
		FechaActualizacion: now,
	}
	if err := b.pagos.Create(ctx, p); err != nil {
		return nil, err
	}
	b.logger.Info("pago iniciado",
		"pago_id", p.ID.String(),
		"solicitud_id", p.SolicitudID.String(),
		"numero_orden", p.NumeroOrden,
	)
	return p, nil
}

// Ingest persists a raw webhook and returns the stored event. The caller
// acknowledges the gateway with the event id before Process runs.
func (b *Bridge) Ingest(ctx context.Context, payload, headers json.RawMessage) (*WebhookEvento, error) {
	if !json.Valid(payload) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cuerpo del webhook no es JSON valido")
	}
	evento := &WebhookEvento{
		ID:             domain.NewWebhookID(),
		Payload:        payload,
		Headers:        headers,
		FechaRecepcion: b.now(),
	}
	if err := b.webhooks.Create(ctx, evento); err != nil {
		return nil, err
	}
	if _, err := b.audit.Record(ctx, auditoria.Entry{
		Entidad:     auditoria.EntidadWebhook,
		EntidadID:   evento.ID.String(),
		Accion:      auditoria.AccionCrear,
		DatosNuevos: auditoria.Snapshot(evento),
	}); err != nil {
		return nil, err
	}
	return evento, nil
}

// Process reconciles one stored webhook. Terminal problems (unknown order,
// invalid payload, engine rejection) are recorded on the event and never
// retried: the gateway will not resend. Safe to call twice for the same id.
func (b *Bridge) Process(ctx context.Context, id domain.WebhookID) error {
	b.sem <- struct{}{}
	defer func() { <-b.sem }()
	return b.process(ctx, id, false)
}

// Reprocess re-runs a webhook on operator request, ignoring the processed
// flag. Idempotency still holds through the payment state check.
func (b *Bridge) Reprocess(ctx context.Context, id domain.WebhookID) error {
	b.sem <- struct{}{}
	defer func() { <-b.sem }()
	return b.process(ctx, id, true)
}

// ListUnprocessed returns pending webhooks for the operator queue.
func (b *Bridge) ListUnprocessed(ctx context.Context, limit int) ([]*WebhookEvento, error) {
	if limit <= 0 {
		limit = 50
	}
	return b.webhooks.ListUnprocessed(ctx, limit)
}

// Recover reconciles webhooks that were acknowledged but never finished,
// typically after a crash between the 202 and processing. Run once at boot.
func (b *Bridge) Recover(ctx context.Context) error {
	pending, err := b.webhooks.ListUnprocessed(ctx, 500)
	if err != nil {
		return fmt.Errorf("list pending webhooks: %w", err)
	}
	for _, evento := range pending {
		if err := b.Process(ctx, evento.ID); err != nil {
			b.logger.Warn("webhook recovery failed",
				"webhook_id", evento.ID.String(), "error", err)
		}
	}
	if len(pending) > 0 {
		b.logger.Info("webhook recovery sweep done", "pendientes", len(pending))
	}
	return nil
}

// GetWebhook returns one stored event.
func (b *Bridge) GetWebhook(ctx context.Context, id domain.WebhookID) (*WebhookEvento, error) {
	return b.webhooks.FindByID(ctx, id)
}

// GetPago returns one payment.
func (b *Bridge) GetPago(ctx context.Context, id domain.PagoID) (*Pago, error) {
	return b.pagos.FindByID(ctx, id)
}

func (b *Bridge) process(ctx context.Context, id domain.WebhookID, force bool) error {
	if !force && b.deduper != nil {
		seen, err := b.deduper.Seen(ctx, id)
		if err != nil {
			// The deduper is only a fast path; fall through to the
			// durable check.
			b.logger.Warn("webhook dedupe check failed", "webhook_id", id.String(), "error", err)
		} else if seen {
			evento, findErr := b.webhooks.FindByID(ctx, id)
			if findErr == nil && evento.Procesado {
				b.metrics.WebhooksProcessed.WithLabelValues(outcomeDuplicado).Inc()
				return nil
			}
		}
	}

	evento, err := b.webhooks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if evento.Procesado && !force {
		b.metrics.WebhooksProcessed.WithLabelValues(outcomeDuplicado).Inc()
		return nil
	}

	var payload webhookPayload
	if err := json.Unmarshal(evento.Payload, &payload); err != nil || payload.NumeroOrden == "" {
		return b.finish(ctx, id, outcomeInvalido, "payload sin numeroOrden interpretable")
	}

	lock := &b.ordenLocks[hashOrden(payload.NumeroOrden)%uint32(len(b.ordenLocks))]
	lock.Lock()
	defer lock.Unlock()

	p, err := b.pagos.FindByNumeroOrden(ctx, payload.NumeroOrden)
	if errors.Is(err, sentinel.ErrNotFound) {
		return b.finish(ctx, id, outcomeSinCorrelar,
			fmt.Sprintf("numero de orden desconocido: %s", payload.NumeroOrden))
	}
	if err != nil {
		return err
	}

	switch payload.Estado {
	case gatewayAprobado, gatewayPagado:
		return b.reconcileApproval(ctx, id, p, payload)
	case gatewayRechazado:
		return b.reconcileRejection(ctx, id, p)
	default:
		b.logger.Info("webhook con estado desconocido almacenado sin accion",
			"webhook_id", id.String(), "estado", payload.Estado)
		return b.finish(ctx, id, outcomeIgnorado, "")
	}
}

func (b *Bridge) reconcileApproval(ctx context.Context, id domain.WebhookID, p *Pago, payload webhookPayload) error {
	// Durable idempotency: a replay against an already validated payment
	// never reaches the engine and never duplicates an audit entry.
	if p.Estado == EstadoValidado {
		return b.finish(ctx, id, outcomeDuplicado, "")
	}

	now := b.now()
	p.Estado = EstadoValidado
	p.Conciliado = true
	p.FechaConciliacion = &now
	p.TransactionID = payload.TransactionID
	p.FechaActualizacion = now
	if err := b.pagos.Update(ctx, p); err != nil {
		return err
	}

	_, err := b.engine.AttemptTransition(ctx, p.SolicitudID, solicitud.EstadoPagoValidado,
		solicitud.RolSistema, solicitud.Payload{solicitud.DataPagoID: p.ID.String()})
	if err != nil {
		// The payment itself is reconciled; the stuck request surfaces in
		// the stored error for operators, not back to the gateway.
		return b.finish(ctx, id, outcomeEngineRechazo, err.Error())
	}
	return b.finish(ctx, id, outcomeValidado, "")
}

func (b *Bridge) reconcileRejection(ctx context.Context, id domain.WebhookID, p *Pago) error {
	if p.Estado == EstadoRechazado {
		return b.finish(ctx, id, outcomeDuplicado, "")
	}
	now := b.now()
	p.Estado = EstadoRechazado
	p.FechaActualizacion = now
	if err := b.pagos.Update(ctx, p); err != nil {
		return err
	}
	// The request stays parked pending a fresh payment; no lifecycle
	// transition happens on rejection.
	return b.finish(ctx, id, outcomeRechazado, "")
}

func (b *Bridge) finish(ctx context.Context, id domain.WebhookID, outcome, procErr string) error {
	if err := b.webhooks.MarkProcessed(ctx, id, procErr); err != nil {
		return err
	}
	b.metrics.WebhooksProcessed.WithLabelValues(outcome).Inc()
	if procErr != "" {
		b.logger.Warn("webhook cerrado con error terminal",
			"webhook_id", id.String(), "resultado", outcome, "error", procErr)
	} else {
		b.logger.Info("webhook procesado",
			"webhook_id", id.String(), "resultado", outcome)
	}
	return nil
}

func hashOrden(orden string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(orden))
	return h.Sum32()
}
