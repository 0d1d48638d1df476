package pago

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/logger"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

// BridgeSuite wires the bridge against the real lifecycle engine so
// reconciliation is tested end to end: webhook in, request state and audit
// trail out.
type BridgeSuite struct {
	suite.Suite
	ctx         context.Context
	pagos       *InMemoryStore
	webhooks    *InMemoryWebhookStore
	solicitudes *solicitud.InMemoryStore
	auditStore  *auditoria.InMemoryStore
	bridge      *Bridge
	engine      *solicitud.Engine
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) SetupTest() {
	s.ctx = context.Background()
	s.pagos = NewInMemoryStore()
	s.webhooks = NewInMemoryWebhookStore()
	s.solicitudes = solicitud.NewInMemoryStore()
	s.auditStore = auditoria.NewInMemoryStore()

	publisher := auditoria.NewPublisher(s.auditStore, nil, logger.Discard())
	s.engine = solicitud.NewEngine(s.solicitudes, publisher, nil, metrics.NewForTest(), logger.Discard(), nil)
	s.bridge = NewBridge(s.pagos, s.webhooks, s.engine, NewMemoryDeduper(), publisher, metrics.NewForTest(), logger.Discard(), 2)
}

// pendingPayment creates a request parked in ACTA_ENCONTRADA_PENDIENTE_PAGO
// with an open payment on the given order number.
func (s *BridgeSuite) pendingPayment(numeroOrden string) (*solicitud.Solicitud, *Pago) {
	sol, err := s.engine.Create(s.ctx, solicitud.CreateInput{
		NumeroExpediente: "EXP-" + numeroOrden,
		Estudiante:       "Rosa Condori",
	})
	s.Require().NoError(err)
	sol.Estado = solicitud.EstadoActaEncontradaPendientePago
	s.Require().NoError(s.solicitudes.Update(s.ctx, sol))

	p, err := s.bridge.IniciarPago(s.ctx, IniciarPagoInput{
		SolicitudID: sol.ID,
		NumeroOrden: numeroOrden,
		MontoCents:  2500,
		Metodo:      MetodoYape,
	})
	s.Require().NoError(err)
	return sol, p
}

func (s *BridgeSuite) ingest(payload string) *WebhookEvento {
	evento, err := s.bridge.Ingest(s.ctx, json.RawMessage(payload), nil)
	s.Require().NoError(err)
	return evento
}

func (s *BridgeSuite) solicitudAuditLen(sol *solicitud.Solicitud) int {
	trail, err := s.auditStore.ListByEntidad(s.ctx, auditoria.EntidadSolicitud, sol.ID.String())
	s.Require().NoError(err)
	return len(trail)
}

func (s *BridgeSuite) TestIngest() {
	s.Run("stores the raw event and audits receipt", func() {
		evento := s.ingest(`{"evento":"pago.confirmado","estado":"APROBADO","numeroOrden":"ORD-1","extra":{"x":1}}`)
		s.False(evento.Procesado)
		s.False(evento.FechaRecepcion.IsZero())

		stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
		s.Require().NoError(err)
		s.JSONEq(`{"evento":"pago.confirmado","estado":"APROBADO","numeroOrden":"ORD-1","extra":{"x":1}}`, string(stored.Payload))

		trail, err := s.auditStore.ListByEntidad(s.ctx, auditoria.EntidadWebhook, evento.ID.String())
		s.Require().NoError(err)
		s.Len(trail, 1)
	})

	s.Run("rejects a body that is not JSON", func() {
		_, err := s.bridge.Ingest(s.ctx, json.RawMessage("no-json"), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

// TestApprovalReconciliation is the core flow: an APROBADO webhook validates
// the payment and drives the request to PAGO_VALIDADO as SISTEMA, producing
// one VALIDAR audit entry.
func (s *BridgeSuite) TestApprovalReconciliation() {
	sol, p := s.pendingPayment("ORD-2025-001")
	evento := s.ingest(`{"evento":"pago.confirmado","estado":"APROBADO","numeroOrden":"ORD-2025-001","transactionId":"TX-99"}`)

	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	pago, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoValidado, pago.Estado)
	s.True(pago.Conciliado)
	s.NotNil(pago.FechaConciliacion)
	s.Equal("TX-99", pago.TransactionID)

	request, err := s.solicitudes.FindByID(s.ctx, sol.ID)
	s.Require().NoError(err)
	s.Equal(solicitud.EstadoPagoValidado, request.Estado)
	s.Require().NotNil(request.PagoID)
	s.Equal(p.ID, *request.PagoID)

	trail, err := s.auditStore.ListByEntidad(s.ctx, auditoria.EntidadSolicitud, sol.ID.String())
	s.Require().NoError(err)
	last := trail[len(trail)-1]
	s.Equal(auditoria.AccionValidar, last.Accion)
	s.Nil(last.UsuarioID) // system action

	stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.Empty(stored.ErrorProceso)
}

// TestIdempotentReplay processes the same webhook twice and a second webhook
// for the same order: no double-advance, no duplicate audit entries.
func (s *BridgeSuite) TestIdempotentReplay() {
	sol, _ := s.pendingPayment("ORD-2025-002")
	evento := s.ingest(`{"estado":"PAGADO","numeroOrden":"ORD-2025-002"}`)

	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))
	auditAfterFirst := s.solicitudAuditLen(sol)

	s.Run("same webhook id replayed", func() {
		s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))
		s.Equal(auditAfterFirst, s.solicitudAuditLen(sol))
	})

	s.Run("fresh webhook for the same order", func() {
		replay := s.ingest(`{"estado":"APROBADO","numeroOrden":"ORD-2025-002"}`)
		s.Require().NoError(s.bridge.Process(s.ctx, replay.ID))
		s.Equal(auditAfterFirst, s.solicitudAuditLen(sol))

		stored, err := s.webhooks.FindByID(s.ctx, replay.ID)
		s.Require().NoError(err)
		s.True(stored.Procesado)
		s.Empty(stored.ErrorProceso)
	})

	s.Run("operator reprocess is also a no-op", func() {
		s.Require().NoError(s.bridge.Reprocess(s.ctx, evento.ID))
		s.Equal(auditAfterFirst, s.solicitudAuditLen(sol))
	})

	request, err := s.solicitudes.FindByID(s.ctx, sol.ID)
	s.Require().NoError(err)
	s.Equal(solicitud.EstadoPagoValidado, request.Estado)
}

// TestRejectionParksTheRequest verifies RECHAZADO closes the payment without
// touching the request state.
func (s *BridgeSuite) TestRejectionParksTheRequest() {
	sol, p := s.pendingPayment("ORD-2025-003")
	evento := s.ingest(`{"estado":"RECHAZADO","numeroOrden":"ORD-2025-003"}`)

	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	pago, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoRechazado, pago.Estado)
	s.False(pago.Conciliado)

	request, err := s.solicitudes.FindByID(s.ctx, sol.ID)
	s.Require().NoError(err)
	s.Equal(solicitud.EstadoActaEncontradaPendientePago, request.Estado)
}

// TestCorrelationNotFound verifies an unknown order number is a terminal
// processing error, never retried.
func (s *BridgeSuite) TestCorrelationNotFound() {
	evento := s.ingest(`{"estado":"APROBADO","numeroOrden":"ORD-INEXISTENTE"}`)

	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.Contains(stored.ErrorProceso, "ORD-INEXISTENTE")

	pending, err := s.bridge.ListUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

// TestUnknownEstado verifies an unrecognized gateway estado is stored and
// closed without any side effect.
func (s *BridgeSuite) TestUnknownEstado() {
	sol, p := s.pendingPayment("ORD-2025-004")
	evento := s.ingest(`{"estado":"EN_DISPUTA","numeroOrden":"ORD-2025-004"}`)

	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	pago, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoPendiente, pago.Estado)
	request, err := s.solicitudes.FindByID(s.ctx, sol.ID)
	s.Require().NoError(err)
	s.Equal(solicitud.EstadoActaEncontradaPendientePago, request.Estado)

	stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.Empty(stored.ErrorProceso)
}

// TestPayloadWithoutOrder verifies a payload missing numeroOrden closes
// terminally.
func (s *BridgeSuite) TestPayloadWithoutOrder() {
	evento := s.ingest(`{"estado":"APROBADO"}`)
	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.NotEmpty(stored.ErrorProceso)
}

func (s *BridgeSuite) TestIniciarPagoValidation() {
	_, err := s.bridge.IniciarPago(s.ctx, IniciarPagoInput{NumeroOrden: "ORD-X", MontoCents: 100})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.bridge.IniciarPago(s.ctx, IniciarPagoInput{SolicitudID: domain.NewSolicitudID(), MontoCents: 100})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.bridge.IniciarPago(s.ctx, IniciarPagoInput{SolicitudID: domain.NewSolicitudID(), NumeroOrden: "ORD-X", MontoCents: -5})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// EngineRejectionSuite isolates the bridge from the real engine with a mock
// to pin down how lifecycle rejections are recorded.
type EngineRejectionSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	mock     *MockLifecycleEngine
	pagos    *InMemoryStore
	webhooks *InMemoryWebhookStore
	bridge   *Bridge
}

func TestEngineRejectionSuite(t *testing.T) {
	suite.Run(t, new(EngineRejectionSuite))
}

func (s *EngineRejectionSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mock = NewMockLifecycleEngine(s.ctrl)
	s.pagos = NewInMemoryStore()
	s.webhooks = NewInMemoryWebhookStore()
	auditStore := auditoria.NewInMemoryStore()
	publisher := auditoria.NewPublisher(auditStore, nil, logger.Discard())
	s.bridge = NewBridge(s.pagos, s.webhooks, s.mock, NewMemoryDeduper(), publisher, metrics.NewForTest(), logger.Discard(), 1)
}

// TestEngineRejectionStoredOnEvent verifies an engine rejection lands on the
// webhook as its processing error while the payment stays reconciled, and
// nothing is raised to the caller.
func (s *EngineRejectionSuite) TestEngineRejectionStoredOnEvent() {
	solicitudID := domain.NewSolicitudID()
	p := &Pago{
		ID:          domain.NewPagoID(),
		SolicitudID: solicitudID,
		NumeroOrden: "ORD-ATASCADA",
		MontoCents:  2500,
		Estado:      EstadoPendiente,
	}
	s.Require().NoError(s.pagos.Create(s.ctx, p))

	rejection := dErrors.Newf(dErrors.CodeIllegalTransition,
		"transicion no permitida de %q a %q", solicitud.EstadoEnBusqueda, solicitud.EstadoPagoValidado)
	s.mock.EXPECT().
		AttemptTransition(gomock.Any(), solicitudID, solicitud.EstadoPagoValidado, solicitud.RolSistema, gomock.Any()).
		Return(nil, rejection)

	evento, err := s.bridge.Ingest(s.ctx, json.RawMessage(`{"estado":"APROBADO","numeroOrden":"ORD-ATASCADA"}`), nil)
	s.Require().NoError(err)
	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	stored, err := s.webhooks.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.Contains(stored.ErrorProceso, "transicion no permitida")

	pago, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoValidado, pago.Estado)
}

// TestNoEngineCallOnRejectionEstado verifies RECHAZADO never reaches the
// engine (the mock would fail on an unexpected call).
func (s *EngineRejectionSuite) TestNoEngineCallOnRejectionEstado() {
	p := &Pago{
		ID:          domain.NewPagoID(),
		SolicitudID: domain.NewSolicitudID(),
		NumeroOrden: fmt.Sprintf("ORD-%d", 77),
		MontoCents:  1000,
		Estado:      EstadoPendiente,
	}
	s.Require().NoError(s.pagos.Create(s.ctx, p))

	evento, err := s.bridge.Ingest(s.ctx, json.RawMessage(`{"estado":"RECHAZADO","numeroOrden":"ORD-77"}`), nil)
	s.Require().NoError(err)
	s.Require().NoError(s.bridge.Process(s.ctx, evento.ID))

	pago, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoRechazado, pago.Estado)
}
