//go:build integration

package pago

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	pg       *containers.PostgresContainer
	pagos    *PostgresStore
	webhooks *PostgresWebhookStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.pagos = NewPostgres(s.pg.DB)
	s.webhooks = NewPostgresWebhookStore(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "webhook_pago", "pago", "solicitud"))
}

func (s *PostgresStoreSuite) seedSolicitud() domain.SolicitudID {
	id := domain.NewSolicitudID()
	_, err := s.pg.DB.ExecContext(s.ctx, `
		INSERT INTO solicitud (
			id, numero_expediente, estudiante, estado, modalidad, prioridad,
			fecha_solicitud, fecha_actualizacion
		) VALUES ($1, $2, 'Rosa Quispe', 'ACTA_ENCONTRADA_PENDIENTE_PAGO', 'DIGITAL', 'NORMAL', now(), now())
	`, uuid.UUID(id), "EXP-"+id.String()[:8])
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) newPago(orden string) *Pago {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Pago{
		ID:                 domain.NewPagoID(),
		SolicitudID:        s.seedSolicitud(),
		NumeroOrden:        orden,
		MontoCents:         3500,
		Metodo:             MetodoYape,
		Estado:             EstadoPendiente,
		FechaCreacion:      now,
		FechaActualizacion: now,
	}
}

func (s *PostgresStoreSuite) TestPagoRoundTrip() {
	p := s.newPago("ORD-2026-001")
	s.Require().NoError(s.pagos.Create(s.ctx, p))

	stored, err := s.pagos.FindByNumeroOrden(s.ctx, "ORD-2026-001")
	s.Require().NoError(err)
	s.Equal(p.ID, stored.ID)
	s.Equal(EstadoPendiente, stored.Estado)
	s.False(stored.Conciliado)
	s.Empty(stored.TransactionID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	stored.Estado = EstadoValidado
	stored.Conciliado = true
	stored.FechaConciliacion = &now
	stored.TransactionID = "TXN-998"
	stored.FechaActualizacion = now
	s.Require().NoError(s.pagos.Update(s.ctx, stored))

	again, err := s.pagos.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(EstadoValidado, again.Estado)
	s.True(again.Conciliado)
	s.Equal("TXN-998", again.TransactionID)
	s.Require().NotNil(again.FechaConciliacion)
	s.WithinDuration(now, *again.FechaConciliacion, time.Millisecond)
}

func (s *PostgresStoreSuite) TestDuplicateOrden() {
	s.Require().NoError(s.pagos.Create(s.ctx, s.newPago("ORD-2026-002")))
	err := s.pagos.Create(s.ctx, s.newPago("ORD-2026-002"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknownOrden() {
	_, err := s.pagos.FindByNumeroOrden(s.ctx, "ORD-NADA")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestWebhookLifecycle() {
	e := &WebhookEvento{
		ID:             domain.NewWebhookID(),
		Payload:        json.RawMessage(`{"estado":"APROBADO","numeroOrden":"ORD-1"}`),
		Headers:        json.RawMessage(`{"User-Agent":["pasarela/1.0"]}`),
		FechaRecepcion: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.webhooks.Create(s.ctx, e))

	stored, err := s.webhooks.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.JSONEq(string(e.Payload), string(stored.Payload))
	s.False(stored.Procesado)
	s.Nil(stored.FechaProceso)

	pending, err := s.webhooks.ListUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(e.ID, pending[0].ID)

	s.Require().NoError(s.webhooks.MarkProcessed(s.ctx, e.ID, "orden no encontrada: ORD-1"))

	stored, err = s.webhooks.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.True(stored.Procesado)
	s.Equal("orden no encontrada: ORD-1", stored.ErrorProceso)
	s.NotNil(stored.FechaProceso)

	pending, err = s.webhooks.ListUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
