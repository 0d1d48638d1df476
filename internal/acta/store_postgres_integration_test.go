//go:build integration

package acta

import (
	"context"
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
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
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
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "acta_fisica", "solicitud"))
}

// seedSolicitud satisfies the foreign key without pulling in the solicitud
// package.
func (s *PostgresStoreSuite) seedSolicitud() domain.SolicitudID {
	id := domain.NewSolicitudID()
	_, err := s.pg.DB.ExecContext(s.ctx, `
		INSERT INTO solicitud (
			id, numero_expediente, estudiante, estado, modalidad, prioridad,
			fecha_solicitud, fecha_actualizacion
		) VALUES ($1, $2, 'Rosa Quispe', 'EN_BUSQUEDA', 'DIGITAL', 'NORMAL', now(), now())
	`, uuid.UUID(id), "EXP-"+id.String()[:8])
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) newActa(solicitudID domain.SolicitudID) *Acta {
	return &Acta{
		ID:            domain.NewActaID(),
		SolicitudID:   solicitudID,
		Libro:         "LIBRO-07",
		Folio:         "112",
		Anio:          1987,
		Institucion:   "IE Jose Olaya",
		Estado:        EstadoDisponible,
		FechaCreacion: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	a := s.newActa(s.seedSolicitud())
	s.Require().NoError(s.store.Create(s.ctx, a))

	stored, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.ID, stored.ID)
	s.Equal(EstadoDisponible, stored.Estado)
	s.Nil(stored.AsignadoA)
	s.Nil(stored.FechaAsignacion)
	s.Empty(stored.Observaciones)

	bySolicitud, err := s.store.FindBySolicitud(s.ctx, a.SolicitudID)
	s.Require().NoError(err)
	s.Equal(a.ID, bySolicitud.ID)
}

func (s *PostgresStoreSuite) TestOneActaPerSolicitud() {
	solicitudID := s.seedSolicitud()
	s.Require().NoError(s.store.Create(s.ctx, s.newActa(solicitudID)))

	err := s.store.Create(s.ctx, s.newActa(solicitudID))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateSearchResult() {
	a := s.newActa(s.seedSolicitud())
	s.Require().NoError(s.store.Create(s.ctx, a))

	editor := domain.NewUsuarioID()
	now := time.Now().UTC().Truncate(time.Microsecond)
	a.Estado = EstadoNoEncontrada
	a.AsignadoA = &editor
	a.Observaciones = "libro danado por humedad"
	a.FechaAsignacion = &now
	a.FechaResultado = &now
	s.Require().NoError(s.store.Update(s.ctx, a))

	stored, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(EstadoNoEncontrada, stored.Estado)
	s.Require().NotNil(stored.AsignadoA)
	s.Equal(editor, *stored.AsignadoA)
	s.Equal("libro danado por humedad", stored.Observaciones)
	s.Require().NotNil(stored.FechaResultado)
	s.WithinDuration(now, *stored.FechaResultado, time.Millisecond)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(s.ctx, domain.NewActaID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindBySolicitud(s.ctx, domain.NewSolicitudID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByEstado() {
	a := s.newActa(s.seedSolicitud())
	s.Require().NoError(s.store.Create(s.ctx, a))
	b := s.newActa(s.seedSolicitud())
	b.Estado = EstadoEncontrada
	s.Require().NoError(s.store.Create(s.ctx, b))

	disponibles, err := s.store.ListByEstado(s.ctx, EstadoDisponible)
	s.Require().NoError(err)
	s.Require().Len(disponibles, 1)
	s.Equal(a.ID, disponibles[0].ID)
}
