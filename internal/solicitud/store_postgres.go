package solicitud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
	txcontext "github.com/dewauriarte/SIGCERH-sub005/pkg/platform/tx"
)

// PostgresStore persists solicitudes. Writes issued inside an engine
// transaction go through the *sql.Tx carried in the context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const solicitudColumns = `
	id, numero_expediente, estudiante, estado, modalidad, prioridad,
	acta_id, pago_id, fecha_solicitud, fecha_derivacion, fecha_validacion_pago,
	fecha_emision, fecha_entrega, fecha_rechazo, motivo_rechazo, fecha_actualizacion
`

func (s *PostgresStore) Create(ctx context.Context, solicitud *Solicitud) error {
	query := `
		INSERT INTO solicitud (` + solicitudColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, s.args(solicitud)...)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert solicitud: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.SolicitudID) (*Solicitud, error) {
	query := `SELECT ` + solicitudColumns + ` FROM solicitud WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	return scanSolicitud(row)
}

func (s *PostgresStore) Update(ctx context.Context, solicitud *Solicitud) error {
	query := `
		UPDATE solicitud SET
			estado = $2, acta_id = $3, pago_id = $4,
			fecha_derivacion = $5, fecha_validacion_pago = $6, fecha_emision = $7,
			fecha_entrega = $8, fecha_rechazo = $9, motivo_rechazo = $10,
			fecha_actualizacion = $11
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(solicitud.ID),
		string(solicitud.Estado),
		nullableID(actaUUID(solicitud.ActaID)),
		nullableID(pagoUUID(solicitud.PagoID)),
		solicitud.FechaDerivacion,
		solicitud.FechaValidacionPago,
		solicitud.FechaEmision,
		solicitud.FechaEntrega,
		solicitud.FechaRechazo,
		nullableString(solicitud.MotivoRechazo),
		solicitud.FechaActualizacion,
	)
	if err != nil {
		return fmt.Errorf("update solicitud: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update solicitud rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByEstado(ctx context.Context, estado Estado) ([]*Solicitud, error) {
	query := `SELECT ` + solicitudColumns + ` FROM solicitud WHERE estado = $1 ORDER BY fecha_solicitud ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(estado))
	if err != nil {
		return nil, fmt.Errorf("query solicitudes: %w", err)
	}
	defer rows.Close()

	var out []*Solicitud
	for rows.Next() {
		solicitud, err := scanSolicitud(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, solicitud)
	}
	return out, rows.Err()
}

func (s *PostgresStore) args(solicitud *Solicitud) []any {
	return []any{
		uuid.UUID(solicitud.ID),
		solicitud.NumeroExpediente,
		solicitud.Estudiante,
		string(solicitud.Estado),
		string(solicitud.Modalidad),
		string(solicitud.Prioridad),
		nullableID(actaUUID(solicitud.ActaID)),
		nullableID(pagoUUID(solicitud.PagoID)),
		solicitud.FechaSolicitud,
		solicitud.FechaDerivacion,
		solicitud.FechaValidacionPago,
		solicitud.FechaEmision,
		solicitud.FechaEntrega,
		solicitud.FechaRechazo,
		nullableString(solicitud.MotivoRechazo),
		solicitud.FechaActualizacion,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolicitud(row rowScanner) (*Solicitud, error) {
	var (
		solicitud     Solicitud
		id            uuid.UUID
		actaID        uuid.NullUUID
		pagoID        uuid.NullUUID
		estado        string
		modalidad     string
		prioridad     string
		motivoRechazo sql.NullString
		derivacion    sql.NullTime
		validacion    sql.NullTime
		emision       sql.NullTime
		entrega       sql.NullTime
		rechazo       sql.NullTime
	)
	err := row.Scan(
		&id, &solicitud.NumeroExpediente, &solicitud.Estudiante, &estado,
		&modalidad, &prioridad, &actaID, &pagoID,
		&solicitud.FechaSolicitud, &derivacion, &validacion,
		&emision, &entrega, &rechazo, &motivoRechazo, &solicitud.FechaActualizacion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan solicitud: %w", err)
	}
	solicitud.ID = domain.SolicitudID(id)
	solicitud.Estado = Estado(estado)
	solicitud.Modalidad = Modalidad(modalidad)
	solicitud.Prioridad = Prioridad(prioridad)
	if actaID.Valid {
		parsed := domain.ActaID(actaID.UUID)
		solicitud.ActaID = &parsed
	}
	if pagoID.Valid {
		parsed := domain.PagoID(pagoID.UUID)
		solicitud.PagoID = &parsed
	}
	solicitud.MotivoRechazo = motivoRechazo.String
	solicitud.FechaDerivacion = timePtr(derivacion)
	solicitud.FechaValidacionPago = timePtr(validacion)
	solicitud.FechaEmision = timePtr(emision)
	solicitud.FechaEntrega = timePtr(entrega)
	solicitud.FechaRechazo = timePtr(rechazo)
	return &solicitud, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func actaUUID(id *domain.ActaID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}

func pagoUUID(id *domain.PagoID) *uuid.UUID {
	if id == nil {
		return nil
	}
	u := uuid.UUID(*id)
	return &u
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
