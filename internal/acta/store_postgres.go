package acta

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

// PostgresStore persists actas. Writes issued inside a service transaction go
// through the *sql.Tx carried in the context.
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

const actaColumns = `
	id, solicitud_id, libro, folio, anio, institucion, ubicacion, estado,
	asignado_a, observaciones, fecha_creacion, fecha_asignacion, fecha_resultado
`

func (s *PostgresStore) Create(ctx context.Context, a *Acta) error {
	query := `
		INSERT INTO acta_fisica (` + actaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.SolicitudID),
		a.Libro,
		a.Folio,
		a.Anio,
		a.Institucion,
		a.Ubicacion,
		string(a.Estado),
		nullableUsuario(a.AsignadoA),
		nullableString(a.Observaciones),
		a.FechaCreacion,
		a.FechaAsignacion,
		a.FechaResultado,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert acta: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ActaID) (*Acta, error) {
	query := `SELECT ` + actaColumns + ` FROM acta_fisica WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	return scanActa(row)
}

func (s *PostgresStore) FindBySolicitud(ctx context.Context, solicitudID domain.SolicitudID) (*Acta, error) {
	query := `SELECT ` + actaColumns + ` FROM acta_fisica WHERE solicitud_id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(solicitudID))
	return scanActa(row)
}

func (s *PostgresStore) Update(ctx context.Context, a *Acta) error {
	query := `
		UPDATE acta_fisica SET
			estado = $2, ubicacion = $3, asignado_a = $4, observaciones = $5,
			fecha_asignacion = $6, fecha_resultado = $7
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		string(a.Estado),
		a.Ubicacion,
		nullableUsuario(a.AsignadoA),
		nullableString(a.Observaciones),
		a.FechaAsignacion,
		a.FechaResultado,
	)
	if err != nil {
		return fmt.Errorf("update acta: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update acta rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByEstado(ctx context.Context, estado Estado) ([]*Acta, error) {
	query := `SELECT ` + actaColumns + ` FROM acta_fisica WHERE estado = $1 ORDER BY fecha_creacion ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(estado))
	if err != nil {
		return nil, fmt.Errorf("query actas: %w", err)
	}
	defer rows.Close()

	var out []*Acta
	for rows.Next() {
		a, err := scanActa(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActa(row rowScanner) (*Acta, error) {
	var (
		a             Acta
		id            uuid.UUID
		solicitudID   uuid.UUID
		estado        string
		asignadoA     uuid.NullUUID
		observaciones sql.NullString
		asignacion    sql.NullTime
		resultado     sql.NullTime
	)
	err := row.Scan(
		&id, &solicitudID, &a.Libro, &a.Folio, &a.Anio, &a.Institucion,
		&a.Ubicacion, &estado, &asignadoA, &observaciones,
		&a.FechaCreacion, &asignacion, &resultado,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan acta: %w", err)
	}
	a.ID = domain.ActaID(id)
	a.SolicitudID = domain.SolicitudID(solicitudID)
	a.Estado = Estado(estado)
	if asignadoA.Valid {
		parsed := domain.UsuarioID(asignadoA.UUID)
		a.AsignadoA = &parsed
	}
	a.Observaciones = observaciones.String
	a.FechaAsignacion = timePtr(asignacion)
	a.FechaResultado = timePtr(resultado)
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullableUsuario(id *domain.UsuarioID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
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
