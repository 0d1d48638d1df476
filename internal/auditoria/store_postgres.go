package auditoria

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	txcontext "github.com/dewauriarte/SIGCERH-sub005/pkg/platform/tx"
)

// PostgresStore writes audit entries to the auditoria table. It participates
// in the engine's transaction when one is carried in the context, so a state
// write without its audit entry cannot be observed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO auditoria (
			id, entidad, entidad_id, accion, usuario_id,
			datos_anteriores, datos_nuevos, ip, user_agent, dispositivo, fecha
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var usuarioID any
	if entry.UsuarioID != nil {
		usuarioID = entry.UsuarioID.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		entry.Entidad,
		entry.EntidadID,
		string(entry.Accion),
		usuarioID,
		nullableJSON(entry.DatosAnteriores),
		nullableJSON(entry.DatosNuevos),
		nullable(entry.IP),
		nullable(entry.UserAgent),
		nullable(entry.Dispositivo),
		entry.Fecha,
	)
	if err != nil {
		return fmt.Errorf("insert auditoria entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntidad(ctx context.Context, entidad, entidadID string) ([]Entry, error) {
	query := `
		SELECT id, entidad, entidad_id, accion, usuario_id,
		       datos_anteriores, datos_nuevos, ip, user_agent, dispositivo, fecha
		FROM auditoria
		WHERE entidad = $1 AND entidad_id = $2
		ORDER BY fecha ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entidad, entidadID)
	if err != nil {
		return nil, fmt.Errorf("query auditoria: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry               Entry
			usuarioID           sql.NullString
			anteriores, nuevos  []byte
			ip, ua, dispositivo sql.NullString
		)
		if err := rows.Scan(
			&entry.ID, &entry.Entidad, &entry.EntidadID, &entry.Accion, &usuarioID,
			&anteriores, &nuevos, &ip, &ua, &dispositivo, &entry.Fecha,
		); err != nil {
			return nil, fmt.Errorf("scan auditoria row: %w", err)
		}
		if usuarioID.Valid {
			parsed, err := domain.ParseUsuarioID(usuarioID.String)
			if err != nil {
				return nil, fmt.Errorf("parse usuario id: %w", err)
			}
			entry.UsuarioID = &parsed
		}
		entry.DatosAnteriores = anteriores
		entry.DatosNuevos = nuevos
		entry.IP = ip.String
		entry.UserAgent = ua.String
		entry.Dispositivo = dispositivo.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
