package pago

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

// PostgresStore persists payments.
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

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return sqlTx
	}
	return db
}

const pagoColumns = `
	id, solicitud_id, numero_orden, monto_cents, metodo, estado,
	conciliado, fecha_conciliacion, transaction_id, fecha_creacion, fecha_actualizacion
`

func (s *PostgresStore) Create(ctx context.Context, p *Pago) error {
	query := `
		INSERT INTO pago (` + pagoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.SolicitudID),
		p.NumeroOrden,
		p.MontoCents,
		string(p.Metodo),
		string(p.Estado),
		p.Conciliado,
		p.FechaConciliacion,
		nullableString(p.TransactionID),
		p.FechaCreacion,
		p.FechaActualizacion,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert pago: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PagoID) (*Pago, error) {
	query := `SELECT ` + pagoColumns + ` FROM pago WHERE id = $1`
	return scanPago(execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *PostgresStore) FindByNumeroOrden(ctx context.Context, numeroOrden string) (*Pago, error) {
	query := `SELECT ` + pagoColumns + ` FROM pago WHERE numero_orden = $1`
	return scanPago(execer(ctx, s.db).QueryRowContext(ctx, query, numeroOrden))
}

func (s *PostgresStore) Update(ctx context.Context, p *Pago) error {
	query := `
		UPDATE pago SET
			estado = $2, conciliado = $3, fecha_conciliacion = $4,
			transaction_id = $5, fecha_actualizacion = $6
		WHERE id = $1
	`
	result, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		string(p.Estado),
		p.Conciliado,
		p.FechaConciliacion,
		nullableString(p.TransactionID),
		p.FechaActualizacion,
	)
	if err != nil {
		return fmt.Errorf("update pago: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pago rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPago(row rowScanner) (*Pago, error) {
	var (
		p             Pago
		id            uuid.UUID
		solicitudID   uuid.UUID
		metodo        string
		estado        string
		conciliacion  sql.NullTime
		transactionID sql.NullString
	)
	err := row.Scan(
		&id, &solicitudID, &p.NumeroOrden, &p.MontoCents, &metodo, &estado,
		&p.Conciliado, &conciliacion, &transactionID, &p.FechaCreacion, &p.FechaActualizacion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pago: %w", err)
	}
	p.ID = domain.PagoID(id)
	p.SolicitudID = domain.SolicitudID(solicitudID)
	p.Metodo = Metodo(metodo)
	p.Estado = Estado(estado)
	p.TransactionID = transactionID.String
	p.FechaConciliacion = timePtr(conciliacion)
	return &p, nil
}

// PostgresWebhookStore persists received gateway events.
type PostgresWebhookStore struct {
	db *sql.DB
}

func NewPostgresWebhookStore(db *sql.DB) *PostgresWebhookStore {
	return &PostgresWebhookStore{db: db}
}

const webhookColumns = `
	id, payload, headers, procesado, error_proceso, fecha_recepcion, fecha_proceso
`

func (s *PostgresWebhookStore) Create(ctx context.Context, e *WebhookEvento) error {
	query := `
		INSERT INTO webhook_pago (` + webhookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		[]byte(e.Payload),
		nullableBytes(e.Headers),
		e.Procesado,
		nullableString(e.ErrorProceso),
		e.FechaRecepcion,
		e.FechaProceso,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (s *PostgresWebhookStore) FindByID(ctx context.Context, id domain.WebhookID) (*WebhookEvento, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_pago WHERE id = $1`
	return scanWebhook(execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *PostgresWebhookStore) MarkProcessed(ctx context.Context, id domain.WebhookID, procErr string) error {
	query := `
		UPDATE webhook_pago SET procesado = TRUE, error_proceso = $2, fecha_proceso = $3
		WHERE id = $1
	`
	result, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(id), nullableString(procErr), time.Now())
	if err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark webhook rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresWebhookStore) ListUnprocessed(ctx context.Context, limit int) ([]*WebhookEvento, error) {
	query := `
		SELECT ` + webhookColumns + ` FROM webhook_pago
		WHERE procesado = FALSE ORDER BY fecha_recepcion ASC LIMIT $1
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var out []*WebhookEvento
	for rows.Next() {
		e, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanWebhook(row rowScanner) (*WebhookEvento, error) {
	var (
		e         WebhookEvento
		id        uuid.UUID
		headers   []byte
		procErr   sql.NullString
		procesado sql.NullTime
	)
	err := row.Scan(&id, (*[]byte)(&e.Payload), &headers, &e.Procesado, &procErr, &e.FechaRecepcion, &procesado)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	e.ID = domain.WebhookID(id)
	e.Headers = headers
	e.ErrorProceso = procErr.String
	e.FechaProceso = timePtr(procesado)
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
