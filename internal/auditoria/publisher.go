package auditoria

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// Stream is an optional fan-out for committed entries (Kafka in production).
// Publishing is best-effort: the store is the system of record and a stream
// hiccup must not abort the transition that produced the entry.
type Stream interface {
	Publish(ctx context.Context, entry Entry)
}

// Publisher records audit entries. It is the only write path to the trail;
// the engine calls it inside the commit transaction.
type Publisher struct {
	store  Store
	stream Stream
	logger *slog.Logger
}

// NewPublisher builds a publisher. stream may be nil.
func NewPublisher(store Store, stream Stream, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, stream: stream, logger: logger}
}

// Record assigns identity and timestamp, derives the device summary from the
// raw user agent, appends the entry, and returns its id.
func (p *Publisher) Record(ctx context.Context, entry Entry) (uuid.UUID, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Fecha.IsZero() {
		entry.Fecha = time.Now()
	}
	if entry.Dispositivo == "" && entry.UserAgent != "" {
		entry.Dispositivo = deviceSummary(entry.UserAgent)
	}

	if err := p.store.Append(ctx, entry); err != nil {
		return uuid.Nil, fmt.Errorf("append audit entry: %w", err)
	}

	if p.stream != nil {
		p.stream.Publish(ctx, entry)
	}
	return entry.ID, nil
}

// List returns the ordered trail for one entity.
func (p *Publisher) List(ctx context.Context, entidad, entidadID string) ([]Entry, error) {
	return p.store.ListByEntidad(ctx, entidad, entidadID)
}

// deviceSummary condenses a raw User-Agent into "Browser version (OS)" for
// the compliance report; raw UA is stored alongside.
func deviceSummary(raw string) string {
	parsed := useragent.New(raw)
	name, version := parsed.Browser()
	if name == "" {
		return ""
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := parsed.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}
