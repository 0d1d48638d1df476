package notificacion

import (
	"context"
	"log/slog"
)

// Channel delivers a single notification over a concrete medium.
type Channel interface {
	Send(ctx context.Context, evento *Evento) error
}

// LogChannel writes deliveries to the structured log instead of an external
// gateway. It is the default channel when no provider is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Send(_ context.Context, evento *Evento) error {
	c.logger.Info("notification delivered",
		"notificacion_id", evento.ID.String(),
		"tipo", string(evento.Tipo),
		"canal", string(evento.Canal),
		"solicitud_id", evento.SolicitudID.String(),
		"destinatario", evento.Destinatario,
	)
	return nil
}
