// Package auditoria is the append-only compliance record. Every committed
// transition lands here exactly once; entries are never updated or deleted.
package auditoria

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Accion classifies an audited action.
type Accion string

const (
	AccionCrear      Accion = "CREAR"
	AccionActualizar Accion = "ACTUALIZAR"
	AccionEliminar   Accion = "ELIMINAR"
	AccionVer        Accion = "VER"
	AccionLogin      Accion = "LOGIN"
	AccionLogout     Accion = "LOGOUT"
	AccionExportar   Accion = "EXPORTAR"
	AccionFirmar     Accion = "FIRMAR"
	AccionAprobar    Accion = "APROBAR"
	AccionRechazar   Accion = "RECHAZAR"
	AccionValidar    Accion = "VALIDAR"
)

// Entity type labels used by the workflow packages.
const (
	EntidadSolicitud = "solicitud"
	EntidadActa      = "acta_fisica"
	EntidadPago      = "pago"
	EntidadWebhook   = "webhook_pago"
)

// Entry is one audit record. UsuarioID is nil for system actions (webhook
// reconciliation, automated transitions).
type Entry struct {
	ID              uuid.UUID
	Entidad         string
	EntidadID       string
	Accion          Accion
	UsuarioID       *domain.UsuarioID
	DatosAnteriores json.RawMessage
	DatosNuevos     json.RawMessage
	IP              string
	UserAgent       string
	Dispositivo     string
	Fecha           time.Time
}

// Snapshot marshals a payload for the before/after columns, swallowing only
// marshal errors that cannot happen for map/struct inputs.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
