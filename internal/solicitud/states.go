// Package solicitud implements the certificate-request lifecycle: the state
// registry, the pure transition guard, and the engine that commits guarded
// transitions atomically with their audit entry and notification event.
package solicitud

import (
	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

// Estado is one of the 13 lifecycle states of a certificate request.
type Estado string

const (
	EstadoRegistrada                 Estado = "REGISTRADA"
	EstadoDerivadoAEditor            Estado = "DERIVADO_A_EDITOR"
	EstadoEnBusqueda                 Estado = "EN_BUSQUEDA"
	EstadoActaEncontradaPendientePago Estado = "ACTA_ENCONTRADA_PENDIENTE_PAGO"
	EstadoActaNoEncontrada           Estado = "ACTA_NO_ENCONTRADA"
	EstadoPagoValidado               Estado = "PAGO_VALIDADO"
	EstadoEnProcesamientoOCR         Estado = "EN_PROCESAMIENTO_OCR"
	EstadoEnValidacionUGEL           Estado = "EN_VALIDACION_UGEL"
	EstadoObservadoPorUGEL           Estado = "OBSERVADO_POR_UGEL"
	EstadoEnRegistroSIAGEC           Estado = "EN_REGISTRO_SIAGEC"
	EstadoEnFirmaDireccion           Estado = "EN_FIRMA_DIRECCION"
	EstadoCertificadoEmitido         Estado = "CERTIFICADO_EMITIDO"
	EstadoEntregado                  Estado = "ENTREGADO"
)

// Rol identifies an actor class. RolSistema always authorizes automated
// transitions regardless of the per-state role list.
type Rol string

const (
	RolSistema      Rol = "SISTEMA"
	RolPublico      Rol = "PUBLICO"
	RolMesaDePartes Rol = "MESA_DE_PARTES"
	RolEditor       Rol = "EDITOR"
	RolUGEL         Rol = "UGEL"
	RolSIAGEC       Rol = "SIAGEC"
	RolDireccion    Rol = "DIRECCION"
	RolAdmin        Rol = "ADMIN"
)

// Payload data keys required by specific transitions.
const (
	DataActaEncontrada     = "acta_encontrada"
	DataPagoID             = "pago_id"
	DataOCRResultado       = "ocr_resultado"
	DataObservaciones      = "observaciones"
	DataCodigoVerificacion = "codigo_verificacion"
	DataCertificadoID      = "certificado_id"

	// Optional delivery hints the engine reads when a transition notifies
	// the applicant. Never required by the guard.
	DataDestinatario = "destinatario"
	DataCanal        = "canal"
)

// transicionConfig is one row of the registry: who may leave a state, where
// to, and what data each edge demands.
type transicionConfig struct {
	nextStates   []Estado
	roles        []Rol
	requiresData map[Estado][]string
	description  string
}

// transiciones is the immutable transition table. It is only read through the
// accessor functions below, which copy; no caller can mutate the graph.
var transiciones = map[Estado]transicionConfig{
	EstadoRegistrada: {
		nextStates:  []Estado{EstadoDerivadoAEditor},
		roles:       []Rol{RolMesaDePartes, RolSistema},
		description: "Mesa de Partes deriva la solicitud a un editor",
	},
	EstadoDerivadoAEditor: {
		nextStates:  []Estado{EstadoEnBusqueda},
		roles:       []Rol{RolEditor, RolAdmin},
		description: "Editor inicia la busqueda del acta fisica",
	},
	EstadoEnBusqueda: {
		nextStates: []Estado{EstadoActaEncontradaPendientePago, EstadoActaNoEncontrada},
		roles:      []Rol{RolEditor, RolAdmin},
		requiresData: map[Estado][]string{
			EstadoActaEncontradaPendientePago: {DataActaEncontrada},
		},
		description: "Editor marca el acta como encontrada o no encontrada",
	},
	EstadoActaEncontradaPendientePago: {
		nextStates: []Estado{EstadoPagoValidado},
		roles:      []Rol{RolSistema, RolMesaDePartes},
		requiresData: map[Estado][]string{
			EstadoPagoValidado: {DataPagoID},
		},
		description: "Pasarela valida el pago digital o Mesa de Partes concilia efectivo",
	},
	EstadoActaNoEncontrada: {
		description: "Estado final: acta no encontrada, sin cobro",
	},
	EstadoPagoValidado: {
		nextStates:  []Estado{EstadoEnProcesamientoOCR},
		roles:       []Rol{RolEditor, RolAdmin},
		description: "Editor sube el acta fisica para procesamiento OCR",
	},
	EstadoEnProcesamientoOCR: {
		nextStates: []Estado{EstadoEnValidacionUGEL},
		roles:      []Rol{RolEditor, RolAdmin, RolSistema},
		requiresData: map[Estado][]string{
			EstadoEnValidacionUGEL: {DataOCRResultado},
		},
		description: "OCR completado; el certificado pasa a validacion de la UGEL",
	},
	EstadoEnValidacionUGEL: {
		nextStates: []Estado{EstadoEnRegistroSIAGEC, EstadoObservadoPorUGEL},
		roles:      []Rol{RolUGEL, RolAdmin},
		requiresData: map[Estado][]string{
			EstadoObservadoPorUGEL: {DataObservaciones},
		},
		description: "UGEL aprueba el contenido o lo observa",
	},
	EstadoObservadoPorUGEL: {
		nextStates:  []Estado{EstadoEnValidacionUGEL},
		roles:       []Rol{RolEditor, RolAdmin},
		description: "Editor corrige y reenvia a validacion de la UGEL",
	},
	EstadoEnRegistroSIAGEC: {
		nextStates: []Estado{EstadoEnFirmaDireccion},
		roles:      []Rol{RolSIAGEC, RolAdmin},
		requiresData: map[Estado][]string{
			EstadoEnFirmaDireccion: {DataCodigoVerificacion},
		},
		description: "SIAGEC asigna el codigo de verificacion",
	},
	EstadoEnFirmaDireccion: {
		nextStates: []Estado{EstadoCertificadoEmitido},
		roles:      []Rol{RolDireccion, RolAdmin},
		requiresData: map[Estado][]string{
			EstadoCertificadoEmitido: {DataCertificadoID},
		},
		description: "Direccion firma y emite el certificado",
	},
	EstadoCertificadoEmitido: {
		nextStates:  []Estado{EstadoEntregado},
		roles:       []Rol{RolSistema, RolMesaDePartes},
		description: "Descarga digital o entrega fisica en oficina",
	},
	EstadoEntregado: {
		description: "Estado final: certificado entregado",
	},
}

// Estados returns every state in the registry.
func Estados() []Estado {
	out := make([]Estado, 0, len(transiciones))
	for estado := range transiciones {
		out = append(out, estado)
	}
	return out
}

// NextStates returns the legal targets from estado. Empty for terminal states
// and for states not in the registry.
func NextStates(estado Estado) []Estado {
	config, ok := transiciones[estado]
	if !ok {
		return nil
	}
	return append([]Estado(nil), config.nextStates...)
}

// RolesFor returns the roles allowed to transition out of estado.
func RolesFor(estado Estado) []Rol {
	config, ok := transiciones[estado]
	if !ok {
		return nil
	}
	return append([]Rol(nil), config.roles...)
}

// RequiredData returns the payload keys the from→to edge demands.
func RequiredData(from, to Estado) []string {
	config, ok := transiciones[from]
	if !ok {
		return nil
	}
	return append([]string(nil), config.requiresData[to]...)
}

// IsTerminal reports whether estado has no outgoing transitions.
func IsTerminal(estado Estado) bool {
	return len(transiciones[estado].nextStates) == 0
}

// Describe returns the human-readable description for estado.
func Describe(estado Estado) string {
	return transiciones[estado].description
}

// ParseEstado validates a state string against the registry.
func ParseEstado(raw string) (Estado, error) {
	estado := Estado(raw)
	if _, ok := transiciones[estado]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "estado desconocido: %q", raw)
	}
	return estado, nil
}

var rolesConocidos = map[Rol]struct{}{
	RolSistema:      {},
	RolPublico:      {},
	RolMesaDePartes: {},
	RolEditor:       {},
	RolUGEL:         {},
	RolSIAGEC:       {},
	RolDireccion:    {},
	RolAdmin:        {},
}

// ParseRol validates a role string. Unknown role codes fail closed: callers
// receive an error rather than a role that might slip past the guard.
func ParseRol(raw string) (Rol, error) {
	rol := Rol(raw)
	if _, ok := rolesConocidos[rol]; !ok {
		return "", dErrors.Newf(dErrors.CodeUnauthorizedRole, "rol desconocido: %q", raw)
	}
	return rol, nil
}

// accionFor derives the audit action kind from the committed target state.
func accionFor(target Estado) auditoria.Accion {
	switch target {
	case EstadoPagoValidado:
		return auditoria.AccionValidar
	case EstadoActaNoEncontrada, EstadoObservadoPorUGEL:
		return auditoria.AccionRechazar
	case EstadoEnFirmaDireccion:
		return auditoria.AccionFirmar
	case EstadoCertificadoEmitido:
		return auditoria.AccionAprobar
	default:
		return auditoria.AccionActualizar
	}
}
