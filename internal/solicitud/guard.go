package solicitud

import (
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

// Authorize is the transition guard: pure and side-effect-free. It checks, in
// order, edge legality, role authorization, and data preconditions, returning
// a coded error naming the first violation. A nil return authorizes the
// transition.
//
// RolSistema bypasses the role list but never the edge or data checks:
// automated callers follow the same graph as humans.
func Authorize(current, target Estado, rol Rol, payload Payload) error {
	config, ok := transiciones[current]
	if !ok {
		return dErrors.Newf(dErrors.CodeIllegalTransition, "estado actual %q no esta registrado", current)
	}

	if !containsEstado(config.nextStates, target) {
		return dErrors.Newf(dErrors.CodeIllegalTransition,
			"transicion no permitida de %q a %q", current, target)
	}

	if rol != RolSistema && !containsRol(config.roles, rol) {
		return dErrors.Newf(dErrors.CodeUnauthorizedRole,
			"rol %q no puede ejecutar la transicion de %q a %q", rol, current, target)
	}

	for _, key := range config.requiresData[target] {
		if !payload.Has(key) {
			return dErrors.Newf(dErrors.CodeMissingRequiredData,
				"falta el dato requerido %q para la transicion de %q a %q", key, current, target)
		}
	}

	return nil
}

func containsEstado(estados []Estado, target Estado) bool {
	for _, e := range estados {
		if e == target {
			return true
		}
	}
	return false
}

func containsRol(roles []Rol, rol Rol) bool {
	for _, r := range roles {
		if r == rol {
			return true
		}
	}
	return false
}
