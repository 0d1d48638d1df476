package solicitud

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

// TestEdgeLegality verifies only registered edges pass, regardless of role.
func (s *GuardSuite) TestEdgeLegality() {
	s.Run("registered edge passes", func() {
		s.NoError(Authorize(EstadoRegistrada, EstadoDerivadoAEditor, RolMesaDePartes, nil))
	})

	s.Run("skipping a state is rejected", func() {
		err := Authorize(EstadoRegistrada, EstadoEnBusqueda, RolAdmin, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("backward edge is rejected", func() {
		err := Authorize(EstadoEnBusqueda, EstadoRegistrada, RolAdmin, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("terminal states have no exits", func() {
		for _, terminal := range []Estado{EstadoActaNoEncontrada, EstadoEntregado} {
			for _, target := range Estados() {
				err := Authorize(terminal, target, RolAdmin, nil)
				s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition),
					"expected %s -> %s to be illegal", terminal, target)
			}
		}
	})
}

// TestRoleAuthorization verifies the per-state role lists and the SISTEMA
// bypass.
func (s *GuardSuite) TestRoleAuthorization() {
	s.Run("listed role passes", func() {
		s.NoError(Authorize(EstadoDerivadoAEditor, EstadoEnBusqueda, RolEditor, nil))
	})

	s.Run("unlisted role is rejected", func() {
		err := Authorize(EstadoDerivadoAEditor, EstadoEnBusqueda, RolUGEL, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedRole))
	})

	s.Run("SISTEMA bypasses the role list", func() {
		s.NoError(Authorize(EstadoDerivadoAEditor, EstadoEnBusqueda, RolSistema, nil))
	})

	s.Run("SISTEMA does not bypass edge legality", func() {
		err := Authorize(EstadoRegistrada, EstadoEntregado, RolSistema, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("SISTEMA does not bypass data preconditions", func() {
		err := Authorize(EstadoEnBusqueda, EstadoActaEncontradaPendientePago, RolSistema, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredData))
	})
}

// TestDataPreconditions verifies the per-edge required payload keys.
func (s *GuardSuite) TestDataPreconditions() {
	cases := []struct {
		from, to Estado
		rol      Rol
		key      string
	}{
		{EstadoEnBusqueda, EstadoActaEncontradaPendientePago, RolEditor, DataActaEncontrada},
		{EstadoActaEncontradaPendientePago, EstadoPagoValidado, RolMesaDePartes, DataPagoID},
		{EstadoEnProcesamientoOCR, EstadoEnValidacionUGEL, RolEditor, DataOCRResultado},
		{EstadoEnValidacionUGEL, EstadoObservadoPorUGEL, RolUGEL, DataObservaciones},
		{EstadoEnRegistroSIAGEC, EstadoEnFirmaDireccion, RolSIAGEC, DataCodigoVerificacion},
		{EstadoEnFirmaDireccion, EstadoCertificadoEmitido, RolDireccion, DataCertificadoID},
	}

	for _, tc := range cases {
		s.Run(string(tc.from)+" -> "+string(tc.to), func() {
			err := Authorize(tc.from, tc.to, tc.rol, nil)
			s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredData))

			err = Authorize(tc.from, tc.to, tc.rol, Payload{tc.key: "valor"})
			s.NoError(err)
		})
	}

	s.Run("empty string does not satisfy a required key", func() {
		err := Authorize(EstadoEnBusqueda, EstadoActaEncontradaPendientePago, RolEditor,
			Payload{DataActaEncontrada: ""})
		s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredData))
	})

	s.Run("nil value does not satisfy a required key", func() {
		err := Authorize(EstadoActaEncontradaPendientePago, EstadoPagoValidado, RolSistema,
			Payload{DataPagoID: nil})
		s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredData))
	})

	s.Run("edge without requirements ignores the payload", func() {
		s.NoError(Authorize(EstadoEnBusqueda, EstadoActaNoEncontrada, RolEditor, Payload{"extra": 1}))
	})
}

// TestCheckOrder verifies edge legality is judged before role, and role
// before data, so the caller always learns the most fundamental violation.
func (s *GuardSuite) TestCheckOrder() {
	s.Run("illegal edge reported before bad role", func() {
		err := Authorize(EstadoRegistrada, EstadoEntregado, RolPublico, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("bad role reported before missing data", func() {
		err := Authorize(EstadoEnBusqueda, EstadoActaEncontradaPendientePago, RolPublico, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedRole))
	})
}
