package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dewauriarte/SIGCERH-sub005/internal/acta"
	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/notificacion"
	"github.com/dewauriarte/SIGCERH-sub005/internal/pago"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/logger"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// stubValidator maps bearer tokens to claims without real JWT parsing.
type stubValidator struct {
	claims map[string]*middleware.JWTClaims
}

func (v *stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	claims, ok := v.claims[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

type RouterSuite struct {
	suite.Suite
	ctx         context.Context
	server      *httptest.Server
	engine      *solicitud.Engine
	actas       *acta.Service
	bridge      *pago.Bridge
	solicitudes *solicitud.InMemoryStore
	notifStore  *notificacion.InMemoryStore
	worker      *notificacion.Worker

	editorToken string
	ugelToken   string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	log := logger.Discard()

	auditStore := auditoria.NewInMemoryStore()
	publisher := auditoria.NewPublisher(auditStore, nil, log)

	s.solicitudes = solicitud.NewInMemoryStore()
	s.notifStore = notificacion.NewInMemoryStore()
	queue := notificacion.NewQueue()
	s.worker = notificacion.NewWorker(queue, s.notifStore, notificacion.NewLogChannel(log), metrics.NewForTest(), log, notificacion.WorkerConfig{})

	s.engine = solicitud.NewEngine(s.solicitudes, publisher, s.worker, metrics.NewForTest(), log, nil)
	s.actas = acta.NewService(acta.NewInMemoryStore(), publisher, log, nil)
	s.bridge = pago.NewBridge(pago.NewInMemoryStore(), pago.NewInMemoryWebhookStore(), s.engine,
		pago.NewMemoryDeduper(), publisher, metrics.NewForTest(), log, 2)

	s.editorToken = "token-editor"
	s.ugelToken = "token-ugel"
	validator := &stubValidator{claims: map[string]*middleware.JWTClaims{
		s.editorToken: {UsuarioID: domain.NewUsuarioID().String(), Roles: []string{"EDITOR"}},
		s.ugelToken:   {UsuarioID: domain.NewUsuarioID().String(), Roles: []string{"UGEL"}},
	}}

	router := NewRouter(Deps{
		Engine:       s.engine,
		Actas:        s.actas,
		Bridge:       s.bridge,
		Worker:       s.worker,
		Notificacion: s.notifStore,
		Logger:       log,
		JWTValidator: validator,
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) do(method, path, token string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

// newSolicitudInState creates a request through the store (not the API) and
// parks it in the given state.
func (s *RouterSuite) newSolicitudInState(estado solicitud.Estado) *solicitud.Solicitud {
	sol, err := s.engine.Create(s.ctx, solicitud.CreateInput{
		NumeroExpediente: "EXP-" + string(estado) + fmt.Sprint(time.Now().UnixNano()),
		Estudiante:       "Pedro Huanca",
	})
	s.Require().NoError(err)
	if estado != solicitud.EstadoRegistrada {
		sol.Estado = estado
		s.Require().NoError(s.solicitudes.Update(s.ctx, sol))
	}
	return sol
}

func (s *RouterSuite) TestHealth() {
	resp, err := http.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestAuthRequired() {
	resp := s.do(http.MethodGet, "/api/solicitudes?estado=REGISTRADA", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/solicitudes?estado=REGISTRADA", "token-falso", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestCreateSolicitud() {
	resp := s.do(http.MethodPost, "/api/solicitudes", s.editorToken, map[string]any{
		"numeroExpediente": "EXP-2026-777",
		"estudiante":       "Julia Ccopa",
		"modalidad":        "FISICA",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var body solicitudResponse
	s.decode(resp, &body)
	s.Equal("REGISTRADA", body.Estado)
	s.Equal("EXP-2026-777", body.NumeroExpediente)
}

// TestTransitionStatusMapping exercises the HTTP face of the guard: each
// rejection class maps to its own status code.
func (s *RouterSuite) TestTransitionStatusMapping() {
	s.Run("illegal transition is 409", func() {
		sol := s.newSolicitudInState(solicitud.EstadoRegistrada)
		resp := s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.editorToken,
			map[string]any{"estado": "ENTREGADO"})
		resp.Body.Close()
		s.Equal(http.StatusConflict, resp.StatusCode)
	})

	s.Run("unauthorized role is 403", func() {
		sol := s.newSolicitudInState(solicitud.EstadoDerivadoAEditor)
		resp := s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.ugelToken,
			map[string]any{"estado": "EN_BUSQUEDA"})
		resp.Body.Close()
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("missing data is 422", func() {
		sol := s.newSolicitudInState(solicitud.EstadoEnBusqueda)
		resp := s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.editorToken,
			map[string]any{"estado": "ACTA_ENCONTRADA_PENDIENTE_PAGO"})
		resp.Body.Close()
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	})

	s.Run("role outside claims is 403", func() {
		sol := s.newSolicitudInState(solicitud.EstadoDerivadoAEditor)
		resp := s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.editorToken,
			map[string]any{"estado": "EN_BUSQUEDA", "rol": "ADMIN"})
		resp.Body.Close()
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("unknown solicitud is 404", func() {
		resp := s.do(http.MethodPost, "/api/solicitudes/"+domain.NewSolicitudID().String()+"/transicion", s.editorToken,
			map[string]any{"estado": "EN_BUSQUEDA"})
		resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

// TestActaPreconditionFlow drives the search subsystem over HTTP and checks
// the coupled transition both ways: rejected before the acta is found,
// accepted after.
func (s *RouterSuite) TestActaPreconditionFlow() {
	sol := s.newSolicitudInState(solicitud.EstadoEnBusqueda)

	transicion := func() *http.Response {
		return s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.editorToken,
			map[string]any{"estado": "ACTA_ENCONTRADA_PENDIENTE_PAGO"})
	}

	resp := transicion()
	resp.Body.Close()
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	// A caller typing the search outcome into the payload gets nowhere: the
	// key is the acta record's verdict, not the client's.
	resp = s.do(http.MethodPost, "/api/solicitudes/"+sol.ID.String()+"/transicion", s.editorToken,
		map[string]any{
			"estado":  "ACTA_ENCONTRADA_PENDIENTE_PAGO",
			"payload": map[string]any{"acta_encontrada": "forjado-por-el-cliente"},
		})
	resp.Body.Close()
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	fetched, err := s.engine.Get(s.ctx, sol.ID)
	s.Require().NoError(err)
	s.Equal(solicitud.EstadoEnBusqueda, fetched.Estado)

	resp = s.do(http.MethodPost, "/api/actas", s.editorToken, map[string]any{
		"solicitudId": sol.ID.String(),
		"libro":       "LIBRO-03",
		"folio":       "55",
		"anio":        1992,
		"institucion": "IE Tupac Amaru",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	var created actaResponse
	s.decode(resp, &created)

	editorID := domain.NewUsuarioID().String()
	resp = s.do(http.MethodPost, "/api/actas/"+created.ID+"/asignar", s.editorToken,
		map[string]any{"editorId": editorID})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = transicion()
	resp.Body.Close()
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode) // assigned, still not found

	resp = s.do(http.MethodPost, "/api/actas/"+created.ID+"/encontrada", s.editorToken,
		map[string]any{"ubicacion": "Estante 4"})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = transicion()
	s.Equal(http.StatusOK, resp.StatusCode)
	var result struct {
		Solicitud solicitudResponse `json:"solicitud"`
	}
	s.decode(resp, &result)
	s.Equal("ACTA_ENCONTRADA_PENDIENTE_PAGO", result.Solicitud.Estado)
	s.Require().NotNil(result.Solicitud.ActaID)
	s.Equal(created.ID, *result.Solicitud.ActaID)
}

// TestWebhookAcknowledgment verifies the write-then-202 contract and the
// eventual reconciliation.
func (s *RouterSuite) TestWebhookAcknowledgment() {
	sol := s.newSolicitudInState(solicitud.EstadoActaEncontradaPendientePago)
	resp := s.do(http.MethodPost, "/api/pagos", s.editorToken, map[string]any{
		"solicitudId": sol.ID.String(),
		"numeroOrden": "ORD-HTTP-1",
		"montoCents":  3500,
		"metodo":      "YAPE",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/webhooks/pagos", "",
		map[string]any{"estado": "APROBADO", "numeroOrden": "ORD-HTTP-1"})
	s.Equal(http.StatusAccepted, resp.StatusCode)
	var ack struct {
		Success   bool   `json:"success"`
		WebhookID string `json:"webhookId"`
	}
	s.decode(resp, &ack)
	s.True(ack.Success)
	s.NotEmpty(ack.WebhookID)

	// Reconciliation is asynchronous; poll briefly.
	s.Eventually(func() bool {
		stored, err := s.solicitudes.FindByID(s.ctx, sol.ID)
		return err == nil && stored.Estado == solicitud.EstadoPagoValidado
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *RouterSuite) TestWebhookTokenGuard() {
	hash, err := pago.HashGatewayToken("token-pasarela")
	s.Require().NoError(err)

	guarded := NewRouter(Deps{
		Engine:           s.engine,
		Actas:            s.actas,
		Bridge:           s.bridge,
		Worker:           s.worker,
		Notificacion:     s.notifStore,
		Logger:           logger.Discard(),
		JWTValidator:     &stubValidator{},
		WebhookTokenHash: hash,
	})
	server := httptest.NewServer(guarded)
	defer server.Close()

	body := bytes.NewBufferString(`{"estado":"APROBADO","numeroOrden":"ORD-X"}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhooks/pagos", body)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	body = bytes.NewBufferString(`{"estado":"APROBADO","numeroOrden":"ORD-X"}`)
	req, err = http.NewRequest(http.MethodPost, server.URL+"/webhooks/pagos", body)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer token-pasarela")
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusAccepted, resp.StatusCode)
}

func (s *RouterSuite) TestHistorialAndTransiciones() {
	sol := s.newSolicitudInState(solicitud.EstadoRegistrada)

	resp := s.do(http.MethodGet, "/api/solicitudes/"+sol.ID.String()+"/historial", s.editorToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var historial struct {
		Historial []map[string]any `json:"historial"`
	}
	s.decode(resp, &historial)
	s.Len(historial.Historial, 1) // intake entry

	resp = s.do(http.MethodGet, "/api/solicitudes/"+sol.ID.String()+"/transiciones", s.editorToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var transiciones struct {
		Estado       string           `json:"estado"`
		Terminal     bool             `json:"terminal"`
		Transiciones []map[string]any `json:"transiciones"`
	}
	s.decode(resp, &transiciones)
	s.Equal("REGISTRADA", transiciones.Estado)
	s.False(transiciones.Terminal)
	s.Len(transiciones.Transiciones, 1)

	// With a rol probe, each edge carries a permitido verdict.
	resp = s.do(http.MethodGet,
		"/api/solicitudes/"+sol.ID.String()+"/transiciones?rol=MESA_DE_PARTES", s.editorToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &transiciones)
	s.Require().Len(transiciones.Transiciones, 1)
	s.Equal(true, transiciones.Transiciones[0]["permitido"])

	resp = s.do(http.MethodGet,
		"/api/solicitudes/"+sol.ID.String()+"/transiciones?rol=UGEL", s.editorToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &transiciones)
	s.Require().Len(transiciones.Transiciones, 1)
	s.Equal(false, transiciones.Transiciones[0]["permitido"])
}

func (s *RouterSuite) TestNotificacionesFallidas() {
	evento := &notificacion.Evento{
		ID:            domain.NewNotificacionID(),
		Tipo:          notificacion.TipoActaEncontrada,
		Canal:         notificacion.CanalEmail,
		SolicitudID:   domain.NewSolicitudID(),
		Estado:        notificacion.EstadoFallida,
		Intentos:      5,
		UltimoError:   "gateway unavailable",
		FechaEncolado: time.Now(),
	}
	s.Require().NoError(s.notifStore.Save(s.ctx, evento))

	resp := s.do(http.MethodGet, "/api/notificaciones/fallidas", s.editorToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Notificaciones []notificacionResponse `json:"notificaciones"`
	}
	s.decode(resp, &body)
	s.Require().Len(body.Notificaciones, 1)
	s.Equal(evento.ID.String(), body.Notificaciones[0].ID)

	resp = s.do(http.MethodPost, "/api/notificaciones/"+evento.ID.String()+"/reenviar", s.editorToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	stored, err := s.notifStore.FindByID(s.ctx, evento.ID)
	s.Require().NoError(err)
	s.Equal(notificacion.EstadoReenviada, stored.Estado)
	s.Equal(0, stored.Intentos)
}
