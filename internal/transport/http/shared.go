package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError translates domain errors into the JSON error envelope. Sentinel
// errors from the store layer map before the generic fallback so callers see
// 404/409 rather than 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: string(dErrors.CodeNotFound), Message: "recurso no encontrado"})
		return
	case errors.Is(err, sentinel.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: string(dErrors.CodeConflict), Message: "el recurso ya existe"})
		return
	}

	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		resp.Message = domainErr.Message
	}
	writeJSON(w, statusFor(code), resp)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeIllegalTransition, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorizedRole, dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeMissingRequiredData:
		return http.StatusUnprocessableEntity
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
