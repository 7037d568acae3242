package httpapi

import (
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/service"
)

var errBodyTooLarge = errors.New("request body too large")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	respond(w, r, status, errorBody{Error: code, Message: msg})
}

// errorStatus maps a service error to an HTTP status and error code.
// Anything unrecognised is a 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, service.ErrUnknownIdentity):
		return http.StatusNotFound, "unknown_identity"
	case errors.Is(err, service.ErrPassNotFound):
		return http.StatusNotFound, "pass_not_found"
	case errors.Is(err, service.ErrInvalidDNI):
		return http.StatusBadRequest, "invalid_dni"
	case errors.Is(err, model.ErrUnknownAction):
		return http.StatusBadRequest, "invalid_action"
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid_signature"
	case errors.Is(err, service.ErrInvalidTerminalID):
		return http.StatusBadRequest, "invalid_terminal_id"
	case errors.Is(err, service.ErrInvalidIdentity):
		return http.StatusBadRequest, "invalid_identity"
	case errors.Is(err, service.ErrInvalidPass):
		return http.StatusBadRequest, "invalid_pass"
	case errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes the response for a service error. Server-side failures are
// logged and answered with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err, "request_id", requestID(r))
		msg := "unexpected server error"
		if status == http.StatusServiceUnavailable {
			msg = "the access store is unavailable, try again"
		}
		writeError(w, r, status, code, msg)
		return
	}
	writeError(w, r, status, code, err.Error())
}
