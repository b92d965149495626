package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"minitracker/internal/api"
	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/middleware/trace"
	"minitracker/internal/services"
	"minitracker/internal/session"
)

// errBadRequest marks bodies and parameters that could not be decoded.
var errBadRequest = errors.New("malformed request")

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyField,
	core.ErrInvalidEmail,
	core.ErrPasswordTooWeak,
	core.ErrFieldTooLong,
	services.ErrInvalidID,
	services.ErrMissingCredentials,
}

// statusFor maps an error to the status code and the message shown to the
// client. Unknown errors are reported as 500 without detail.
func statusFor(err error) (int, string) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, api.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired, please log in again"
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden, "admin role required"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "remote API timed out"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, msg := statusFor(err)

	resp := errorResponse{Error: msg, RequestID: trace.GetRequestID(ctx)}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		resp.Fields = apiErr.FieldErrors
	}

	if errors.Is(err, api.ErrSessionExpired) {
		s.clearSessionCookie(w)
	}
	if status >= http.StatusInternalServerError {
		log.LogError(ctx, "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
	} else {
		log.FromContext(ctx).DebugContext(ctx, "Request rejected",
			log.FieldStatusCode, status, log.FieldError, err.Error())
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
