package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ErrSessionExpired is returned for 401 and 403 responses. The token is no
// longer accepted and the stored session must be dropped.
var ErrSessionExpired = errors.New("session expired")

// APIError is any other non-2xx response from the remote API.
type APIError struct {
	Status      int
	Message     string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// errorFromResponse maps a non-2xx response to ErrSessionExpired or an
// *APIError. fallback is used when the body carries no usable message.
func errorFromResponse(resp *http.Response, fallback string) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrSessionExpired
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: fallback}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}

	if len(body.Errors) > 0 {
		apiErr.FieldErrors = body.Errors
		apiErr.Message = joinFieldErrors(body.Errors)
	} else if msg := strings.TrimSpace(body.Message); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

func joinFieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fields[k]
	}
	return strings.Join(parts, "; ")
}
