package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/domain"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusByKind maps error kinds to HTTP status codes.
var statusByKind = map[string]int{
	domain.KindDuplicateHandle:    http.StatusConflict,
	domain.KindInvalidCredentials: http.StatusUnauthorized,
	domain.KindUnauthenticated:    http.StatusUnauthorized,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindInvalidInput:       http.StatusBadRequest,
	domain.KindConflict:           http.StatusConflict,
	domain.KindUnavailable:        http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	if status, ok := statusByKind[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an ErrorResponse.
// Unavailable errors never expose their underlying cause.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindUnavailable {
		logger.Error().Err(err).Msg("request failed")
		message = domain.ErrUnavailable.Error()
		var de *domain.DomainError
		if errors.As(err, &de) {
			message = de.Error()
		}
	}
	writeJSON(w, StatusFor(err), ErrorResponse{Error: kind, Message: message})
}

type message struct {
	Message string `json:"message"`
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}
