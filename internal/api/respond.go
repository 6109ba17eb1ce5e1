package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/pollshard/internal/polls"
)

const maxBodyBytes = 1 << 20

const msgBadBody = "Invalid request body"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a JSON body into v. Numbers decode as json.Number so
// query parameters keep integer precision.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind polls.Kind) int {
	switch kind {
	case polls.KindValidation:
		return http.StatusBadRequest
	case polls.KindNotFound:
		return http.StatusNotFound
	case polls.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err as returned by a polls.Service operation.
// Internal failures are logged with their cause; the client only sees the
// message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := polls.KindOf(err)
	msg := "Internal server error"
	var perr *polls.Error
	if errors.As(err, &perr) {
		msg = perr.Message
	}
	if kind == polls.KindInternal {
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, statusFor(kind), msg)
}
