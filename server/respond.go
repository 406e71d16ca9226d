package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/discovery"
)

const (
	kindUnauthorized core.ErrorKind = "unauthorized"
	kindOverloaded   core.ErrorKind = "overloaded"
)

var kindStatus = map[core.ErrorKind]int{
	kindUnauthorized:             http.StatusUnauthorized,
	kindOverloaded:               http.StatusServiceUnavailable,
	core.KindInvalidRequest:      http.StatusBadRequest,
	core.KindNotFound:            http.StatusNotFound,
	core.KindQuotaExceeded:       http.StatusPaymentRequired,
	core.KindFeatureNotInPlan:    http.StatusForbidden,
	core.KindRunInProgress:       http.StatusConflict,
	core.KindNoQueries:           http.StatusUnprocessableEntity,
	core.KindNoResults:           http.StatusUnprocessableEntity,
	core.KindMalformedResponse:   http.StatusBadGateway,
	core.KindUpstreamUnavailable: http.StatusBadGateway,
	core.KindInternal:            http.StatusInternalServerError,
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    core.ErrorKind  `json:"kind"`
	Message string          `json:"message"`
	Stage   discovery.Stage `json:"stage,omitempty"`
	RunID   string          `json:"run_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("failed to encode response", "err", err)
	}
}

func writeKind(w http.ResponseWriter, kind core.ErrorKind, message string) {
	writeJSON(w, statusFor(kind), errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeError classifies err and writes it. Internal errors are logged and
// their message is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	detail := errorDetail{Kind: core.KindOf(err), Message: err.Error()}
	if errors.Is(err, ants.ErrPoolOverload) {
		detail.Kind = kindOverloaded
		detail.Message = "too many discovery runs in progress"
	}

	var runErr *discovery.RunError
	if errors.As(err, &runErr) {
		detail.Kind = runErr.Kind
		detail.Stage = runErr.Stage
		detail.RunID = runErr.RunID
		detail.Message = runErr.Err.Error()
	}

	if detail.Kind == core.KindInternal {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		detail.Message = http.StatusText(http.StatusInternalServerError)
	}
	writeJSON(w, statusFor(detail.Kind), errorBody{Error: detail})
}

func statusFor(kind core.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeKind(w, core.KindInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
