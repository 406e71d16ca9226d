package server

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// UserHeader carries the authenticated caller's ID.
const UserHeader = "X-User-ID"

type ctxKey struct{}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKey{}).(string)
	return owner
}

func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(UserHeader))
		if owner == "" {
			writeKind(w, kindUnauthorized, "missing "+UserHeader+" header")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, owner)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
