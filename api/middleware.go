package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workguard360/core/auth"
	"workguard360/core/metrics"
)

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		user := "-"
		if p := auth.FromContext(r.Context()); p != nil {
			user = p.Email
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("user", user).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Int("bytes", rec.size).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach Hijacker/Flusher on the
// underlying writer; the websocket upgrade needs to hijack through the
// recorder.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withPrincipal verifies the bearer token and resolves the principal with a
// fresh role lookup. Websocket clients cannot set headers, so a token query
// parameter is accepted as a fallback.
func (s *Server) withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.unauthorized(w, r, "missing token")
			return
		}
		claims, err := auth.VerifyToken(s.cfg.AuthSecret, token, time.Now())
		if err != nil {
			s.unauthorized(w, r, err.Error())
			return
		}
		principal, err := s.resolver.Resolve(r.Context(), claims.UserID)
		if err != nil {
			s.logger.Error().Err(err).Msg("principal resolution failed")
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if principal == nil {
			s.unauthorized(w, r, "unknown user")
			return
		}
		ctx := context.WithValue(r.Context(), auth.PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Msg("auth failed")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
