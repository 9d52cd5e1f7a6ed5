package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ReloadTokenHeader carries the reload token for callers that cannot set
// Authorization
const ReloadTokenHeader = "X-Reload-Token"

type callerKey struct{}

// TokenAuth admits requests that present token as a bearer credential or in
// ReloadTokenHeader. An Authorization header with another scheme is rejected
// even when ReloadTokenHeader is also set. An empty token turns the guard off.
func TokenAuth(logger *slog.Logger, token string) func(next http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, scheme := credentials(r)

			var detail string
			switch {
			case presented == "":
				detail = "Missing token. Use: Authorization: Bearer <token> or " + ReloadTokenHeader
			case subtle.ConstantTimeCompare([]byte(presented), want) != 1:
				detail = "Invalid token"
			}
			if detail != "" {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "token rejected",
					slog.String("reason", detail),
					slog.String("scheme", scheme),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeProblem(w, r, http.StatusUnauthorized, detail)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, scheme)))
		})
	}
}

func credentials(r *http.Request) (token, scheme string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		kind, value, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(kind, "bearer") {
			return "", kind
		}
		return strings.TrimSpace(value), "bearer"
	}
	return strings.TrimSpace(r.Header.Get(ReloadTokenHeader)), "header"
}

// AuditLog writes one record per call of a state-changing endpoint naming
// who called it and how it ended
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			caller := "anonymous"
			if scheme, ok := r.Context().Value(callerKey{}).(string); ok {
				caller = "token:" + scheme
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.LogAttrs(r.Context(), slog.LevelInfo, "audit",
				slog.String("caller", caller),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
