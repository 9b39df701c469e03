package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bizchat/bizchat-api/internal/session"
)

type contextKey struct{ name string }

var (
	sessionClaimsKey = contextKey{name: "session_claims"}
	sessionTokenKey  = contextKey{name: "session_token"}
)

// claimsFromContext returns the session claims stored by RequireSession.
func claimsFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*session.Claims)
	return claims, ok
}

// tokenFromContext returns the (possibly refreshed) session token stored by
// RequireSession.
func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}

// RequireSession rejects requests without a valid bearer session token and
// stores the materialized claims in the request context.
func (h *AccountHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, token, err := h.sessions.Materialize(r.Context(), parts[1])
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
		ctx = context.WithValue(ctx, sessionTokenKey, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with a generated request id.
func RequestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
