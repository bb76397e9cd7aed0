package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/hunt"
)

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}

// lockTokenMiddleware verifies the Bearer lock token and stores its claims
// in the request context.
func lockTokenMiddleware(logger *slog.Logger, svc *gate.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, hunt.CodeTokenInvalid, "bearer token required")
				return
			}
			claims, err := svc.CurrentTeam(raw)
			if err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
