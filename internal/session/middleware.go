package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/pkg/logger"
)

// Middleware resolves the session once per request and hands the identity to
// downstream handlers through the request context. Requests without a valid
// session pass through untouched; guards decide what to do with them.
func Middleware(store Store, lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := store.Get(r)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					lg.WarnContext(r.Context(), "session lookup failed, treating request as unauthenticated", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = logger.With(ctx, "username", identity.Username, "role", string(identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
