package rest

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/logging"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const accountKey ctxKey = "account"

// withAccount stores the authenticated account in ctx.
func withAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

// AccountFromContext returns the account set by the auth middleware.
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	a, ok := ctx.Value(accountKey).(*models.Account)
	return a, ok && a != nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// accessLog writes one line per request through the application logger.
func accessLog(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info(r.Context(), "http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote", r.RemoteAddr,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// authenticate resolves the bearer token to an active account. Requests
// without a valid token get 401.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeFail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		account, err := h.auth.ResolveToken(r.Context(), token)
		if err != nil {
			writeError(r.Context(), w, h.logger, "resolve token", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// requireRole lets the request through only for the listed roles.
func requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := AccountFromContext(r.Context())
			if !ok {
				writeFail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !slices.Contains(roles, a.Role) {
				writeFail(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
