package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/api/responses"
	pkgAuth "github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/auth/session"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

// CallerLoader resolves the current role and approval status of a profile.
type CallerLoader interface {
	LoadCaller(ctx context.Context, id uuid.UUID) (pkgAuth.Caller, error)
}

// Auth validates a bearer token, checks the redis session and loads the
// caller from the database so role and status changes apply immediately.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, callers CallerLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			caller := pkgAuth.Caller{UserID: claims.UserID, Role: claims.Role}
			if callers != nil {
				caller, err = callers.LoadCaller(r.Context(), claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}

			ctx := WithCaller(r.Context(), caller)
			ctx = WithAccessID(ctx, claims.ID)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    caller.UserID.String(),
					"actor_role": string(caller.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
