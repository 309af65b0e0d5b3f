package middleware

import (
	"net/http"

	"github.com/angelmondragon/arepera-backend/api/responses"
	pkgAuth "github.com/angelmondragon/arepera-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

// RequireApproved blocks callers whose profile is still pending or was rejected.
func RequireApproved(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerFromContext(r.Context())
			if !caller.IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !caller.IsApproved() {
				err := pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval").
					WithDetails(map[string]any{"status": caller.Status})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := pkgAuth.RequireAdmin(CallerFromContext(r.Context())); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
