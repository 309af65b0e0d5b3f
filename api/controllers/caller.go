package controllers

import (
	"net/http"

	"github.com/angelmondragon/arepera-backend/api/middleware"
	"github.com/angelmondragon/arepera-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

func callerFromRequest(r *http.Request) (auth.Caller, error) {
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		return auth.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return caller, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
