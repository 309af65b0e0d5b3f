package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/api/validators"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/types"
)

const maxRequestIDLength = 64

// RequestID propagates a client supplied request id or mints one.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := validators.SanitizeString(r.Header.Get(types.RequestIDHeader), maxRequestIDLength)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(types.RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
