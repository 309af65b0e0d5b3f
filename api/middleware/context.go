package middleware

import (
	"context"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
)

type contextKey string

const (
	ctxCaller   contextKey = "caller"
	ctxAccessID contextKey = "access_id"
)

// CallerFromContext returns the authenticated caller, or the zero Caller.
func CallerFromContext(ctx context.Context) auth.Caller {
	if ctx == nil {
		return auth.Caller{}
	}
	if v, ok := ctx.Value(ctxCaller).(auth.Caller); ok {
		return v
	}
	return auth.Caller{}
}

func UserIDFromContext(ctx context.Context) string {
	caller := CallerFromContext(ctx)
	if !caller.IsAuthenticated() {
		return ""
	}
	return caller.UserID.String()
}

// AccessIDFromContext returns the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithCaller injects the caller into the context.
func WithCaller(ctx context.Context, caller auth.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
