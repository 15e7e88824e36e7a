package testutil

import (
	"context"
	"net/http"

	"familygate/internal/platform/middleware"
)

// WithAccount adds an account ID to the request context, simulating the
// auth middleware for authenticated requests.
func WithAccount(req *http.Request, accountID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyAccountID, accountID)
	return req.WithContext(ctx)
}

// WithIdentity adds the full identity claim set to the request context.
func WithIdentity(req *http.Request, accountID, email, role, activeProfileID, sessionID string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.ContextKeyAccountID, accountID)
	ctx = context.WithValue(ctx, middleware.ContextKeyEmail, email)
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	ctx = context.WithValue(ctx, middleware.ContextKeyActiveProfileID, activeProfileID)
	ctx = context.WithValue(ctx, middleware.ContextKeySessionID, sessionID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
