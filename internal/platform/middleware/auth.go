package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator defines the interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*IdentityClaims, error)
}

// IdentityClaims represents the externally-verified identity a request acts
// as. The core consumes the decoded output only; signature verification
// lives with the validator.
type IdentityClaims struct {
	AccountID       string
	Email           string
	Role            string
	ActiveProfileID string
	SessionID       string
}

// Context keys for storing authenticated identity information.
type contextKeyAccountID struct{}
type contextKeyEmail struct{}
type contextKeyRole struct{}
type contextKeyActiveProfileID struct{}
type contextKeySessionID struct{}

var (
	ContextKeyAccountID       = contextKeyAccountID{}
	ContextKeyEmail           = contextKeyEmail{}
	ContextKeyRole            = contextKeyRole{}
	ContextKeyActiveProfileID = contextKeyActiveProfileID{}
	ContextKeySessionID       = contextKeySessionID{}
)

// GetAccountID retrieves the authenticated account ID from the context.
func GetAccountID(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyAccountID).(string)
	if !ok {
		return ""
	}
	return v
}

// GetEmail retrieves the authenticated email from the context.
func GetEmail(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyEmail).(string)
	if !ok {
		return ""
	}
	return v
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return v
}

// GetActiveProfileID retrieves the active profile pointer asserted by the
// presented token. May be empty before the first switch.
func GetActiveProfileID(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyActiveProfileID).(string)
	if !ok {
		return ""
	}
	return v
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return v
}

// RequireAuth rejects requests without a valid bearer token and stores the
// decoded identity claims in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w, r, logger, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyAccountID, claims.AccountID)
			ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = context.WithValue(ctx, ContextKeyActiveProfileID, claims.ActiveProfileID)
			ctx = context.WithValue(ctx, ContextKeySessionID, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
	}
}
