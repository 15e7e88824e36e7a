// Package handler exposes the profile switch route.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"familygate/internal/identity/service"
	"familygate/internal/platform/metrics"
	"familygate/internal/platform/middleware"
	"familygate/internal/transport/http/shared"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Service defines the identity context operations used by the routes.
type Service interface {
	Switch(ctx context.Context, accountID domain.AccountID, sessionID domain.SessionID, targetProfileID domain.ProfileID, deviceName string) (*service.SwitchResult, error)
}

// Handler handles identity-context endpoints.
type Handler struct {
	logger    *slog.Logger
	identity  Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(
	identity Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator,
) *Handler {
	return &Handler{
		logger:    logger,
		identity:  identity,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(ir chi.Router) {
		ir.Use(middleware.Recovery(h.logger))
		ir.Use(middleware.RequestID)
		ir.Use(middleware.Logger(h.logger))
		ir.Use(middleware.Timeout(30 * time.Second))
		ir.Use(middleware.ContentTypeJSON)
		ir.Use(middleware.LatencyMiddleware(h.metrics))
		ir.Use(middleware.RequireAuth(h.validator, h.logger))
		ir.Post("/profiles/{id}/switch", h.handleSwitch)
	})
}

func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "account id missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	targetProfileID, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// Tokens minted outside a switch carry no session yet; the first
	// switch creates one.
	sessionID := domain.SessionID(uuid.New())
	if raw := middleware.GetSessionID(ctx); raw != "" {
		parsed, err := domain.ParseSessionID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session"))
			return
		}
		sessionID = parsed
	}

	result, err := h.identity.Switch(ctx, accountID, sessionID, targetProfileID, deviceName(r.UserAgent()))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			if h.metrics != nil {
				h.metrics.SwitchesDenied.Inc()
			}
			h.logger.WarnContext(ctx, "profile switch denied",
				"request_id", requestID,
				"profile_id", targetProfileID.String(),
			)
		} else if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to switch profile",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.TokenPairsIssued.Inc()
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"profile":       shared.NewProfileResponse(result.Profile),
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"token_type":    result.Tokens.TokenType,
		"expires_in":    result.Tokens.ExpiresIn,
	})
}

// deviceName condenses a User-Agent header into a short display string
// for the session record.
func deviceName(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	if browser == "" {
		return ua.OS()
	}
	if ua.OS() == "" {
		return browser
	}
	return browser + " on " + ua.OS()
}
