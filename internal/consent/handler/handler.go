// Package handler exposes the guardian consent routes.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	consentModel "familygate/internal/consent/models"
	"familygate/internal/consent/service"
	"familygate/internal/platform/metrics"
	"familygate/internal/platform/middleware"
	profilemodels "familygate/internal/profile/models"
	"familygate/internal/transport/http/shared"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the consent engine operations used by the routes.
type Service interface {
	Grant(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID, verification consentModel.Verification) (*service.GrantResult, error)
	Revoke(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID, reason string) (*profilemodels.View, error)
	CheckRenewal(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*consentModel.RenewalStatus, error)
	History(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID) ([]*consentModel.ConsentRecord, error)
}

// Handler handles consent endpoints.
type Handler struct {
	logger    *slog.Logger
	consent   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(
	consent Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator,
) *Handler {
	return &Handler{
		logger:    logger,
		consent:   consent,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(cr chi.Router) {
		cr.Use(middleware.Recovery(h.logger))
		cr.Use(middleware.RequestID)
		cr.Use(middleware.Logger(h.logger))
		cr.Use(middleware.Timeout(30 * time.Second))
		cr.Use(middleware.ContentTypeJSON)
		cr.Use(middleware.LatencyMiddleware(h.metrics))
		cr.Use(middleware.RequireAuth(h.validator, h.logger))
		cr.Post("/profiles/{id}/consent/grant", h.handleGrant)
		cr.Post("/profiles/{id}/consent/revoke", h.handleRevoke)
		cr.Get("/profiles/{id}/consent/check", h.handleCheck)
		cr.Get("/profiles/{id}/consent-history", h.handleHistory)
	})
}

type grantConsentRequest struct {
	Signature    string `json:"signature"`
	TermsVersion string `json:"terms_version"`
	Method       string `json:"method"`
}

type revokeConsentRequest struct {
	Reason string `json:"reason"`
}

type consentRecordResponse struct {
	ID             string     `json:"id"`
	ChildProfileID string     `json:"child_profile_id"`
	GrantedAt      time.Time  `json:"granted_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Status         string     `json:"status"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedReason  string     `json:"revoked_reason,omitempty"`
	TermsVersion   string     `json:"terms_version"`
	Method         string     `json:"verification_method"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, profileID, ok := h.routeIdentity(ctx, w, r)
	if !ok {
		return
	}

	var req grantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Signature == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "signature is required"))
		return
	}

	verification := consentModel.Verification{
		Signature:    req.Signature,
		TermsVersion: req.TermsVersion,
		Method:       req.Method,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	}

	result, err := h.consent.Grant(ctx, profileID, accountID, verification)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to grant consent",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ConsentsGranted.Inc()
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"profile": shared.NewProfileResponse(result.Profile),
		"record":  toRecordResponse(result.Record),
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, profileID, ok := h.routeIdentity(ctx, w, r)
	if !ok {
		return
	}

	var req revokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.consent.Revoke(ctx, profileID, accountID, req.Reason)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to revoke consent",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ConsentsRevoked.Inc()
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"profile": shared.NewProfileResponse(view),
	})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, profileID, ok := h.routeIdentity(ctx, w, r)
	if !ok {
		return
	}

	status, err := h.consent.CheckRenewal(ctx, accountID, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to check consent renewal",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"needs_renewal": status.NeedsRenewal,
		"expires_at":    status.ExpiresAt,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, profileID, ok := h.routeIdentity(ctx, w, r)
	if !ok {
		return
	}

	records, err := h.consent.History(ctx, profileID, accountID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to list consent history",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	out := make([]consentRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) routeIdentity(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.AccountID, domain.ProfileID, bool) {
	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "account id missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.AccountID{}, domain.ProfileID{}, false
	}
	profileID, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return domain.AccountID{}, domain.ProfileID{}, false
	}
	return accountID, profileID, true
}

func toRecordResponse(record *consentModel.ConsentRecord) consentRecordResponse {
	return consentRecordResponse{
		ID:             record.ID.String(),
		ChildProfileID: record.ChildProfileID.String(),
		GrantedAt:      record.GrantedAt,
		ExpiresAt:      record.ExpiresAt,
		Status:         string(record.Status),
		RevokedAt:      record.RevokedAt,
		RevokedReason:  record.RevokedReason,
		TermsVersion:   record.Verification.TermsVersion,
		Method:         record.Verification.Method,
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
