// Package handler exposes the onboarding flow routes.
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
	consentservice "familygate/internal/consent/service"
	"familygate/internal/invite"
	"familygate/internal/onboarding/models"
	profilemodels "familygate/internal/profile/models"
	"familygate/internal/platform/metrics"
	"familygate/internal/platform/middleware"
	"familygate/internal/transport/http/shared"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Service defines the onboarding orchestrator operations used by the
// routes.
type Service interface {
	SelectProfiles(ctx context.Context, accountID domain.AccountID, selections []models.Selection) (*models.Result, error)
	MyRecords(ctx context.Context, email string, targeted *domain.PersonID) ([]*models.RecordCandidate, error)
	ValidateInvitation(ctx context.Context, token string) (*invite.Claims, error)
	CollectYearOfBirth(ctx context.Context, personID domain.PersonID, year int) error
	GrantConsent(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID, verification consentModel.Verification) (*consentservice.GrantResult, error)
	Profiles(ctx context.Context, accountID domain.AccountID) ([]*profilemodels.View, error)
}

// Handler handles onboarding endpoints.
type Handler struct {
	logger     *slog.Logger
	onboarding Service
	metrics    *metrics.Metrics
	validator  middleware.TokenValidator
}

func New(
	onboarding Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator,
) *Handler {
	return &Handler{
		logger:     logger,
		onboarding: onboarding,
		metrics:    metrics,
		validator:  validator,
	}
}

// Register registers the onboarding routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(or chi.Router) {
		or.Use(middleware.Recovery(h.logger))
		or.Use(middleware.RequestID)
		or.Use(middleware.Logger(h.logger))
		or.Use(middleware.Timeout(30 * time.Second))
		or.Use(middleware.ContentTypeJSON)
		or.Use(middleware.LatencyMiddleware(h.metrics))
		or.Use(middleware.RequireAuth(h.validator, h.logger))
		or.Get("/onboarding/my-records", h.handleMyRecords)
		or.Get("/onboarding/validate-invitation/{token}", h.handleValidateInvitation)
		or.Post("/onboarding/select-profiles", h.handleSelectProfiles)
		or.Post("/onboarding/collect-yob", h.handleCollectYearOfBirth)
		or.Post("/onboarding/grant-consent", h.handleGrantConsent)
		or.Get("/onboarding/profiles", h.handleProfiles)
	})
}

type selectionRequest struct {
	PersonID       string  `json:"person_id"`
	Relationship   string  `json:"relationship"`
	YearOfBirth    *int    `json:"year_of_birth,omitempty"`
	ParentPersonID *string `json:"parent_person_id,omitempty"`
}

type selectProfilesRequest struct {
	Selections []selectionRequest `json:"selections"`
}

type collectYearOfBirthRequest struct {
	PersonID    string `json:"person_id"`
	YearOfBirth int    `json:"year_of_birth"`
}

type grantConsentRequest struct {
	ChildProfileID string `json:"child_profile_id"`
	Signature      string `json:"signature"`
	TermsVersion   string `json:"terms_version"`
	Method         string `json:"method"`
}

type recordCandidateResponse struct {
	PersonID     string `json:"person_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthYear    *int   `json:"birth_year,omitempty"`
	HasBirthYear bool   `json:"has_birth_year"`
}

type skippedSelectionResponse struct {
	PersonID string `json:"person_id"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleMyRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := middleware.GetEmail(ctx)

	var targeted *domain.PersonID
	if token := r.URL.Query().Get("invitation"); token != "" {
		claims, err := h.onboarding.ValidateInvitation(ctx, token)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		targeted = claims.TargetedPersonID
		if email == "" {
			email = claims.Email
		}
	}

	candidates, err := h.onboarding.MyRecords(ctx, email, targeted)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to list roster candidates",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	out := make([]recordCandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, recordCandidateResponse{
			PersonID:     c.Person.ID.String(),
			Email:        c.Person.Email,
			FirstName:    c.Person.FirstName,
			LastName:     c.Person.LastName,
			BirthYear:    c.Person.BirthYear,
			HasBirthYear: c.HasBirthYear,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := h.onboarding.ValidateInvitation(ctx, chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := map[string]any{
		"valid":      true,
		"email":      claims.Email,
		"expires_at": claims.ExpiresAt,
	}
	if claims.TargetedPersonID != nil {
		resp["targeted_person_id"] = claims.TargetedPersonID.String()
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSelectProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}

	var req selectProfilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	selections := make([]models.Selection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		personID, err := domain.ParsePersonID(sel.PersonID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		selection := models.Selection{
			PersonID:     personID,
			Relationship: profilemodels.Relationship(sel.Relationship),
			YearOfBirth:  sel.YearOfBirth,
		}
		if sel.ParentPersonID != nil {
			parentID, err := domain.ParsePersonID(*sel.ParentPersonID)
			if err != nil {
				shared.WriteError(w, err)
				return
			}
			selection.ParentPersonID = &parentID
		}
		selections = append(selections, selection)
	}

	result, err := h.onboarding.SelectProfiles(ctx, accountID, selections)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to create profiles from selection",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ProfilesCreated.Add(float64(len(result.Profiles)))
		h.metrics.ProfilesSkipped.Add(float64(len(result.Skipped)))
	}

	skipped := make([]skippedSelectionResponse, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, skippedSelectionResponse{
			PersonID: s.PersonID.String(),
			Reason:   s.Reason,
		})
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"profiles":         shared.NewProfileResponses(result.Profiles),
		"skipped":          skipped,
		"requires_consent": result.RequiresConsent,
	})
}

func (h *Handler) handleCollectYearOfBirth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.accountFromContext(ctx, w); !ok {
		return
	}

	var req collectYearOfBirthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	personID, err := domain.ParsePersonID(req.PersonID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.onboarding.CollectYearOfBirth(ctx, personID, req.YearOfBirth); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to record birth year",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}

	var req grantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	childProfileID, err := domain.ParseProfileID(req.ChildProfileID)
	if err != nil {
		shared.WriteError(w, err)
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

	result, err := h.onboarding.GrantConsent(ctx, childProfileID, accountID, verification)
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
	})
}

func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}

	views, err := h.onboarding.Profiles(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list profiles",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"profiles": shared.NewProfileResponses(views),
	})
}

func (h *Handler) accountFromContext(ctx context.Context, w http.ResponseWriter) (domain.AccountID, bool) {
	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "account id missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.AccountID{}, false
	}
	return accountID, true
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
