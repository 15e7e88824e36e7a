// Package handler exposes the profile read and restricted-update routes.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	profilemodels "familygate/internal/profile/models"
	"familygate/internal/platform/metrics"
	"familygate/internal/platform/middleware"
	"familygate/internal/transport/http/shared"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Service defines the profile read and personal-update operations.
type Service interface {
	Fetch(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*profilemodels.View, error)
	List(ctx context.Context, accountID domain.AccountID) ([]*profilemodels.View, error)
	Update(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID, update profilemodels.PersonalUpdate) (*profilemodels.View, error)
}

// Creator is the consent-engine create path. Profile creation always
// routes through it so tier rules apply.
type Creator interface {
	CreateProfile(ctx context.Context, accountID domain.AccountID, personID domain.PersonID, relationship profilemodels.Relationship, parentProfileID *domain.ProfileID) (*profilemodels.View, error)
}

// Handler handles profile endpoints.
type Handler struct {
	logger    *slog.Logger
	profiles  Service
	creator   Creator
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(
	profiles Service,
	creator Creator,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator,
) *Handler {
	return &Handler{
		logger:    logger,
		profiles:  profiles,
		creator:   creator,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Recovery(h.logger))
		pr.Use(middleware.RequestID)
		pr.Use(middleware.Logger(h.logger))
		pr.Use(middleware.Timeout(30 * time.Second))
		pr.Use(middleware.ContentTypeJSON)
		pr.Use(middleware.LatencyMiddleware(h.metrics))
		pr.Use(middleware.RequireAuth(h.validator, h.logger))
		pr.Get("/profiles", h.handleList)
		pr.Post("/profiles", h.handleCreate)
		pr.Get("/profiles/{id}", h.handleFetch)
		pr.Patch("/profiles/{id}", h.handleUpdate)
	})
}

type createProfileRequest struct {
	PersonID        string  `json:"person_id"`
	Relationship    string  `json:"relationship"`
	ParentProfileID *string `json:"parent_profile_id,omitempty"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}

	views, err := h.profiles.List(ctx, accountID)
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

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}
	profileID, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.profiles.Fetch(ctx, accountID, profileID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to fetch profile",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewProfileResponse(view))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	personID, err := domain.ParsePersonID(req.PersonID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var parentProfileID *domain.ProfileID
	if req.ParentProfileID != nil {
		parsed, err := domain.ParseProfileID(*req.ParentProfileID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		parentProfileID = &parsed
	}

	view, err := h.creator.CreateProfile(ctx, accountID, personID, profilemodels.Relationship(req.Relationship), parentProfileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to create profile",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ProfilesCreated.Inc()
	}
	shared.WriteJSON(w, http.StatusCreated, shared.NewProfileResponse(view))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.accountFromContext(ctx, w)
	if !ok {
		return
	}
	profileID, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.profiles.Update(ctx, accountID, profileID, profilemodels.PersonalUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to update profile",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewProfileResponse(view))
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
