package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"familygate/internal/consent/handler/mocks"
	consentModel "familygate/internal/consent/models"
	"familygate/internal/consent/service"
	"familygate/internal/platform/middleware"
	profilemodels "familygate/internal/profile/models"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

type ConsentHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ConsentHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger, nil, nil)
	return handler, mockService
}

func mustUUID() uuid.UUID { return uuid.New() }

func requestContext(req *http.Request, accountID domain.AccountID, profileID domain.ProfileID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyAccountID, accountID.String())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", profileID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func (s *ConsentHandlerSuite) TestHandleGrant() {
	handler, mockService := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()
	grantTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := grantTime.Add(365 * 24 * time.Hour)

	mockService.EXPECT().Grant(
		gomock.Any(),
		profileID,
		accountID,
		gomock.Any(),
	).Return(&service.GrantResult{
		Profile: &profilemodels.View{
			Profile: profilemodels.Profile{
				ID:              profileID,
				AccountID:       accountID,
				Relationship:    profilemodels.RelationshipChild,
				AccessLevel:     profilemodels.AccessSupervised,
				Status:          profilemodels.ProfileActive,
				RequiresConsent: true,
				ConsentGiven:    true,
				ConsentExpiry:   &expiry,
			},
			FirstName: "Sam",
		},
		Record: &consentModel.ConsentRecord{
			ID:             domain.NewConsentRecordID(),
			ChildProfileID: profileID,
			GrantedAt:      grantTime,
			ExpiresAt:      expiry,
			Status:         consentModel.StatusActive,
		},
	}, nil)

	body, err := json.Marshal(grantConsentRequest{Signature: "sig-1", TermsVersion: "2026-01", Method: "checkbox"})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileID.String()+"/consent/grant", bytes.NewReader(body))
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleGrant(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	profile := resp["profile"].(map[string]any)
	assert.Equal(s.T(), "supervised", profile["access_level"])
	assert.Equal(s.T(), "active", profile["status"])
	record := resp["record"].(map[string]any)
	assert.Equal(s.T(), "active", record["status"])
}

func (s *ConsentHandlerSuite) TestHandleGrant_MissingSignature() {
	handler, _ := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()

	body, err := json.Marshal(grantConsentRequest{TermsVersion: "2026-01"})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileID.String()+"/consent/grant", bytes.NewReader(body))
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleGrant(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ConsentHandlerSuite) TestHandleGrant_NotOwnedChild() {
	handler, mockService := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()

	mockService.EXPECT().Grant(gomock.Any(), profileID, accountID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "child profile not found"))

	body, err := json.Marshal(grantConsentRequest{Signature: "sig-1"})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileID.String()+"/consent/grant", bytes.NewReader(body))
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleGrant(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *ConsentHandlerSuite) TestHandleRevoke() {
	handler, mockService := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()

	mockService.EXPECT().Revoke(gomock.Any(), profileID, accountID, "parental decision").
		Return(&profilemodels.View{
			Profile: profilemodels.Profile{
				ID:              profileID,
				AccountID:       accountID,
				Relationship:    profilemodels.RelationshipChild,
				AccessLevel:     profilemodels.AccessBlocked,
				Status:          profilemodels.ProfilePendingConsent,
				RequiresConsent: true,
			},
		}, nil)

	body, err := json.Marshal(revokeConsentRequest{Reason: "parental decision"})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileID.String()+"/consent/revoke", bytes.NewReader(body))
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleRevoke(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	profile := resp["profile"].(map[string]any)
	assert.Equal(s.T(), "blocked", profile["access_level"])
	assert.Equal(s.T(), "pending_consent", profile["status"])
}

func (s *ConsentHandlerSuite) TestHandleCheck() {
	handler, mockService := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()
	expiry := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	mockService.EXPECT().CheckRenewal(gomock.Any(), accountID, profileID).
		Return(&consentModel.RenewalStatus{NeedsRenewal: true, ExpiresAt: &expiry}, nil)

	req := httptest.NewRequest(http.MethodGet, "/profiles/"+profileID.String()+"/consent/check", nil)
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleCheck(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), true, resp["needs_renewal"])
}

func (s *ConsentHandlerSuite) TestHandleHistory() {
	handler, mockService := newTestHandler(s.T())

	accountID := domain.AccountID(mustUUID())
	profileID := domain.NewProfileID()
	grantTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	revokedAt := grantTime.Add(48 * time.Hour)

	mockService.EXPECT().History(gomock.Any(), profileID, accountID).Return([]*consentModel.ConsentRecord{
		{
			ID:             domain.NewConsentRecordID(),
			ChildProfileID: profileID,
			GrantedAt:      grantTime,
			ExpiresAt:      grantTime.Add(365 * 24 * time.Hour),
			Status:         consentModel.StatusRevoked,
			RevokedAt:      &revokedAt,
			RevokedReason:  "superseded",
		},
		{
			ID:             domain.NewConsentRecordID(),
			ChildProfileID: profileID,
			GrantedAt:      revokedAt,
			ExpiresAt:      revokedAt.Add(365 * 24 * time.Hour),
			Status:         consentModel.StatusActive,
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/profiles/"+profileID.String()+"/consent-history", nil)
	req = requestContext(req, accountID, profileID)

	w := httptest.NewRecorder()
	handler.handleHistory(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	records := resp["records"].([]any)
	require.Len(s.T(), records, 2)
	first := records[0].(map[string]any)
	assert.Equal(s.T(), "revoked", first["status"])
	assert.Equal(s.T(), "superseded", first["revoked_reason"])
}
