// Package service implements the identity context manager: profile
// switching, session state updates, and token pair minting.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"familygate/internal/audit"
	"familygate/internal/identity/models"
	"familygate/internal/identity/store"
	profilemodels "familygate/internal/profile/models"
	profilestore "familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// TokenIssuer mints signed access and refresh tokens.
type TokenIssuer interface {
	GenerateAccessToken(accountID domain.AccountID, email, role string, activeProfileID *domain.ProfileID, sessionID domain.SessionID, expiresIn time.Duration) (string, error)
	GenerateRefreshToken(accountID domain.AccountID, activeProfileID *domain.ProfileID, sessionID domain.SessionID, version string, expiresIn time.Duration) (string, error)
}

// AuditPublisher records identity events on the operational feed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// SwitchResult pairs the new active profile with the minted tokens.
type SwitchResult struct {
	Profile *profilemodels.View
	Tokens  models.TokenPair
}

type Service struct {
	profiles        profilestore.Store
	sessions        store.Store
	issuer          TokenIssuer
	auditor         AuditPublisher
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	clock           func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(
	profiles profilestore.Store,
	sessions store.Store,
	issuer TokenIssuer,
	auditor AuditPublisher,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	opts ...Option,
) *Service {
	s := &Service{
		profiles:        profiles,
		sessions:        sessions,
		issuer:          issuer,
		auditor:         auditor,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Switch moves the session's active-profile pointer to the target and
// mints a fresh token pair. A blocked target is refused outright, and
// the session's refresh version rotates so refresh tokens minted before
// the switch stop working.
func (s *Service) Switch(ctx context.Context, accountID domain.AccountID, sessionID domain.SessionID, targetProfileID domain.ProfileID, deviceName string) (*SwitchResult, error) {
	view, err := s.profiles.Find(ctx, accountID, targetProfileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	now := s.clock()
	if s.effectiveAccess(view, now) == profilemodels.AccessBlocked {
		s.auditor.Emit(ctx, audit.Event{
			Action:    audit.ActionProfileSwitched,
			AccountID: accountID.String(),
			ProfileID: targetProfileID.String(),
			Detail:    map[string]string{"outcome": "denied_blocked"},
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "profile access is blocked")
	}

	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			// First switch on a token-only session materializes the
			// server-side record.
			session = &models.Session{
				ID:        sessionID,
				AccountID: accountID,
				CreatedAt: now,
			}
		} else {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
		}
	}
	if session.AccountID != accountID {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}

	target := targetProfileID
	session.ActiveProfileID = &target
	session.RefreshVersion = uuid.NewString()
	session.LastSwitchAt = now
	if deviceName != "" {
		session.DeviceName = deviceName
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	tokens, err := s.mintPair(view, session)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionProfileSwitched,
		AccountID: accountID.String(),
		ProfileID: targetProfileID.String(),
	})
	return &SwitchResult{Profile: view, Tokens: tokens}, nil
}

// RefreshVersionMatches reports whether a presented refresh token
// version is still the session's current one. Stale versions mean the
// token predates a later switch.
func (s *Service) RefreshVersionMatches(ctx context.Context, sessionID domain.SessionID, version string) (bool, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return version != "" && session.RefreshVersion == version, nil
}

func (s *Service) mintPair(view *profilemodels.View, session *models.Session) (models.TokenPair, error) {
	role := string(view.Relationship)
	accessToken, err := s.issuer.GenerateAccessToken(session.AccountID, view.Email, role, session.ActiveProfileID, session.ID, s.accessTokenTTL)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint access token")
	}
	refreshToken, err := s.issuer.GenerateRefreshToken(session.AccountID, session.ActiveProfileID, session.ID, session.RefreshVersion, s.refreshTokenTTL)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint refresh token")
	}
	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
	}, nil
}

// effectiveAccess downgrades supervised access to blocked when granted
// consent has lapsed, regardless of the stored level.
func (s *Service) effectiveAccess(view *profilemodels.View, now time.Time) profilemodels.AccessLevel {
	if view.RequiresConsent && !view.ConsentEffective(now) {
		return profilemodels.AccessBlocked
	}
	return view.AccessLevel
}
