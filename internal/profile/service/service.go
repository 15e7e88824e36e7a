// Package service exposes the read and restricted-update surface of the
// profile store. Authorization fields are out of reach here: the update
// path accepts only the fixed personal-field allow-list, and the service
// never holds the store's authority writer.
package service

import (
	"context"

	"familygate/internal/profile/models"
	"familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

type Service struct {
	profiles store.Store
}

func NewService(profiles store.Store) *Service {
	return &Service{profiles: profiles}
}

// Fetch returns one profile with denormalized person fields. Profiles not
// owned by the account read as not-found.
func (s *Service) Fetch(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*models.View, error) {
	view, err := s.profiles.Find(ctx, accountID, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}
	return view, nil
}

// List returns the account's profiles, parents before children, then
// ascending creation time.
func (s *Service) List(ctx context.Context, accountID domain.AccountID) ([]*models.View, error) {
	views, err := s.profiles.List(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return views, nil
}

// Update applies the personal-field allow-list. The request type cannot
// express authorization fields, so no validation against them is needed;
// the separation is structural.
func (s *Service) Update(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID, update models.PersonalUpdate) (*models.View, error) {
	if update.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no updatable fields provided")
	}
	view, err := s.profiles.UpdatePersonal(ctx, accountID, profileID, update)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return view, nil
}
