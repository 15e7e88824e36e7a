package shared

import (
	"time"

	profilemodels "familygate/internal/profile/models"
)

// ProfileResponse is the wire shape of a profile view, shared by every
// handler that returns profiles.
type ProfileResponse struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	PersonRecordID  string     `json:"person_record_id"`
	Relationship    string     `json:"relationship"`
	ParentProfileID *string    `json:"parent_profile_id,omitempty"`
	AccessLevel     string     `json:"access_level"`
	Status          string     `json:"status"`
	RequiresConsent bool       `json:"requires_consent"`
	ConsentGiven    bool       `json:"consent_given"`
	ConsentExpiry   *time.Time `json:"consent_expiry,omitempty"`
	Email           string     `json:"email,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	BirthYear       *int       `json:"birth_year,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewProfileResponse flattens a profile view for the wire.
func NewProfileResponse(view *profilemodels.View) ProfileResponse {
	resp := ProfileResponse{
		ID:              view.ID.String(),
		AccountID:       view.AccountID.String(),
		PersonRecordID:  view.PersonRecordID.String(),
		Relationship:    string(view.Relationship),
		AccessLevel:     string(view.AccessLevel),
		Status:          string(view.Status),
		RequiresConsent: view.RequiresConsent,
		ConsentGiven:    view.ConsentGiven,
		ConsentExpiry:   view.ConsentExpiry,
		Email:           view.Email,
		FirstName:       view.FirstName,
		LastName:        view.LastName,
		BirthYear:       view.BirthYear,
		CreatedAt:       view.CreatedAt,
		UpdatedAt:       view.UpdatedAt,
	}
	if view.ParentProfileID != nil {
		parent := view.ParentProfileID.String()
		resp.ParentProfileID = &parent
	}
	return resp
}

// NewProfileResponses maps a view slice preserving order.
func NewProfileResponses(views []*profilemodels.View) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(views))
	for _, view := range views {
		out = append(out, NewProfileResponse(view))
	}
	return out
}
