// Package models defines the server-side session state behind the
// active-profile pointer.
package models

import (
	"time"

	"familygate/pkg/domain"
)

// Session is the server-side identity context for one signed-in device.
// RefreshVersion rotates on every profile switch; refresh tokens minted
// before the rotation no longer match and are rejected.
type Session struct {
	ID              domain.SessionID  `json:"id"`
	AccountID       domain.AccountID  `json:"account_id"`
	ActiveProfileID *domain.ProfileID `json:"active_profile_id,omitempty"`
	RefreshVersion  string            `json:"refresh_version"`
	DeviceName      string            `json:"device_name,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	LastSwitchAt    time.Time         `json:"last_switch_at"`
}

// TokenPair is the minted credential set returned by a profile switch.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
