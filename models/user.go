package models

import "time"

// User is a local mirror of the auth service's users table. Owned upstream —
// the OAuth flow and wallet provisioning live there — and populated here by
// the sync worker. The bounty core only reads it: installation lookup on
// webhook events and payout addresses during approval.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	GithubID    int64  `gorm:"uniqueIndex;not null" json:"github_id"`
	GithubLogin string `gorm:"index;not null" json:"github_login"`

	// GitHub App installation that authorized this user's repositories.
	// Cleared when the platform delivers installation-deleted.
	InstallationID *int64 `gorm:"index" json:"installation_id,omitempty"`

	// Payout destination; nil until the user finishes wallet onboarding.
	WalletAddress *string `json:"wallet_address,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
