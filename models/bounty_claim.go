package models

import "time"

// Derived claim statuses — a projection over the parent bounty's ClaimedBy,
// never stored.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusAccepted = "accepted"
	ClaimStatusRejected = "rejected"
)

// BountyClaim is a contributor's declared intent to resolve a bounty via a
// specific pull request. Rows are immutable once created and only ever
// removed as a cascade of bounty deletion. The composite unique index
// rejects a second claim on the same (bounty, PR) pair at the store level.
type BountyClaim struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID          uint   `gorm:"not null;uniqueIndex:udx_claim_bounty_pr" json:"bounty_id"`
	PullRequestNumber int    `gorm:"not null;uniqueIndex:udx_claim_bounty_pr" json:"pull_request_number"`

	ClaimantID    int64  `gorm:"index;not null" json:"claimant_id"` // GitHub user ID
	ClaimantLogin string `json:"claimant_login"`

	ClaimedAt time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}

// DerivedStatus computes the accepted/rejected/pending view of a claim from
// the parent bounty's ClaimedBy. Accepted the moment the creator approves
// this claimant, rejected once someone else is approved.
func (c BountyClaim) DerivedStatus(claimedBy *int64) string {
	if claimedBy == nil {
		return ClaimStatusPending
	}
	if *claimedBy == c.ClaimantID {
		return ClaimStatusAccepted
	}
	return ClaimStatusRejected
}
