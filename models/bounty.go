package models

import "time"

// Bounty statuses. A bounty is claimable only while open.
const (
	BountyStatusOpen           = "open"
	BountyStatusPaymentPending = "payment_pending"
	BountyStatusCompleted      = "completed"
)

// Bounty is a monetary offer attached to a single GitHub issue.
// The partial unique index keeps at most one OPEN bounty per issue even when
// two create deliveries for the same issue commit concurrently — the
// application pre-check is only for fast feedback, the index is the guard.
type Bounty struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	IssueID     int64  `gorm:"not null;uniqueIndex:udx_open_bounty_issue,where:status = 'open'" json:"issue_id"`
	IssueNumber int    `gorm:"not null" json:"issue_number"`
	IssueTitle  string `json:"issue_title"`
	IssueURL    string `json:"issue_url"`
	Repository  string `gorm:"index;not null" json:"repository"` // "owner/name"

	Amount int64  `gorm:"not null" json:"amount"`
	Status string `gorm:"type:varchar(32);index;not null" json:"status"`

	CreatorID    int64  `gorm:"index;not null" json:"creator_id"` // GitHub user ID
	CreatorLogin string `gorm:"not null" json:"creator_login"`

	// GitHub user ID of the approved claimant; nil until approval.
	ClaimedBy *int64 `json:"claimed_by,omitempty"`

	// Set once the reminder scheduler has nudged this bounty.
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Claims []BountyClaim `gorm:"foreignKey:BountyID" json:"claims,omitempty"`
}
