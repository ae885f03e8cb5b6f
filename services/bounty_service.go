package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"issue-bounty-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinel outcomes for the maintainer API. These are policy rejections, not
// collaborator failures; handlers map them to 4xx responses.
var (
	ErrBountyNotFound    = errors.New("bounty not found")
	ErrBountyNotOpen     = errors.New("bounty is not open")
	ErrNotCreator        = errors.New("only the bounty creator may do this")
	ErrClaimNotFound     = errors.New("no claim from this contributor on the bounty")
	ErrMissingWallet     = errors.New("payout address not registered")
	ErrNotPaymentPending = errors.New("bounty is not awaiting payment")
	ErrAlreadyCompleted  = errors.New("bounty is already completed")
	ErrInvalidAmount     = errors.New("amount must be a positive integer")
)

// Actor identifies the GitHub user behind a command or API call.
type Actor struct {
	ID    int64
	Login string
}

// PayoutInstruction tells the external payment service what to transfer.
// This service never moves funds itself.
type PayoutInstruction struct {
	SourceWallet      string `json:"source_wallet"`
	DestinationWallet string `json:"destination_wallet"`
	Amount            int64  `json:"amount"`
}

// BountyService is the sole writer of bounty and claim state. Multi-step
// transitions run inside DB.Transaction; notifications go out only after the
// transaction committed, so a failed comment never rolls back state.
type BountyService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewBountyService(db *gorm.DB, notifier Notifier) *BountyService {
	return &BountyService{DB: db, Notifier: notifier}
}

type CreateBountyInput struct {
	IssueID     int64
	IssueNumber int
	IssueTitle  string
	IssueURL    string
	Repository  string
	Amount      int64
	Creator     Actor
}

// CreateBounty opens a new bounty on an issue. A still-open bounty on the
// same issue is expected contention (double delivery, second attempt): it
// produces a duplicate notice on the issue and a nil bounty, not an error.
// The pre-check gives fast feedback; the partial unique index on
// (issue_id, status = open) is what actually wins the race, so a duplicate
// key on insert is folded into the same outcome.
func (s *BountyService) CreateBounty(ctx context.Context, in CreateBountyInput) (*models.Bounty, error) {
	var existing models.Bounty
	err := s.DB.WithContext(ctx).
		Where("issue_id = ? AND status = ?", in.IssueID, models.BountyStatusOpen).
		First(&existing).Error
	if err == nil {
		log.Printf("[BOUNTY] Duplicate create on issue %d (%s), bounty #%d already open", in.IssueID, in.Repository, existing.ID)
		s.notifyIssue(ctx, in.Repository, in.IssueNumber, duplicateOpenBountyMessage(existing.ID))
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	bounty := models.Bounty{
		IssueID:      in.IssueID,
		IssueNumber:  in.IssueNumber,
		IssueTitle:   in.IssueTitle,
		IssueURL:     in.IssueURL,
		Repository:   in.Repository,
		Amount:       in.Amount,
		Status:       models.BountyStatusOpen,
		CreatorID:    in.Creator.ID,
		CreatorLogin: in.Creator.Login,
	}
	if err := s.DB.WithContext(ctx).Create(&bounty).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent create. Same outcome as the pre-check.
			log.Printf("[BOUNTY] Concurrent create lost on issue %d (%s)", in.IssueID, in.Repository)
			s.notifyIssue(ctx, in.Repository, in.IssueNumber, duplicateOpenBountyMessage(0))
			return nil, nil
		}
		return nil, err
	}

	log.Printf("✅ [BOUNTY] Created bounty #%d (%d) on %s#%d by %s", bounty.ID, bounty.Amount, in.Repository, in.IssueNumber, in.Creator.Login)
	s.notifyIssue(ctx, in.Repository, in.IssueNumber, bountyCreatedMessage(bounty))
	return &bounty, nil
}

type ClaimBountyInput struct {
	BountyID          int64
	PullRequestNumber int
	Repository        string
	Claimant          Actor
}

// ClaimBounty records a contributor's intent to resolve a bounty via a pull
// request. Onboarding gaps, unknown bounties, self-claims and duplicate
// claims are all expected outcomes: they notify on the PR and return nil.
// The (bounty_id, pull_request_number) unique index is the race guard: a
// duplicate key from the insert is the "already claimed" outcome, not a
// failure.
func (s *BountyService) ClaimBounty(ctx context.Context, in ClaimBountyInput) (*models.BountyClaim, error) {
	var claimant models.User
	err := s.DB.WithContext(ctx).Where("github_id = ?", in.Claimant.ID).First(&claimant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.notifyPullRequest(ctx, in.Repository, in.PullRequestNumber, onboardingMessage(in.Claimant.Login))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var bounty models.Bounty
	err = s.DB.WithContext(ctx).
		Where("id = ? AND status = ?", in.BountyID, models.BountyStatusOpen).
		First(&bounty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.notifyPullRequest(ctx, in.Repository, in.PullRequestNumber, noOpenBountyMessage(in.BountyID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bounty.CreatorID == in.Claimant.ID {
		s.notifyPullRequest(ctx, in.Repository, in.PullRequestNumber, ownBountyMessage(bounty.ID))
		return nil, nil
	}

	claim := models.BountyClaim{
		ID:                uuid.NewString(),
		BountyID:          bounty.ID,
		PullRequestNumber: in.PullRequestNumber,
		ClaimantID:        in.Claimant.ID,
		ClaimantLogin:     in.Claimant.Login,
	}
	if err := s.DB.WithContext(ctx).Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("[BOUNTY] Duplicate claim on bounty #%d from PR #%d", bounty.ID, in.PullRequestNumber)
			s.notifyPullRequest(ctx, in.Repository, in.PullRequestNumber, alreadyClaimedMessage(bounty.ID))
			return nil, nil
		}
		return nil, err
	}

	log.Printf("✅ [BOUNTY] Claim on bounty #%d by %s via %s#%d", bounty.ID, in.Claimant.Login, in.Repository, in.PullRequestNumber)
	s.notifyPullRequest(ctx, in.Repository, in.PullRequestNumber, claimPendingMessage(bounty, in.Claimant.Login))
	return &claim, nil
}

// ApproveClaim transitions a bounty from open to payment pending, binding it
// to one claimant. Creator-only; both sides need a registered payout
// address. Returns the transfer instruction for the payment service.
func (s *BountyService) ApproveClaim(ctx context.Context, bountyID uint, creator Actor, claimantID int64) (*PayoutInstruction, error) {
	var (
		bounty models.Bounty
		claim  models.BountyClaim
		payout PayoutInstruction
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bounty, bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBountyNotFound
			}
			return err
		}
		if bounty.CreatorID != creator.ID {
			return ErrNotCreator
		}
		if bounty.Status != models.BountyStatusOpen {
			return ErrBountyNotOpen
		}

		if err := tx.Where("bounty_id = ? AND claimant_id = ?", bounty.ID, claimantID).
			First(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClaimNotFound
			}
			return err
		}

		source, err := s.walletFor(tx, creator.ID)
		if err != nil {
			return err
		}
		destination, err := s.walletFor(tx, claimantID)
		if err != nil {
			return err
		}

		if err := tx.Model(&bounty).Updates(map[string]interface{}{
			"status":     models.BountyStatusPaymentPending,
			"claimed_by": claimantID,
		}).Error; err != nil {
			return err
		}

		payout = PayoutInstruction{
			SourceWallet:      source,
			DestinationWallet: destination,
			Amount:            bounty.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [BOUNTY] Approved %s on bounty #%d, payment pending", claim.ClaimantLogin, bounty.ID)
	s.notifyIssue(ctx, bounty.Repository, bounty.IssueNumber, approvedMessage(bounty, claim.ClaimantLogin))
	s.notifyPullRequest(ctx, bounty.Repository, claim.PullRequestNumber, approvedMessage(bounty, claim.ClaimantLogin))
	return &payout, nil
}

// walletFor resolves a registered payout address inside the approval
// transaction. A user unknown to the mirror counts as a missing wallet.
func (s *BountyService) walletFor(tx *gorm.DB, githubID int64) (string, error) {
	var user models.User
	if err := tx.Where("github_id = ?", githubID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w (github id %d)", ErrMissingWallet, githubID)
		}
		return "", err
	}
	if user.WalletAddress == nil || *user.WalletAddress == "" {
		return "", fmt.Errorf("%w for %s", ErrMissingWallet, user.GithubLogin)
	}
	return *user.WalletAddress, nil
}

// UpdateAmount edits the bounty amount in place, status untouched. The
// amendment notice fans out to the issue and every claiming PR; one failed
// post never blocks the others.
func (s *BountyService) UpdateAmount(ctx context.Context, bountyID uint, creator Actor, amount int64) (*models.Bounty, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		bounty models.Bounty
		claims []models.BountyClaim
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bounty, bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBountyNotFound
			}
			return err
		}
		if bounty.CreatorID != creator.ID {
			return ErrNotCreator
		}
		if bounty.Status == models.BountyStatusCompleted {
			return ErrAlreadyCompleted
		}
		if err := tx.Model(&bounty).Update("amount", amount).Error; err != nil {
			return err
		}
		return tx.Where("bounty_id = ?", bounty.ID).Find(&claims).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [BOUNTY] Amount on bounty #%d updated to %d", bounty.ID, amount)
	notice := amountUpdatedMessage(bounty)
	s.notifyIssue(ctx, bounty.Repository, bounty.IssueNumber, notice)
	for _, claim := range claims {
		s.notifyPullRequest(ctx, bounty.Repository, claim.PullRequestNumber, notice)
	}
	return &bounty, nil
}

// CompleteBounty marks a payment-pending bounty as completed. Completing a
// bounty in any other status is rejected; out-of-order completion is a
// caller bug, not a silent no-op.
func (s *BountyService) CompleteBounty(ctx context.Context, bountyID uint, creator Actor) error {
	var bounty models.Bounty
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bounty, bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBountyNotFound
			}
			return err
		}
		if bounty.CreatorID != creator.ID {
			return ErrNotCreator
		}
		if bounty.Status != models.BountyStatusPaymentPending {
			return ErrNotPaymentPending
		}
		return tx.Model(&bounty).Update("status", models.BountyStatusCompleted).Error
	})
	if err != nil {
		return err
	}

	log.Printf("✅ [BOUNTY] Bounty #%d completed", bounty.ID)
	s.notifyIssue(ctx, bounty.Repository, bounty.IssueNumber, completedMessage(bounty))
	return nil
}

// DeleteBounty removes a non-completed bounty and all of its claims in one
// transaction. Claimants are notified afterwards, best effort per claimant.
func (s *BountyService) DeleteBounty(ctx context.Context, bountyID uint, creator Actor) error {
	var (
		bounty models.Bounty
		claims []models.BountyClaim
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bounty, bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBountyNotFound
			}
			return err
		}
		if bounty.CreatorID != creator.ID {
			return ErrNotCreator
		}
		if bounty.Status == models.BountyStatusCompleted {
			return ErrAlreadyCompleted
		}
		if err := tx.Where("bounty_id = ?", bounty.ID).Find(&claims).Error; err != nil {
			return err
		}
		if err := tx.Where("bounty_id = ?", bounty.ID).Delete(&models.BountyClaim{}).Error; err != nil {
			return err
		}
		return tx.Delete(&bounty).Error
	})
	if err != nil {
		return err
	}

	log.Printf("✅ [BOUNTY] Deleted bounty #%d with %d claim(s)", bounty.ID, len(claims))
	notice := deletedMessage(bounty)
	s.notifyIssue(ctx, bounty.Repository, bounty.IssueNumber, notice)
	for _, claim := range claims {
		s.notifyPullRequest(ctx, bounty.Repository, claim.PullRequestNumber, notice)
	}
	return nil
}

// ClearInstallation drops the installation reference from every mirrored
// user bound to it. Idempotent: re-delivery matches zero rows.
func (s *BountyService) ClearInstallation(ctx context.Context, installationID int64) error {
	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("installation_id = ?", installationID).
		Update("installation_id", nil)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("[BOUNTY] Cleared installation %d from %d user(s)", installationID, result.RowsAffected)
	return nil
}

// ClaimView decorates a stored claim with its derived status.
type ClaimView struct {
	models.BountyClaim
	Status string `json:"status"`
}

// BountyView is a bounty plus the derived view of its claims.
type BountyView struct {
	models.Bounty
	Claims []ClaimView `json:"claims"`
}

// GetCreatedBounties lists bounties created by a user, newest first.
func (s *BountyService) GetCreatedBounties(ctx context.Context, creatorID int64) ([]BountyView, error) {
	var bounties []models.Bounty
	err := s.DB.WithContext(ctx).
		Preload("Claims").
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&bounties).Error
	if err != nil {
		return nil, err
	}
	return projectBounties(bounties), nil
}

// GetClaimedBounties lists bounties a user has claims against.
func (s *BountyService) GetClaimedBounties(ctx context.Context, claimantID int64) ([]BountyView, error) {
	var bounties []models.Bounty
	err := s.DB.WithContext(ctx).
		Preload("Claims").
		Joins("JOIN bounty_claims ON bounty_claims.bounty_id = bounties.id").
		Where("bounty_claims.claimant_id = ?", claimantID).
		Order("bounties.created_at DESC").
		Find(&bounties).Error
	if err != nil {
		return nil, err
	}
	return projectBounties(bounties), nil
}

func projectBounties(bounties []models.Bounty) []BountyView {
	views := make([]BountyView, 0, len(bounties))
	for _, bounty := range bounties {
		view := BountyView{Bounty: bounty, Claims: make([]ClaimView, 0, len(bounty.Claims))}
		for _, claim := range bounty.Claims {
			view.Claims = append(view.Claims, ClaimView{
				BountyClaim: claim,
				Status:      claim.DerivedStatus(bounty.ClaimedBy),
			})
		}
		view.Bounty.Claims = nil
		views = append(views, view)
	}
	return views
}

func (s *BountyService) notifyIssue(ctx context.Context, repo string, issueNumber int, body string) {
	if err := s.Notifier.PostIssueComment(ctx, repo, issueNumber, body); err != nil {
		log.Printf("❌ [NOTIFY] Issue comment on %s#%d failed: %v", repo, issueNumber, err)
	}
}

func (s *BountyService) notifyPullRequest(ctx context.Context, repo string, prNumber int, body string) {
	if err := s.Notifier.PostPullRequestComment(ctx, repo, prNumber, body); err != nil {
		log.Printf("❌ [NOTIFY] PR comment on %s#%d failed: %v", repo, prNumber, err)
	}
}
