package services

import (
	"fmt"

	"issue-bounty-system/models"
)

// Comment bodies posted back to GitHub. Every command outcome — success,
// expected contention, not-found — maps to exactly one of these.

func bountyCreatedMessage(b models.Bounty) string {
	return fmt.Sprintf(
		"🎉 A bounty of **%d** has been placed on this issue by @%s!\n\n"+
			"To claim it, open a pull request that resolves the issue and include "+
			"`/claim-bounty %d` in its description.",
		b.Amount, b.CreatorLogin, b.ID,
	)
}

func duplicateOpenBountyMessage(bountyID uint) string {
	if bountyID == 0 {
		return "⚠️ There is already an open bounty on this issue. Close or delete it before creating a new one."
	}
	return fmt.Sprintf("⚠️ Bounty #%d is already open on this issue. Close or delete it before creating a new one.", bountyID)
}

func onboardingMessage(login string) string {
	return fmt.Sprintf(
		"👋 @%s, you need an account with a payout wallet before claiming bounties. "+
			"Sign in to the bounty dashboard to finish onboarding, then claim again.",
		login,
	)
}

func noOpenBountyMessage(bountyID int64) string {
	return fmt.Sprintf("❓ No open bounty with id %d was found. Check the id in the bounty comment on the issue.", bountyID)
}

func ownBountyMessage(bountyID uint) string {
	return fmt.Sprintf("🚫 You created bounty #%d — you cannot claim your own bounty.", bountyID)
}

func alreadyClaimedMessage(bountyID uint) string {
	return fmt.Sprintf("⚠️ Bounty #%d is already claimed on this pull request.", bountyID)
}

func claimPendingMessage(b models.Bounty, claimantLogin string) string {
	return fmt.Sprintf(
		"🙌 @%s has claimed bounty #%d (**%d**). @%s will review this pull request "+
			"and approve the payout once it resolves the issue.",
		claimantLogin, b.ID, b.Amount, b.CreatorLogin,
	)
}

func approvedMessage(b models.Bounty, claimantLogin string) string {
	return fmt.Sprintf(
		"✅ @%s approved @%s for bounty #%d. Payment of **%d** is now pending.",
		b.CreatorLogin, claimantLogin, b.ID, b.Amount,
	)
}

func amountUpdatedMessage(b models.Bounty) string {
	return fmt.Sprintf("✏️ The amount of bounty #%d has been updated to **%d** by @%s.", b.ID, b.Amount, b.CreatorLogin)
}

func completedMessage(b models.Bounty) string {
	return fmt.Sprintf("🏁 Bounty #%d has been paid out and is now completed.", b.ID)
}

func deletedMessage(b models.Bounty) string {
	return fmt.Sprintf("🗑️ Bounty #%d on %s was deleted by its creator. Any claims on it no longer apply.", b.ID, b.Repository)
}

func reminderMessage(b models.Bounty) string {
	return fmt.Sprintf(
		"⏰ Bounty #%d (**%d**) is still unclaimed. Open a pull request and include "+
			"`/claim-bounty %d` in its description to claim it.",
		b.ID, b.Amount, b.ID,
	)
}
