// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"issue-bounty-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartReminderScheduler nudges open bounties that sat unclaimed past
// staleAfter. Each bounty is reminded once; the posted comment repeats the
// claim instructions.
func (s *BountyService) StartReminderScheduler(interval, staleAfter time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.RemindStaleBounties(context.Background(), staleAfter)
		}),
	)
}

// RemindStaleBounties finds open, unclaimed, not-yet-reminded bounties older
// than staleAfter and posts a reminder on each issue. Per-bounty isolation:
// one failed post does not stop the sweep.
func (s *BountyService) RemindStaleBounties(ctx context.Context, staleAfter time.Duration) {
	cutoff := time.Now().Add(-staleAfter)

	var stale []models.Bounty
	err := s.DB.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND created_at <= ?", models.BountyStatusOpen, cutoff).
		Where("id NOT IN (?)", s.DB.Model(&models.BountyClaim{}).Select("bounty_id")).
		Find(&stale).Error
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}

	for _, bounty := range stale {
		now := time.Now()
		if err := s.DB.WithContext(ctx).Model(&bounty).Update("reminder_sent_at", &now).Error; err != nil {
			log.Printf("[Scheduler] Failed to mark reminder on bounty #%d: %v", bounty.ID, err)
			continue
		}
		s.notifyIssue(ctx, bounty.Repository, bounty.IssueNumber, reminderMessage(bounty))
		log.Printf("⏰ Reminded stale bounty #%d on %s#%d", bounty.ID, bounty.Repository, bounty.IssueNumber)
	}
}
