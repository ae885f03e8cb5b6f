// handlers/webhook.go
package handlers

import (
	"context"
	"encoding/json"
	"log"

	"issue-bounty-system/services"
	"issue-bounty-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-github/v68/github"
)

// SetupWebhookRoutes registers the single entry point for GitHub events.
// The route is NOT behind the gateway middleware: GitHub delivers here
// directly and authenticity comes from the HMAC signature instead.
//
// The endpoint always acknowledges with 200 once the signature was checked —
// even on bad signatures or internal failures — so GitHub's retry machinery
// never amplifies load. Internal errors are logged only.
func SetupWebhookRoutes(app *fiber.App, bountyService *services.BountyService, webhookSecret string) {
	app.Post("/webhook/github", func(c *fiber.Ctx) error {
		body := c.Body()
		signature := c.Get("X-Hub-Signature-256")
		eventType := c.Get("X-GitHub-Event")
		deliveryID := c.Get("X-GitHub-Delivery")

		if err := github.ValidateSignature(signature, body, []byte(webhookSecret)); err != nil {
			log.Printf("🚫 [WEBHOOK] Signature rejected for delivery %s (%s): %v", deliveryID, eventType, err)
			return acknowledge(c)
		}

		// Audit archive of the verified raw payload; never blocks processing.
		// fasthttp reuses the body buffer after the handler returns, so the
		// goroutine gets its own copy.
		archived := make([]byte, len(body))
		copy(archived, body)
		go utils.ArchivePayload(repoFullName(body), deliveryID, archived)

		event, err := github.ParseWebHook(eventType, body)
		if err != nil {
			log.Printf("⚠️ [WEBHOOK] Unparseable %s payload (delivery %s): %v", eventType, deliveryID, err)
			return acknowledge(c)
		}

		ctx := c.UserContext()
		switch e := event.(type) {
		case *github.InstallationEvent:
			if e.GetAction() == "deleted" {
				if err := bountyService.ClearInstallation(ctx, e.GetInstallation().GetID()); err != nil {
					log.Printf("❌ [WEBHOOK] Clearing installation %d failed: %v", e.GetInstallation().GetID(), err)
				}
			}

		case *github.IssuesEvent:
			// An issue body may itself carry the create command.
			if e.GetAction() == "opened" {
				issue := e.GetIssue()
				runCreateCommand(ctx, bountyService, issue.GetBody(), e.GetRepo().GetFullName(), issue,
					services.Actor{ID: issue.GetUser().GetID(), Login: issue.GetUser().GetLogin()})
			}

		case *github.IssueCommentEvent:
			if e.GetAction() == "created" {
				actor := services.Actor{
					ID:    e.GetComment().GetUser().GetID(),
					Login: e.GetComment().GetUser().GetLogin(),
				}
				repo := e.GetRepo().GetFullName()
				issue := e.GetIssue()
				if issue.IsPullRequest() {
					// Comments on PRs arrive as issue comments; the issue
					// number is the PR number.
					runClaimCommand(ctx, bountyService, e.GetComment().GetBody(), repo, issue.GetNumber(), actor)
				} else {
					runCreateCommand(ctx, bountyService, e.GetComment().GetBody(), repo, issue, actor)
				}
			}

		case *github.PullRequestEvent:
			if e.GetAction() == "opened" {
				pr := e.GetPullRequest()
				runClaimCommand(ctx, bountyService, pr.GetBody(), e.GetRepo().GetFullName(), pr.GetNumber(),
					services.Actor{ID: pr.GetUser().GetID(), Login: pr.GetUser().GetLogin()})
			}

		case *github.PullRequestReviewCommentEvent:
			if e.GetAction() == "created" {
				runClaimCommand(ctx, bountyService, e.GetComment().GetBody(), e.GetRepo().GetFullName(),
					e.GetPullRequest().GetNumber(),
					services.Actor{ID: e.GetComment().GetUser().GetID(), Login: e.GetComment().GetUser().GetLogin()})
			}

		default:
			// Unrecognized (event, action) pairs are accepted no-ops.
		}

		return acknowledge(c)
	})
}

func runCreateCommand(ctx context.Context, svc *services.BountyService, text, repo string, issue *github.Issue, actor services.Actor) {
	amount, ok := services.ParseCreateBountyCommand(text)
	if !ok {
		return // no command in this text — the common case, stay silent
	}
	_, err := svc.CreateBounty(ctx, services.CreateBountyInput{
		IssueID:     issue.GetID(),
		IssueNumber: issue.GetNumber(),
		IssueTitle:  issue.GetTitle(),
		IssueURL:    issue.GetHTMLURL(),
		Repository:  repo,
		Amount:      amount,
		Creator:     actor,
	})
	if err != nil {
		log.Printf("❌ [WEBHOOK] create-bounty on %s#%d failed: %v", repo, issue.GetNumber(), err)
	}
}

func runClaimCommand(ctx context.Context, svc *services.BountyService, text, repo string, prNumber int, actor services.Actor) {
	bountyID, ok := services.ParseClaimBountyCommand(text)
	if !ok {
		return
	}
	_, err := svc.ClaimBounty(ctx, services.ClaimBountyInput{
		BountyID:          bountyID,
		PullRequestNumber: prNumber,
		Repository:        repo,
		Claimant:          actor,
	})
	if err != nil {
		log.Printf("❌ [WEBHOOK] claim-bounty on %s#%d failed: %v", repo, prNumber, err)
	}
}

// repoFullName peeks "owner/name" out of the raw payload for the archive
// key. Events without a repository (installation) archive under "platform".
func repoFullName(body []byte) string {
	var meta struct {
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(body, &meta); err != nil || meta.Repository.FullName == "" {
		return "platform"
	}
	return meta.Repository.FullName
}

func acknowledge(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "ok"})
}
