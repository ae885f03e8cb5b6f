// handlers/bounty_routes.go
package handlers

import (
	"errors"
	"strconv"

	"issue-bounty-system/middleware"
	"issue-bounty-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupBountyRoutes wires the maintainer-facing API. Approval, amount edits,
// completion and deletion have no chat command — the dashboard drives them
// through these endpoints, authenticated by the gateway's user context.
func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/bounties", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bounties, err := bountyService.GetCreatedBounties(c.UserContext(), actor.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list created bounties",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounties": bounties})
	})

	securedGroup.Get("/bounties/claimed", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bounties, err := bountyService.GetClaimedBounties(c.UserContext(), actor.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list claimed bounties",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounties": bounties})
	})

	securedGroup.Post("/bounties/:id/approve", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bountyID, err := bountyIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
		}

		var req struct {
			ClaimantID int64 `json:"claimant_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ClaimantID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "claimant_id is required"})
		}

		payout, err := bountyService.ApproveClaim(c.UserContext(), bountyID, actor, req.ClaimantID)
		if err != nil {
			return serviceError(c, "approval failed", err)
		}
		return c.JSON(fiber.Map{
			"message": "claim approved, payment pending",
			"payout":  payout,
		})
	})

	securedGroup.Patch("/bounties/:id/amount", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bountyID, err := bountyIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
		}

		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		bounty, err := bountyService.UpdateAmount(c.UserContext(), bountyID, actor, req.Amount)
		if err != nil {
			return serviceError(c, "amount update failed", err)
		}
		return c.JSON(bounty)
	})

	securedGroup.Post("/bounties/:id/complete", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bountyID, err := bountyIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
		}

		if err := bountyService.CompleteBounty(c.UserContext(), bountyID, actor); err != nil {
			return serviceError(c, "completion failed", err)
		}
		return c.JSON(fiber.Map{"message": "bounty completed"})
	})

	securedGroup.Delete("/bounties/:id", func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return badActor(c, err)
		}
		bountyID, err := bountyIDParam(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
		}

		if err := bountyService.DeleteBounty(c.UserContext(), bountyID, actor); err != nil {
			return serviceError(c, "deletion failed", err)
		}
		return c.JSON(fiber.Map{"message": "bounty and its claims deleted"})
	})
}

// currentActor reads the gateway-forwarded identity off the request context.
func currentActor(c *fiber.Ctx) (services.Actor, error) {
	userID, _ := c.Locals("user_id").(string)
	login, _ := c.Locals("user_login").(string)
	githubID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return services.Actor{}, errors.New("user context does not carry a numeric GitHub id")
	}
	return services.Actor{ID: githubID, Login: login}, nil
}

func badActor(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid user context",
		"cause": err.Error(),
	})
}

// serviceError maps lifecycle outcomes to HTTP statuses. Policy rejections
// are client errors; anything unexpected is a 500.
func serviceError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBountyNotFound), errors.Is(err, services.ErrClaimNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrNotCreator):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrBountyNotOpen),
		errors.Is(err, services.ErrNotPaymentPending),
		errors.Is(err, services.ErrAlreadyCompleted):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrMissingWallet), errors.Is(err, services.ErrInvalidAmount):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func bountyIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
