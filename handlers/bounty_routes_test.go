package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"issue-bounty-system/models"
	"issue-bounty-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAPIApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Bounty{}, &models.BountyClaim{}))

	app := fiber.New()
	SetupBountyRoutes(app, services.NewBountyService(db, &recordingNotifier{}))
	return app, db
}

func apiRequest(t *testing.T, app *fiber.App, method, path string, userID, login string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Login", login)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func seedApprovableBounty(t *testing.T, db *gorm.DB) *models.Bounty {
	t.Helper()
	maintWallet, contribWallet := "0xMAINT", "0xCONTRIB"
	require.NoError(t, db.Create(&models.User{GithubID: 101, GithubLogin: "maintainer", WalletAddress: &maintWallet}).Error)
	require.NoError(t, db.Create(&models.User{GithubID: 202, GithubLogin: "contributor", WalletAddress: &contribWallet}).Error)

	bounty := models.Bounty{
		IssueID: 9001, IssueNumber: 42, Repository: "org/repo",
		Amount: 500, Status: models.BountyStatusOpen, CreatorID: 101, CreatorLogin: "maintainer",
	}
	require.NoError(t, db.Create(&bounty).Error)
	require.NoError(t, db.Create(&models.BountyClaim{
		ID: "claim-1", BountyID: bounty.ID, PullRequestNumber: 7,
		ClaimantID: 202, ClaimantLogin: "contributor",
	}).Error)
	return &bounty
}

func TestBountyRoutesRequireUserContext(t *testing.T) {
	app, _ := newAPIApp(t)

	resp := apiRequest(t, app, http.MethodGet, "/s/bounties", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListCreatedBounties(t *testing.T) {
	app, db := newAPIApp(t)
	seedApprovableBounty(t, db)

	resp := apiRequest(t, app, http.MethodGet, "/s/bounties", "101", "maintainer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Bounties []struct {
			ID     uint   `json:"id"`
			Amount int64  `json:"amount"`
			Status string `json:"status"`
			Claims []struct {
				ClaimantID int64  `json:"claimant_id"`
				Status     string `json:"status"`
			} `json:"claims"`
		} `json:"bounties"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Bounties, 1)
	assert.Equal(t, int64(500), payload.Bounties[0].Amount)
	assert.Equal(t, models.BountyStatusOpen, payload.Bounties[0].Status)
	require.Len(t, payload.Bounties[0].Claims, 1)
	assert.Equal(t, models.ClaimStatusPending, payload.Bounties[0].Claims[0].Status)
}

func TestApproveEndpoint(t *testing.T) {
	app, db := newAPIApp(t)
	bounty := seedApprovableBounty(t, db)

	resp := apiRequest(t, app, http.MethodPost, fmt.Sprintf("/s/bounties/%d/approve", bounty.ID),
		"101", "maintainer", fiber.Map{"claimant_id": 202})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Payout services.PayoutInstruction `json:"payout"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "0xMAINT", payload.Payout.SourceWallet)
	assert.Equal(t, "0xCONTRIB", payload.Payout.DestinationWallet)
	assert.Equal(t, int64(500), payload.Payout.Amount)

	var updated models.Bounty
	require.NoError(t, db.First(&updated, bounty.ID).Error)
	assert.Equal(t, models.BountyStatusPaymentPending, updated.Status)
}

func TestApproveEndpointErrorMapping(t *testing.T) {
	app, db := newAPIApp(t)
	bounty := seedApprovableBounty(t, db)

	// Non-creator is forbidden.
	resp := apiRequest(t, app, http.MethodPost, fmt.Sprintf("/s/bounties/%d/approve", bounty.ID),
		"202", "contributor", fiber.Map{"claimant_id": 202})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown bounty is a 404.
	resp = apiRequest(t, app, http.MethodPost, "/s/bounties/999/approve",
		"101", "maintainer", fiber.Map{"claimant_id": 202})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Missing claimant_id is a 400.
	resp = apiRequest(t, app, http.MethodPost, fmt.Sprintf("/s/bounties/%d/approve", bounty.ID),
		"101", "maintainer", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAmountCompleteDeleteEndpoints(t *testing.T) {
	app, db := newAPIApp(t)
	bounty := seedApprovableBounty(t, db)

	// Completing before approval conflicts with the state machine.
	resp := apiRequest(t, app, http.MethodPost, fmt.Sprintf("/s/bounties/%d/complete", bounty.ID),
		"101", "maintainer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = apiRequest(t, app, http.MethodPatch, fmt.Sprintf("/s/bounties/%d/amount", bounty.ID),
		"101", "maintainer", fiber.Map{"amount": 750})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Bounty
	require.NoError(t, db.First(&updated, bounty.ID).Error)
	assert.Equal(t, int64(750), updated.Amount)

	resp = apiRequest(t, app, http.MethodPatch, fmt.Sprintf("/s/bounties/%d/amount", bounty.ID),
		"101", "maintainer", fiber.Map{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = apiRequest(t, app, http.MethodDelete, fmt.Sprintf("/s/bounties/%d", bounty.ID),
		"101", "maintainer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bountyCount, claimCount int64
	db.Model(&models.Bounty{}).Count(&bountyCount)
	db.Model(&models.BountyClaim{}).Count(&claimCount)
	assert.Equal(t, int64(0), bountyCount)
	assert.Equal(t, int64(0), claimCount)
}
