// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"issue-bounty-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredUserFromAuth matches the JSON shape of the auth service's public
// user feed. The auth service owns OAuth tokens and wallet provisioning;
// this side only mirrors what the bounty core reads.
type MirroredUserFromAuth struct {
	GithubID       int64     `json:"github_id"`
	GithubLogin    string    `json:"github_login"`
	InstallationID *int64    `json:"installation_id,omitempty"`
	WalletAddress  *string   `json:"wallet_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GetUserChangesResponse is the top-level structure of the auth service response.
type GetUserChangesResponse struct {
	Users []MirroredUserFromAuth `json:"users"`
}

type UserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/users"
	serviceToken string
	httpClient   *http.Client
}

// NewUserSyncWorker polls the auth service's changed-users feed and upserts
// the local users mirror.
func NewUserSyncWorker(db *gorm.DB, authServiceBaseURL, endpointPath, serviceToken string, httpClient *http.Client) *UserSyncWorker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &UserSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      authServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   httpClient,
	}
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Sync Worker (auth-service → users)…")
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.SyncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial user sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Incremental syncs use the newest UpdatedAt in our local mirror
			lastSyncTime := w.getLastSyncTime()
			if err := w.SyncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ User sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ User Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local users table.
func (w *UserSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM users").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0) // Fallback to epoch if no records or error
	}
	return lastTime
}

// SyncBatch fetches user changes since the given time and upserts them into
// the local users mirror. Per-user isolation: one bad row never aborts the
// rest of the batch.
func (w *UserSyncWorker) SyncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)
	log.Printf("[SYNC] 📡 Fetching user changes from auth service since=%s", sinceStr)

	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s%s?since=%s", w.baseURL, w.endpointPath, sinceStr), nil)
	if err != nil {
		return fmt.Errorf("failed to create sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to auth service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("auth service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetUserChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode auth service response: %w", err)
	}

	if len(response.Users) == 0 {
		log.Printf("[SYNC] ✅ No user changes received since %s", sinceStr)
		return nil
	}

	var upsertCount, errorCount int
	for _, remoteUser := range response.Users {
		localUser := models.User{
			GithubID:       remoteUser.GithubID,
			GithubLogin:    remoteUser.GithubLogin,
			InstallationID: remoteUser.InstallationID,
			WalletAddress:  remoteUser.WalletAddress,
			CreatedAt:      remoteUser.CreatedAt,
			UpdatedAt:      remoteUser.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "github_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"github_login", "installation_id", "wallet_address", "updated_at",
			}),
		}).Create(&localUser).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert user (github_id=%d, login=%q): %v",
				remoteUser.GithubID, remoteUser.GithubLogin, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d user(s) (%d upserted, %d errors)", len(response.Users), upsertCount, errorCount)
	return nil
}
