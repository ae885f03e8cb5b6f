package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"issue-bounty-system/handlers"
	"issue-bounty-system/middleware"
	"issue-bounty-system/models"
	"issue-bounty-system/services"
	"issue-bounty-system/utils"
	"issue-bounty-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 5 * 1024 * 1024, // GitHub caps webhook payloads well below this
	})

	// CORS for the dashboard. Load allowed origins from environment variable.
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Login, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	webhookSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("GITHUB_WEBHOOK_SECRET environment variable not set")
	}
	githubToken := os.Getenv("GITHUB_TOKEN")
	if githubToken == "" {
		log.Fatal("GITHUB_TOKEN environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey; the lifecycle engine relies on that mapping.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Bounty{},
		&models.BountyClaim{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	notifier := services.NewGitHubNotifier(githubToken, utils.HTTPClient)
	bountyService := services.NewBountyService(db, notifier)

	// --- Auth service details for the user mirror sync ---
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("BOUNTY_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("BOUNTY_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewUserSyncWorker(db, authServiceURL, "/api/v1/public/users", serviceToken, utils.HTTPClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker.Start(ctx)
	bountyService.StartReminderScheduler(1*time.Hour, 72*time.Hour)

	// Webhook endpoint is signature-authenticated; the /s API goes through
	// the Gateway.
	handlers.SetupWebhookRoutes(app, bountyService, webhookSecret)
	app.Use("/s", middleware.GatewayAuthMiddleware())
	handlers.SetupBountyRoutes(app, bountyService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ User Sync Worker running")
	log.Println("✅ Stale bounty reminder scheduler running (hourly sweep)")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
