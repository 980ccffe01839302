package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cat-game-backend/config"
	"cat-game-backend/handlers"
	"cat-game-backend/models"
	"cat-game-backend/services"
	"cat-game-backend/utils"
	"cat-game-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database:", err)
	}
	if err := services.Seed(ctx, db, cfg.SeedFile); err != nil {
		log.Fatal("failed to seed database:", err)
	}

	media, err := utils.NewMediaStore(ctx, cfg.R2)
	if err != nil {
		log.Fatal("failed to initialize media storage:", err)
	}

	verifier, err := utils.NewInitDataVerifier(cfg.Auth.BotToken, cfg.Auth.InitDataMaxAge)
	if err != nil {
		log.Fatal("❌ ", err)
	}
	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	ledger := services.NewLedger(db)
	accounts := services.NewAccountService(db, verifier, tokens, services.NewLegalClient(cfg.Legal))
	redemptions := services.NewRedemptionService(db, ledger)
	adsgram := services.NewAdsgramService(db, services.NewAdsgramClient(cfg.Adsgram), cfg.Adsgram.DefaultPlacementID)
	admin := services.NewAdminService(db, media)
	game := handlers.GameServices{
		Tasks:        services.NewTaskService(db, ledger),
		Quiz:         services.NewQuizService(db, ledger),
		Simulation:   services.NewSimulationService(db, ledger, cfg.Game.SimulationAdReward, cfg.Game.DailyRewardZone),
		DailyRewards: services.NewDailyRewardService(db, ledger, cfg.Game.DailyRewardZone),
		Failures:     services.NewFailureService(db, ledger),
		Leaderboards: services.NewLeaderboardService(db),
		Content:      services.NewContentService(db, ledger),
	}

	dispatcher := workers.NewFailureWebhookDispatcher(db, cfg.Webhooks)
	sched, err := workers.StartScheduler(ctx, dispatcher, cfg.Webhooks.Interval, adsgram, cfg.Adsgram.StaleAfter)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, media uploads
	})
	app.Use(recover.New())
	app.Use(logger.New())

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders:    "Content-Length, Content-Type",
		AllowCredentials: !strings.Contains(allowedOrigins, "*"),
		MaxAge:           86400, // 24 hours
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	guard := handlers.NewGuard(tokens, accounts)
	handlers.SetupAuthRoutes(app, guard, accounts, redemptions)
	handlers.SetupGameRoutes(app, guard, game)
	handlers.SetupAdsgramRoutes(app, guard, adsgram)
	handlers.SetupAdminRoutes(app, cfg.Auth.AdminToken, admin)

	app.Static("/"+utils.UploadDir, "./"+utils.UploadDir)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Failure webhooks every %s, ad sweep after %s", cfg.Webhooks.Interval, cfg.Adsgram.StaleAfter)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
