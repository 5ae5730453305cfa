package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elevatespaces/staging-api/internal/cache"
	"github.com/elevatespaces/staging-api/internal/config"
	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/events"
	"github.com/elevatespaces/staging-api/internal/handlers"
	authmw "github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := cache.NewRedisClient(ctx, cfg.Redis)
	creditCache := cache.NewCreditCache(redisClient, cfg.Redis.SnapshotTTL)
	publisher := events.NewPublisher(cfg.AMQP.URL)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	teamService := services.NewTeamService(db)
	ledgerService := services.NewLedgerService(db)
	inviteService := services.NewInviteService(db, jwtService, cfg.InviteExpiry)
	meteringService := services.NewMeteringService(db, ledgerService, publisher)
	emailService := services.NewEmailService(cfg.SMTP)

	authHandler := handlers.NewAuthHandler(userService, tokenService, jwtService)
	userHandler := handlers.NewUserHandler(userService, ledgerService, creditCache)
	teamHandler := handlers.NewTeamHandler(teamService, ledgerService, creditCache)
	inviteHandler := handlers.NewInviteHandler(inviteService, teamService, userService, emailService, cfg.FrontendURL)
	creditHandler := handlers.NewCreditHandler(ledgerService, creditCache)
	generationHandler := handlers.NewGenerationHandler(meteringService, creditCache)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// Public: the invite token and payment reference are the credentials.
	api.Post("/invites/accept", inviteHandler.Accept)
	api.Post("/webhooks/payment", creditHandler.PaymentWebhook)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)
	protected.Get("/users/me/credits", userHandler.GetMyCredits)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Get("/teams/:id/members", teamHandler.GetMembers)
	protected.Get("/teams/:id/credits", teamHandler.GetCredits)
	protected.Patch("/teams/:id/members/:memberId/role", teamHandler.ChangeMemberRole)
	protected.Delete("/teams/:id/members/:memberId", teamHandler.RemoveMember)
	protected.Post("/teams/:id/leave", teamHandler.Leave)

	protected.Get("/teams/:id/invites", inviteHandler.List)
	protected.Post("/teams/:id/invites", inviteHandler.Create)
	protected.Post("/teams/:id/invites/resend", inviteHandler.Resend)

	protected.Post("/teams/:id/wallet/transfer", creditHandler.Transfer)
	protected.Post("/teams/:id/allocations", creditHandler.Allocate)

	protected.Post("/generations", generationHandler.Create)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			bg := context.Background()
			_ = tokenService.CleanupExpired(bg)
			if n, err := inviteService.SweepExpired(bg); err != nil {
				log.Printf("invite sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("marked %d expired invites as failed", n)
			}
			if n, err := ledgerService.FailStalePendingPurchases(bg, 24*time.Hour); err != nil {
				log.Printf("purchase sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("marked %d stale purchases as failed", n)
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
