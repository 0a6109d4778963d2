package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/config"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/database"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/gemini"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/handlers"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/repository"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/router"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/services"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/session"
)

func main() {
	log.Println("🚀 Starting Lumio Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	creditRepo := repository.NewCreditRepo(pool)
	chatRepo := repository.NewChatRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiClient := gemini.NewClient(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
	})
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, creditRepo, redisClient, jwtAuth, cfg.FreeCredits)
	entitlementService := services.NewEntitlementService(creditRepo, redisClient)
	generationService := services.NewGenerationService(geminiClient, cfg.GeminiImageModel, cfg.GeminiTextModel, cfg.GeminiConcurrentReqs)
	sessions := session.NewManager(generationService)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	generateHandler := handlers.NewGenerateHandler(generationService, entitlementService)
	chatHandler := handlers.NewChatHandler(chatRepo, sessions, entitlementService)
	userHandler := handlers.NewUserHandler(userRepo, entitlementService)
	webhookHandler := handlers.NewWebhookHandler(entitlementService, cfg.BillingWebhookToken)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		generateHandler,
		chatHandler,
		userHandler,
		webhookHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
		// Generation requests can hold the connection open for a while, so
		// the write timeout is generous compared to typical API servers.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Lumio Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
