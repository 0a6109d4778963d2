package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/handlers"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	generateHandler *handlers.GenerateHandler,
	chatHandler *handlers.ChatHandler,
	userHandler *handlers.UserHandler,
	webhookHandler *handlers.WebhookHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Generation Endpoints (the paths the web client calls) ────
	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware)
		r.Post("/image", generateHandler.GenerateImage)
		r.Post("/text", generateHandler.GenerateText)
	})

	// ──── Billing Webhook (token-authenticated) ────
	r.Post("/webhooks/billing", webhookHandler.Billing)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Chat Routes ────
		r.Route("/chats", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", chatHandler.CreateChat)
			r.Get("/", chatHandler.ListChats)
			r.Delete("/{id}", chatHandler.DeleteChat)
			r.Get("/{id}/messages", chatHandler.ListMessages)
			r.Post("/{id}/messages", chatHandler.PostMessage)
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Get("/credits", userHandler.GetCredits)
		})
	})

	return r
}
