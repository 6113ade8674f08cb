package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mafuth/drive-to-iftar/internal/api/handlers"
	"github.com/mafuth/drive-to-iftar/internal/api/middleware"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"github.com/mafuth/drive-to-iftar/internal/service"
	"github.com/mafuth/drive-to-iftar/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, hub *websocket.Hub, repos *repository.Repositories, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Drive to Iftar API"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, services.Challenge)
	gameHandler := handlers.NewGameHandler(services.Session, repos.User, cfg)
	challengeHandler := handlers.NewChallengeHandler(services.Challenge, services.Auth, cfg)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, services.Session, services.Challenge)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/guest", authHandler.Guest)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.Put("/username", authHandler.UpdateUsername)
			})
		})

		// Game routes
		r.Route("/game", func(r chi.Router) {
			r.Get("/config", gameHandler.Config)
			r.Get("/leaderboard", gameHandler.Leaderboard)

			// WebSocket authenticates via query token, not the Bearer header
			r.Get("/ws/{sessionID}", wsHandler.Handle)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Post("/start/single", gameHandler.StartSinglePlayer)
				r.Post("/lobby", gameHandler.CreateLobby)
				r.Post("/lobby/{sessionID}/join", gameHandler.JoinLobby)
				r.Post("/lobby/{sessionID}/start", gameHandler.StartGame)
				r.Post("/lobby/{sessionID}/retry", gameHandler.RetryGame)
				r.Post("/race/{raceID}/score", gameHandler.SubmitScore)
			})
		})

		// Daily challenge routes
		r.Route("/challenge", func(r chi.Router) {
			r.Get("/leaderboard", challengeHandler.Leaderboard)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/status", challengeHandler.Status)
				r.Post("/collect", challengeHandler.Collect)
			})
		})
	})

	return r
}
