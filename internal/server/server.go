// Package server wires the HTTP handlers into routers and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/handler"
	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/service"
)

// Server wraps an http.Server with the router it serves.
type Server struct {
	http            *http.Server
	router          chi.Router
	shutdownTimeout time.Duration
}

// Dependencies holds everything the arcade API handlers need.
type Dependencies struct {
	Config             *config.Config
	Tokens             *auth.Tokens
	GameRegistry       *game.Registry
	AccountService     *service.AccountService
	EconomyService     *service.EconomyService
	HighscoreService   *service.HighscoreService
	MissionService     *service.MissionService
	LeaderboardService *service.LeaderboardService
	Coins              handler.CoinSource
}

// New creates the arcade API server.
func New(deps *Dependencies) (*Server, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("login tokens are required")
	}

	s := newServer(deps.Config.Server)

	accountHandler := handler.NewAccountHandler(deps.AccountService, deps.EconomyService)
	shopHandler := handler.NewShopHandler(deps.EconomyService)
	gameHandler := handler.NewGameHandler(deps.GameRegistry, deps.AccountService, deps.HighscoreService, deps.MissionService, deps.LeaderboardService)
	coinHandler := handler.NewCoinHandler(deps.Coins, deps.Config.Server.AllowedOrigins)
	authn := handler.NewAuthenticator(deps.Tokens)

	r := s.router

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", accountHandler.HandleRegister)
		r.Post("/auth/login", accountHandler.HandleLogin)

		r.Get("/shop", shopHandler.HandleCatalog)
		r.Get("/games", gameHandler.HandleGames)
		r.Get("/highscores", gameHandler.HandleAllHighscores)
		r.Get("/global-highscores", gameHandler.HandleGlobalHighscores)

		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/", accountHandler.HandleGetUser)
			r.Get("/data", accountHandler.HandleGetUserData)
			r.Get("/missions", gameHandler.HandleDailyMissions)

			// Account changes need the owner's token
			r.Group(func(r chi.Router) {
				r.Use(authn.RequireToken, authn.RequireSelf)
				r.Post("/coins", shopHandler.HandleUpdateCoins)
				r.Put("/cosmetics/active", shopHandler.HandleSetActiveCosmetic)
				r.Post("/cosmetics/{id}", shopHandler.HandlePurchaseCosmetic)
				r.Put("/skins/{game}/active", shopHandler.HandleSelectSkin)
				r.Post("/skins/{game}/{skin}", shopHandler.HandlePurchaseSkin)
			})
		})

		r.Route("/games/{game}", func(r chi.Router) {
			r.Get("/highscores", gameHandler.HandleTopHighscores)
			r.Get("/leaderboard", gameHandler.HandleLeaderboard)
			r.Get("/tracks", gameHandler.HandleCompareTracks)

			r.Group(func(r chi.Router) {
				r.Use(authn.RequireToken)
				r.Post("/scores", gameHandler.HandleSubmitScore)
				r.Post("/progress", gameHandler.HandleProgress)
			})
		})
	})

	r.Get("/ws/coins", coinHandler.HandleStream)

	return s, nil
}

// NewGlobal creates the global highscore server. GET /healthz reports the
// state of the database behind store.
func NewGlobal(cfg config.ServerConfig, store handler.GlobalHighscoreStore, maxResults int, db handler.HealthChecker) *Server {
	s := newServer(cfg)

	globalHandler := handler.NewGlobalHandler(store, maxResults)
	healthHandler := handler.NewHealthHandler(db)
	s.router.Post("/api/highscores", globalHandler.HandleSubmit)
	s.router.Get("/api/highscores", globalHandler.HandleList)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	return s
}

func newServer(cfg config.ServerConfig) *Server {
	r := chi.NewRouter()
	r.Use(TraceIDMiddleware(log.Logger))
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	notFound := func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 15 * time.Second
	}

	return &Server{
		router: r,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: shutdown,
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("Starting HTTP server...")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP server...")
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
