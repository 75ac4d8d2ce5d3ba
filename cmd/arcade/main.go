// Package main is the entry point of the arcade API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/game"
	"github.com/Jay160412/jay-website/internal/logging"
	"github.com/Jay160412/jay-website/internal/notify"
	"github.com/Jay160412/jay-website/internal/pkg/auth"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
	"github.com/Jay160412/jay-website/internal/remote"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/server"
	"github.com/Jay160412/jay-website/internal/service"
	"github.com/Jay160412/jay-website/internal/shop"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log, "arcade")

	log.Info().Str("store", cfg.Store.Backend).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the persistent store
	store, err := kv.New(ctx, cfg.Store, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	// Table locks guard stored documents, user locks guard check-then-act
	// sequences that span several documents.
	tableLocks := lock.New()
	userLocks := lock.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(store, tableLocks)
	skinRepo := repository.NewSkinRepository(store, tableLocks, shop.SkinFamilies(), shop.DefaultSkin)
	highscoreRepo := repository.NewHighscoreRepository(store, tableLocks)

	gameRegistry := game.NewDefaultRegistry()
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.IDs()).
		Msg("Games registered")

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("auth.jwt_secret is not set, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create login tokens")
	}

	var globalTrack service.GlobalTrack
	if cfg.Highscores.Remote.Enabled {
		globalTrack = remote.NewClient(cfg.Highscores.Remote)
		log.Info().Str("base_url", cfg.Highscores.Remote.BaseURL).Msg("Remote highscore track enabled")
	}

	hub := notify.NewHub()

	// Initialize services
	accountService := service.NewAccountService(
		userRepo,
		auth.NewCredentials(cfg.Auth.HashPasswords),
		tokens,
		userLocks,
		cfg.Economy.StartingCoins,
	)
	economyService := service.NewEconomyService(userRepo, skinRepo, hub, userLocks)
	highscoreService := service.NewHighscoreService(highscoreRepo, globalTrack, gameRegistry, cfg.Highscores.DefaultLimit)
	missionService := service.NewMissionService(economyService, gameRegistry, cfg.Economy.PointsPerCoin)
	leaderboardService := service.NewLeaderboardService(highscoreService, userRepo)

	srv, err := server.New(&server.Dependencies{
		Config:             cfg,
		Tokens:             tokens,
		GameRegistry:       gameRegistry,
		AccountService:     accountService,
		EconomyService:     economyService,
		HighscoreService:   highscoreService,
		MissionService:     missionService,
		LeaderboardService: leaderboardService,
		Coins:              hub,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}

	// Close the listeners first so no new events arrive
	hub.Close()
	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, 10*time.Second)
	defer drainCancel()
	if err := highscoreService.Close(drainCtx); err != nil {
		log.Warn().Err(err).Msg("Remote highscores not fully submitted")
	}

	log.Info().Msg("Server stopped gracefully")
}
