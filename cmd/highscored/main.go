// Package main is the entry point of the global highscore server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/logging"
	"github.com/Jay160412/jay-website/internal/pkg/db"
	"github.com/Jay160412/jay-website/internal/repository"
	"github.com/Jay160412/jay-website/internal/server"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log, "highscored")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect and run migrations
	pool, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	repo := repository.NewGlobalHighscoreRepository(pool.Pool)

	srvCfg := cfg.Server
	srvCfg.Addr = cfg.Global.Addr
	srv := server.NewGlobal(srvCfg, repo, cfg.Global.MaxResults, pool)

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

	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Global highscore server stopped")
}
