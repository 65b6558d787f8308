package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/apps/go-server/internal/categories"
	"github.com/robalobadob/memory/apps/go-server/internal/config"
	"github.com/robalobadob/memory/apps/go-server/internal/game"
	"github.com/robalobadob/memory/apps/go-server/internal/httpserver"
	"github.com/robalobadob/memory/apps/go-server/internal/store"
)

func main() {
	cfg := config.Load()
	cfg.SetupLogging()

	if err := categories.Init(cfg.CategoriesFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load categories")
	}
	if _, err := game.NewDeck(categories.Names(), nil); err != nil {
		log.Fatal().Err(err).Msg("categories cannot form a deck")
	}
	log.Info().Str("source", categories.Source()).Strs("categories", categories.Names()).Msg("categories loaded")

	mem := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.RunSweeper(ctx, mem, cfg.SessionTTL, time.Minute)

	srv := httpserver.New(mem, httpserver.Options{
		ClientOrigin: cfg.ClientOrigin,
		JWTSecret:    cfg.JWTSecret,
		DailySalt:    cfg.DailySalt,
		Production:   cfg.Production,
		SessionTTL:   cfg.SessionTTL,
		RevealDelay:  cfg.RevealDelay,
		TickInterval: cfg.TickInterval,
		Categories:   categories.All(),
	})
	log.Info().
		Str("port", cfg.Port).
		Dur("revealDelay", cfg.RevealDelay).
		Dur("sessionTTL", cfg.SessionTTL).
		Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
