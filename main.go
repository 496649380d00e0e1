package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/history"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/httpserver"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/words"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	wl, err := words.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, allowed := wl.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	// Round history is optional: without HISTORY_DB the server runs purely
	// in memory.
	var rec rooms.Recorder
	var hist *history.Store
	if dsn := getEnv("HISTORY_DB", ""); dsn != "" {
		hist, err = history.Open(dsn)
		if err != nil {
			log.Fatal().Err(err).Str("dsn", dsn).Msg("failed to open history database")
		}
		defer hist.Close()
		rec = hist
	}

	reg := rooms.NewRegistry()
	coord := rooms.NewCoordinator(reg, wl, rec)
	hub := ws.NewHub(coord, os.Getenv("CLIENT_ORIGIN"))
	srv := httpserver.New(wl, reg, hist, hub)

	port := getEnv("PORT", "5176")
	log.Info().Str("port", port).Msg("starting rooms-server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		hub.Shutdown()
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
