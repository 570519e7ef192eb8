package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"github.com/h-harder/onlinemafia/internal/game"
	"github.com/h-harder/onlinemafia/internal/server"
	"github.com/h-harder/onlinemafia/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("APP_ENV") == "local" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	snapshots, cleanup, err := newSnapshotStore(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize snapshot store")
	}
	defer cleanup()

	registry := game.NewRegistry(snapshots, game.NewSystemClock(), log)
	srv := server.NewServer(registry, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// newSnapshotStore picks postgres when ONLINEMAFIA_DB_URL is set and falls
// back to the in-memory store otherwise; rooms then live only as long as
// the process.
func newSnapshotStore(log zerolog.Logger) (game.SnapshotStore, func(), error) {
	connString := os.Getenv("ONLINEMAFIA_DB_URL")
	if connString == "" {
		log.Warn().Msg("ONLINEMAFIA_DB_URL unset, using in-memory snapshots")
		return store.NewMemory(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	pg, err := store.NewPostgres(ctx, connString)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
