package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/talks/internal/adapters/http"
	"github.com/dkeye/talks/internal/adapters/codec"
	"github.com/dkeye/talks/internal/adapters/storage"
	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/app/orch"
	"github.com/dkeye/talks/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	db, err := storage.Open(cfg.DatabasePath, cfg.Mode == "debug")
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DatabasePath).Msg("failed to open database")
	}
	store := storage.NewStore(db)
	if n, err := store.ResetPresence(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to reset presence")
	} else if n > 0 {
		log.Info().Int64("users", n).Msg("cleared stale online flags")
	}
	if cfg.SeedChannels {
		if err := store.SeedDefaultChannels(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to seed channels")
		}
	}

	cdc, err := codec.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build content codec")
	}

	o := orch.New(orch.Stores{Users: store, Channels: store, Messages: store}, cdc, orch.Options{
		Policy:        app.SimplePolicy{},
		TypingTimeout: cfg.TypingTimeout,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{Orch: o, Messages: store, Channels: store, Codec: cdc})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("talks server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	o.Close()
	// Close empties the registry, so late disconnects skip the offline write.
	if _, err := store.ResetPresence(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to reset presence on shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("Server exited gracefully")
}
