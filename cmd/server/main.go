package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/vvoice/signaling/internal/adapters/http"
	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/config"
	"github.com/vvoice/signaling/internal/security"
	sig "github.com/vvoice/signaling/internal/signal"
	"github.com/vvoice/signaling/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	st, err := store.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}
	defer st.Close()

	rooms := app.NewRoomManager(cfg.MaxRoomParticipants, cfg.MaxRoomsPerConnection)
	registry := app.NewRegistry()
	verifier := security.NewJWTVerifier(cfg.JWTSecret)
	issuer := security.NewCredentialIssuer(security.TURNConfig{
		Enabled: cfg.TURNEnabled(),
		Host:    cfg.TURNHost,
		Port:    cfg.TURNPort,
		Secret:  cfg.TURNSecret,
		TTL:     cfg.TURNTTL,
	})

	ctl := sig.NewController(cfg, rooms, registry, verifier, issuer, st)
	r := router.SetupRouter(ctx, cfg, ctl)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
