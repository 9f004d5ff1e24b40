package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/duet/internal/adapter/driven/gateway/ws"
	presence "github.com/Wyydra/duet/internal/adapter/driven/presence/memory"
	room "github.com/Wyydra/duet/internal/adapter/driven/room/memory"
	handler "github.com/Wyydra/duet/internal/adapter/driving/http"
	"github.com/Wyydra/duet/internal/config"
	"github.com/Wyydra/duet/internal/core/service"
	"github.com/Wyydra/duet/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var opts config.Options

	cmd := &cobra.Command{
		Use:   "duet",
		Short: "Matchmaking and signaling relay for anonymous one-to-one audio calls",
		Long: `duet pairs anonymous clients that are searching for a call and relays the
WebRTC offers, answers and candidates between the two members of each call.
Audio itself flows peer to peer and never touches the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts)
			if err != nil {
				return err
			}
			if err := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (default "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "log format: console or json")
	cmd.Flags().DurationVar(&opts.StaleAfter, "stale-after", 0, "expire clients silent for this long (0 disables)")

	return cmd
}

func serve(cfg *config.Config) error {
	registry := presence.NewRegistry()
	directory := room.NewDirectory(registry)
	hub := ws.NewHub()

	callService := service.NewCallService(registry, directory, hub)
	reaper := service.NewReaper(callService, cfg.ReapInterval, cfg.StaleAfter)
	h := handler.NewHandler(callService, hub, cfg)

	go reaper.Run()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Starting signaling server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		log.Info().Msg("Shutting down server...")
	case runErr = <-errc:
		log.Error().Err(runErr).Msg("Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	reaper.Stop()
	hub.Stop()
	log.Info().Msg("Server exited")
	return runErr
}
