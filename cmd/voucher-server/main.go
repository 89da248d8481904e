package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/api"
	"github.com/captive-portal/voucher-server/internal/config"
	"github.com/captive-portal/voucher-server/internal/portal"
	"github.com/captive-portal/voucher-server/internal/server"
	"github.com/captive-portal/voucher-server/internal/session"
	"github.com/captive-portal/voucher-server/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/voucher-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database.DSN, storage.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Optional: connect to NATS for portal event publishing
	var publisher *server.Publisher
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("voucher-server"),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)

		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")
			publisher = server.NewPublisher(nc)
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	// Wire the portal subsystem
	tokens := session.NewTokenService(store)
	browsers := session.NewBrowserStore(cfg.Portal.SessionTTL)
	portalHandler := portal.NewHandler(store, tokens, browsers, publisher)

	// Start HTTP server
	httpServer := api.NewServer(cfg, store, portalHandler)

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		errChan <- httpServer.ListenAndServe(addr)
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case err := <-errChan:
		log.Fatal().Err(err).Msg("HTTP server failed")
	}

	// Shutdown HTTP server
	if err := httpServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown HTTP server gracefully")
	}

	log.Info().Msg("Voucher server stopped")
}
