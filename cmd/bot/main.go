package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/bot"
	"github.com/user/hours-bot-go/internal/config"
	"github.com/user/hours-bot-go/internal/intent"
	"github.com/user/hours-bot-go/internal/journal"
	"github.com/user/hours-bot-go/internal/push"
	"github.com/user/hours-bot-go/internal/registry"
	"github.com/user/hours-bot-go/internal/scheduler"
	"github.com/user/hours-bot-go/internal/server"
	"github.com/user/hours-bot-go/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	loc, err := cfg.Reminder.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load reminder timezone")
	}

	log.Info().
		Str("driver", cfg.Store.Driver).
		Str("timezone", loc.String()).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
	}
	docs := store.NewDocuments(docStore)

	// A malformed document stops startup before any message is handled
	reg, err := registry.Open(ctx, docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load subscribers")
	}
	j, err := journal.Open(ctx, docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load journal")
	}
	server.SetSubscribers(reg.Len())
	log.Info().
		Int("subscribers", reg.Len()).
		Int("confirmations", len(j.Confirmations())).
		Int("questions", len(j.Questions())).
		Msg("Documents loaded")

	telegramClient, err := bot.NewClient(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	log.Info().Str("username", telegramClient.Username()).Msg("Telegram client initialized")

	if cfg.Bot.AdminID == "" {
		log.Warn().Msg("BOT_ADMIN_ID is not set, overseer notices are disabled")
	}
	pushService := push.NewService(telegramClient, cfg.Bot.AdminID, cfg.Reminder.SendDelay)
	recorder := journal.NewRecorder(j, reg, pushService, loc)
	botHandler := bot.NewHandler(reg, intent.NewTracker(), recorder, j, pushService, loc)

	sched := scheduler.NewScheduler(reg, pushService, &cfg.Reminder, loc)

	httpServer := server.NewServer(docStore)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	sched.Start(ctx)

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		log.Info().Msg("Starting Telegram bot polling")
		updates := telegramClient.GetUpdates()
		for update := range updates {
			botHandler.HandleUpdate(ctx, update)
		}
	}()

	log.Info().Msg("Hours bot started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. No new sweeps
	sched.Stop()
	log.Info().Msg("Scheduler stopped")

	// 2. No new updates; wait for the one in flight so its writes land before the store closes
	telegramClient.StopReceivingUpdates()
	select {
	case <-pollDone:
		log.Info().Msg("Telegram bot polling stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timed out waiting for update handling to finish")
	}

	// 3. HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// 4. Store
	if err := docStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing store")
	} else {
		log.Info().Msg("Store closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
