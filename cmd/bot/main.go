// Package main contains the entrypoint for the relay bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/diyorbek/relaybot/internal/ai"
	"github.com/diyorbek/relaybot/internal/bot"
	"github.com/diyorbek/relaybot/internal/bot/handlers"
	"github.com/diyorbek/relaybot/internal/bot/tasks"
	"github.com/diyorbek/relaybot/internal/config"
	"github.com/diyorbek/relaybot/internal/conversation"
	"github.com/diyorbek/relaybot/internal/database"
	"github.com/diyorbek/relaybot/internal/dispatch"
	"github.com/diyorbek/relaybot/internal/logger"
	"github.com/diyorbek/relaybot/internal/quota"
	"github.com/diyorbek/relaybot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// AI clients, dispatcher, bot, scheduler), handles graceful shutdown, and
// returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	if err := store.Ping(ctx); err != nil {
		log.Error("Database health check failed", "path", cfg.Database.Path, "error", err)
		return 1
	}

	openaiClient, err := ai.NewOpenAIClient(cfg.OpenAI, log)
	if err != nil {
		log.Error("Failed to initialize OpenAI client", "error", err)
		return 1
	}

	geminiClient, err := ai.NewGeminiClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	tracker := quota.NewTracker(quota.Limits{
		Total: cfg.Quota.TotalLimit,
		Image: cfg.Quota.ImageLimit,
		Voice: cfg.Quota.VoiceLimit,
	})
	conv := conversation.NewStore(cfg.Conversation.Window)
	dispatcher := dispatch.New(log, tracker, conv, map[ai.Provider]ai.Completer{
		ai.ProviderOpenAI: openaiClient,
		ai.ProviderGemini: geminiClient,
	}, openaiClient, cfg.Quota.WarnThreshold)

	hDeps := handlers.HandlerDeps{
		Logger:      log,
		Config:      cfg,
		Dispatcher:  dispatcher,
		Store:       store,
		Transcriber: openaiClient,
		Speech:      openaiClient,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
