package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Houeta/watchdog/internal/config"
	"github.com/Houeta/watchdog/internal/llm"
	"github.com/Houeta/watchdog/internal/notifier"
	"github.com/Houeta/watchdog/internal/parser"
	"github.com/Houeta/watchdog/internal/repository/sqlite"
	"github.com/Houeta/watchdog/internal/services/classifier"
	"github.com/Houeta/watchdog/internal/services/diff"
	"github.com/Houeta/watchdog/internal/services/pipeline"
	"github.com/Houeta/watchdog/internal/services/router"
	"github.com/Houeta/watchdog/internal/services/scheduler"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer repo.Close()

	roster, err := config.LoadRoster(logger, cfg.RosterPath)
	if err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}
	if err = repo.SyncRoster(ctx, roster); err != nil {
		log.Fatalf("Failed to sync roster: %v", err)
	}

	// The reasoning collaborator is optional: without an API key the diff
	// engine and classifier run in degraded rule-based mode.
	var semantic diff.SemanticComparer
	var reasoner classifier.Reasoner
	llmClient, err := llm.NewClient(logger, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	switch {
	case err == nil:
		semantic = llmClient
		reasoner = llmClient
	case errors.Is(err, llm.ErrEmptyAPIKey):
		logger.Warn("No LLM API key configured, running in degraded rule-based mode")
	default:
		log.Fatalf("Failed to init LLM client: %v", err)
	}

	deliverer, err := buildDeliverer(logger, cfg)
	if err != nil {
		log.Fatalf("Failed to init notifier: %v", err)
	}

	engine := diff.NewEngine(logger, semantic, cfg.Diff.MinorEditThreshold, cfg.Diff.SemanticBar)
	cls := classifier.NewClassifier(logger, reasoner)
	alertRouter := router.NewRouter(logger, repo, deliverer, cfg.Channel)
	pipe := pipeline.NewPipeline(logger, repo, parser.NewParser(logger), engine, cls, alertRouter)

	sched, err := scheduler.New(logger, repo, pipe, alertRouter,
		cfg.Schedule.CheckInterval, cfg.Schedule.MaxConcurrent,
		cfg.Schedule.DailyDigestAt, cfg.Schedule.WeeklyDigestAt, cfg.Schedule.WeeklyDay)
	if err != nil {
		log.Fatalf("Failed to init scheduler: %v", err)
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	if err = sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Scheduler stopped with error", "error", err)
	}

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// buildDeliverer selects the delivery transport from the configuration.
func buildDeliverer(logger *slog.Logger, cfg *config.Config) (router.Deliverer, error) {
	switch cfg.Channel {
	case "telegram":
		return notifier.NewTelegram(logger, cfg.Tg.Token, cfg.Tg.ChatID, cfg.Tg.Poller)
	default:
		return notifier.NewSlack(logger, cfg.Slack.WebhookURL, cfg.Slack.Timeout), nil
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envLocal:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		logger.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return logger
}
