package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clementinebot/clementine/internal/bot"
	"github.com/clementinebot/clementine/internal/config"
	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/history"
	"github.com/clementinebot/clementine/internal/prompts"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
	"github.com/clementinebot/clementine/internal/slackbot"
	"github.com/clementinebot/clementine/internal/store"
	"github.com/clementinebot/clementine/internal/store/pg"
	"github.com/clementinebot/clementine/internal/store/sqlite"
	"github.com/clementinebot/clementine/internal/tracing"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default when no subcommand is given)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("configuration failed to load", "err", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if !cfg.HasSlackCredentials() {
		slog.Error("slack credentials missing; set SLACK_BOT_TOKEN and SLACK_APP_TOKEN or run: clementine onboard")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, Version)
	if err != nil {
		slog.Warn("tracing not started", "err", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("storage failed to open", "mode", cfg.Database.Mode, "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	promptLib := prompts.NewLibrary(cfg.Prompts.Dir)
	if cfg.Prompts.Dir != "" {
		go func() {
			if err := promptLib.Watch(ctx); err != nil {
				slog.Warn("prompt watcher stopped", "err", err)
			}
		}()
	}

	client, err := slackbot.NewAPIClient(cfg)
	if err != nil {
		slog.Error("slack client setup failed", "err", err)
		os.Exit(1)
	}

	directory, err := slackbot.NewDirectory(client)
	if err != nil {
		slog.Error("user directory setup failed", "err", err)
		os.Exit(1)
	}

	roomsSvc := rooms.NewService(stores.Rooms, cfg.Context)
	extractor := history.NewExtractor(
		slackbot.NewHistorySource(client), directory, cfg.Context.Max)
	qaClient := qa.NewClient(cfg.QA.BaseURL, cfg.QA.APIToken, cfg.QATimeout())
	tracker := feedback.NewTracker(stores.Feedback,
		feedback.NewUpstream(cfg.QA.BaseURL, cfg.QA.APIToken, cfg.QATimeout()))
	botSvc := bot.New(cfg, roomsSvc, extractor, qaClient, tracker, promptLib)

	runtime := slackbot.NewRuntime(cfg, client, botSvc, roomsSvc, tracker)

	slog.Info("clementine starting",
		"version", Version,
		"qa_base_url", cfg.QA.BaseURL,
		"db_mode", cfg.Database.Mode,
		"context_bounds", cfg.Context)

	if err := runtime.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("slack runtime stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func openStores(cfg *config.Config) (*store.Stores, error) {
	if cfg.Database.Mode == "postgres" {
		return pg.NewPGStores(cfg.Database.PostgresDSN)
	}
	return sqlite.NewSQLiteStores(config.ExpandHome(cfg.Database.Path))
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
