package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ratespread/internal/alerting"
	"ratespread/internal/config"
	"ratespread/internal/fetcher"
	"ratespread/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.SeriesFetcher {
	return fetcher.NewFRED(fetcher.FREDOptions{
		BaseURL:   a.Config.Fred.BaseURL,
		APIKey:    a.Config.Fred.APIKey,
		Timeout:   a.Config.Fred.RequestTimeout,
		UserAgent: a.Config.Fred.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// AnalyzeOptions hold parameters for a one-shot pipeline run.
type AnalyzeOptions struct {
	From      *time.Time
	To        *time.Time
	OutputDir string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Study string
	Limit int
	Runs  bool
}
