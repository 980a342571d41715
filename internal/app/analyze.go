package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"ratespread/internal/analysis"
	"ratespread/internal/scheduler"
	"ratespread/internal/series"
	"ratespread/internal/storage"
)

// Analyze runs the full pipeline once: fetch, align, spread, regress,
// export. Identical inputs produce identical artifacts.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipelineOpts, err := a.pipelineOptions(opts)
	if err != nil {
		return err
	}

	pipeline := a.newPipeline(store)

	a.Logger.Info().
		Time("from", pipelineOpts.From).
		Time("to", pipelineOpts.To).
		Str("output_dir", pipelineOpts.OutputDir).
		Msg("starting analysis run")

	return pipeline.Run(ctx, pipelineOpts)
}

// Watch re-runs the pipeline on the configured weekly schedule until
// interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	weekday, err := series.ParseWeekday(a.Config.Schedule.Weekday)
	if err != nil {
		return err
	}
	at, err := a.Config.ScheduleAt()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Weekday:      weekday,
		At:           at,
		StartupDelay: a.Config.Schedule.StartupDelay,
	}, a.Logger)

	pipeline := a.newPipeline(store)

	a.Logger.Info().Str("weekday", weekday.String()).Msg("starting weekly watch")
	err = sched.Run(ctx, func(tickCtx context.Context, _ time.Time) error {
		opts, optErr := a.pipelineOptions(AnalyzeOptions{})
		if optErr != nil {
			return optErr
		}
		return pipeline.Run(tickCtx, opts)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}

func (a *App) newPipeline(store *storage.Store) *analysis.Pipeline {
	var obsStore storage.SpreadObservationStore
	var runStore storage.AnalysisRunStore
	if store != nil {
		obsStore = store
		runStore = store
	}
	return analysis.New(a.Config, a.newFetcher(), obsStore, runStore, a.newNotifier(), a.Logger)
}

func (a *App) pipelineOptions(opts AnalyzeOptions) (analysis.Options, error) {
	from, err := a.Config.WindowStart()
	if err != nil {
		return analysis.Options{}, err
	}
	if opts.From != nil {
		from = opts.From.UTC()
	}

	to, err := a.Config.WindowEnd()
	if err != nil {
		return analysis.Options{}, err
	}
	if opts.To != nil {
		to = opts.To.UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	if !from.IsZero() && !from.Before(to) {
		return analysis.Options{}, errors.New("window start must be before window end")
	}

	weekday, err := series.ParseWeekday(a.Config.Alignment.Weekday)
	if err != nil {
		return analysis.Options{}, err
	}
	policy, err := series.ParseFillPolicy(a.Config.Alignment.FillPolicy)
	if err != nil {
		return analysis.Options{}, err
	}

	outputDir := a.Config.Output.Dir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}

	return analysis.Options{
		From:      from,
		To:        to,
		OutputDir: outputDir,
		Weekday:   weekday,
		Policy:    policy,
	}, nil
}
