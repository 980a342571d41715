// Package analysis orchestrates the fetch, align, spread, regression, and
// export stages of a study run. Each stage passes immutable values to the
// next; any stage error is terminal for the run.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ratespread/internal/alerting"
	"ratespread/internal/config"
	"ratespread/internal/fetcher"
	"ratespread/internal/regress"
	"ratespread/internal/report"
	"ratespread/internal/series"
	"ratespread/internal/storage"
)

// Study defines one spread analysis: two input series, an optional
// regression covariate, and the polynomial degrees to fit beyond linear.
type Study struct {
	Name        string
	SpreadID    string
	SeriesA     string
	SeriesB     string
	Covariate   string // series ID; empty means regress against time
	PolyDegrees []int
}

// Options bound one pipeline run.
type Options struct {
	From      time.Time
	To        time.Time
	OutputDir string
	Weekday   time.Weekday
	Policy    series.FillPolicy
}

// Pipeline wires the pipeline stages together.
type Pipeline struct {
	cfg      *config.Config
	fetcher  fetcher.SeriesFetcher
	obsStore storage.SpreadObservationStore
	runStore storage.AnalysisRunStore
	notifier alerting.Notifier
	logger   zerolog.Logger
}

// New constructs a Pipeline. Store and notifier may be nil; persistence and
// notification are then skipped.
func New(cfg *config.Config, f fetcher.SeriesFetcher, obsStore storage.SpreadObservationStore, runStore storage.AnalysisRunStore, notifier alerting.Notifier, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		fetcher:  f,
		obsStore: obsStore,
		runStore: runStore,
		notifier: notifier,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Studies returns the two configured studies: the PMMS-Treasury spread and
// the primary-secondary spread (PSS30) regressed on CC30.
func (p *Pipeline) Studies() []Study {
	return []Study{
		{
			Name:        "pmms_treasury",
			SpreadID:    "PMMS_Treasury_Spread",
			SeriesA:     p.cfg.Series.PMMS,
			SeriesB:     p.cfg.Series.Treasury,
			PolyDegrees: []int{2, 3},
		},
		{
			Name:        "pss30",
			SpreadID:    "PSS30",
			SeriesA:     p.cfg.Series.PMMS,
			SeriesB:     p.cfg.Series.CC30,
			Covariate:   p.cfg.Series.CC30,
			PolyDegrees: []int{2, 3},
		},
	}
}

// Run executes every configured study in order. The first failing study
// aborts the run; there is no partial-result recovery.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	for _, study := range p.Studies() {
		if err := p.RunStudy(ctx, opts, study); err != nil {
			return fmt.Errorf("study %s: %w", study.Name, err)
		}
	}
	return nil
}

// RunStudy executes a single study end to end.
func (p *Pipeline) RunStudy(ctx context.Context, opts Options, study Study) error {
	startedAt := time.Now().UTC()
	logger := p.logger.With().Str("study", study.Name).Logger()

	summary, err := p.executeStudy(ctx, opts, study, logger)
	p.recordRun(ctx, study, startedAt, summary, err, logger)
	if err != nil {
		return err
	}

	if p.notifier != nil {
		if notifyErr := p.notifier.Notify(ctx, summary); notifyErr != nil {
			logger.Error().Err(notifyErr).Msg("failed to deliver run summary")
		}
	}
	return nil
}

func (p *Pipeline) executeStudy(ctx context.Context, opts Options, study Study, logger zerolog.Logger) (alerting.Summary, error) {
	seriesA, err := p.fetcher.FetchSeries(ctx, study.SeriesA, opts.From, opts.To)
	if err != nil {
		return alerting.Summary{}, fmt.Errorf("fetch %s: %w", study.SeriesA, err)
	}

	seriesB, err := p.fetchSecondLeg(ctx, opts, study, seriesA, logger)
	if err != nil {
		return alerting.Summary{}, err
	}

	frame, err := series.AlignWeekly(opts.Weekday, opts.Policy, seriesA, seriesB)
	if err != nil {
		return alerting.Summary{}, fmt.Errorf("align %s/%s: %w", seriesA.ID(), seriesB.ID(), err)
	}

	spread, err := series.BasisPointSpread(frame, study.SpreadID, seriesA.ID(), seriesB.ID())
	if err != nil {
		return alerting.Summary{}, err
	}

	stats := Describe(spread)
	logger.Info().
		Int("observations", stats.Count).
		Str("mean_bps", stats.Mean.StringFixed(1)).
		Str("std_bps", stats.Std.StringFixed(1)).
		Str("min_bps", stats.Min.StringFixed(1)).
		Str("max_bps", stats.Max.StringFixed(1)).
		Msg("spread computed")

	results, x, y, err := p.fitModels(frame, spread, study)
	if err != nil {
		return alerting.Summary{}, err
	}

	if err := p.export(opts.OutputDir, study, frame, spread, seriesA.ID(), seriesB.ID(), x, y, results, logger); err != nil {
		return alerting.Summary{}, err
	}

	p.persistObservations(ctx, study, frame, spread, seriesA.ID(), seriesB.ID(), logger)

	best := bestFit(results)
	latest := spread.At(spread.Len() - 1)

	return alerting.Summary{
		Study:        study.Name,
		GeneratedAt:  time.Now().UTC(),
		Observations: stats.Count,
		MeanBps:      stats.Mean,
		LatestBps:    latest.Value,
		LatestWeek:   latest.Date,
		BestModel:    best.Name(),
		BestR2:       best.R2,
	}, nil
}

// fetchSecondLeg retrieves series B, deriving the CC30 proxy from series A
// when the configured CC30 series is unavailable upstream.
func (p *Pipeline) fetchSecondLeg(ctx context.Context, opts Options, study Study, seriesA series.TimeSeries, logger zerolog.Logger) (series.TimeSeries, error) {
	seriesB, err := p.fetcher.FetchSeries(ctx, study.SeriesB, opts.From, opts.To)
	if err == nil {
		return seriesB, nil
	}

	proxyAllowed := study.SeriesB == p.cfg.Series.CC30 &&
		p.cfg.Series.CC30ProxyEnabled &&
		errors.Is(err, fetcher.ErrFetch)
	if !proxyAllowed {
		return series.TimeSeries{}, fmt.Errorf("fetch %s: %w", study.SeriesB, err)
	}

	offset := decimal.NewFromFloat(p.cfg.Series.CC30ProxyOffsetBps).Div(decimal.NewFromInt(100))
	logger.Warn().
		Str("series_id", study.SeriesB).
		Str("offset_pct", offset.String()).
		Msg("CC30 series unavailable; deriving proxy from PMMS")

	return seriesA.AddConstant("CC30_PROXY", offset.Neg()), nil
}

// fitModels runs the linear fit plus the study's polynomial degrees against
// either the configured covariate column or the time index.
func (p *Pipeline) fitModels(frame series.AlignedFrame, spread series.TimeSeries, study Study) ([]regress.Result, []float64, []float64, error) {
	y := make([]float64, spread.Len())
	for i := 0; i < spread.Len(); i++ {
		y[i] = spread.At(i).Value.InexactFloat64()
	}

	var x []float64
	if study.Covariate != "" {
		col, ok := frame.Column(study.Covariate)
		if !ok {
			// Proxy fallback renames the column; regress against the
			// second leg whatever it ended up being called.
			col = frame.Columns[1]
		}
		x = make([]float64, len(col.Values))
		for i, v := range col.Values {
			x[i] = v.InexactFloat64()
		}
	} else {
		x = regress.TimeIndex(frame.Dates)
	}

	linear, err := regress.FitLinear(x, y)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("linear fit: %w", err)
	}
	results := []regress.Result{linear}

	for _, degree := range study.PolyDegrees {
		res, err := regress.FitPolynomial(x, y, degree)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("degree-%d fit: %w", degree, err)
		}
		results = append(results, res)
	}

	return results, x, y, nil
}

func (p *Pipeline) export(dir string, study Study, frame series.AlignedFrame, spread series.TimeSeries, colA, colB string, x, y []float64, results []regress.Result, logger zerolog.Logger) error {
	csvPath := filepath.Join(dir, study.Name+".csv")
	if err := report.WriteSpreadCSV(csvPath, frame, colA, colB, spread); err != nil {
		return fmt.Errorf("write spread csv: %w", err)
	}

	spreadPNG := filepath.Join(dir, study.Name+"_spread.png")
	if err := report.SpreadHistoryPNG(spreadPNG, spreadTitle(study), spread); err != nil {
		return fmt.Errorf("render spread chart: %w", err)
	}

	ratesPNG := filepath.Join(dir, study.Name+"_rates.png")
	if err := report.RatesComparisonPNG(ratesPNG, fmt.Sprintf("%s vs %s", colA, colB), frame); err != nil {
		return fmt.Errorf("render rates chart: %w", err)
	}

	xLabel := "Years since start"
	if study.Covariate != "" {
		xLabel = colB + " (%)"
	}
	fitPNG := filepath.Join(dir, study.Name+"_regression.png")
	if err := report.RegressionFitPNG(fitPNG, fmt.Sprintf("%s regression", study.SpreadID), xLabel, study.SpreadID+" (bps)", x, y, results); err != nil {
		return fmt.Errorf("render regression chart: %w", err)
	}

	best := bestFit(results)
	residualsPNG := filepath.Join(dir, study.Name+"_residuals.png")
	if err := report.ResidualsPNG(residualsPNG, fmt.Sprintf("%s residuals", study.SpreadID), frame.Dates, best); err != nil {
		return fmt.Errorf("render residuals chart: %w", err)
	}

	for _, res := range results {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", study.Name, res.Name()))
		if err := report.WriteRegressionCSV(path, frame.Dates, y, res); err != nil {
			return fmt.Errorf("write %s regression csv: %w", res.Name(), err)
		}
	}

	logger.Info().Str("dir", dir).Msg("artifacts written")
	return nil
}

func (p *Pipeline) persistObservations(ctx context.Context, study Study, frame series.AlignedFrame, spread series.TimeSeries, colA, colB string, logger zerolog.Logger) {
	if p.obsStore == nil {
		return
	}

	a, _ := frame.Column(colA)
	b, _ := frame.Column(colB)
	for i, date := range frame.Dates {
		obs := storage.SpreadObservation{
			Study:     study.Name,
			Week:      date,
			RateA:     a.Values[i],
			RateB:     b.Values[i],
			SpreadBps: spread.At(i).Value,
		}
		if err := p.obsStore.UpsertSpreadObservation(ctx, obs); err != nil {
			logger.Error().Err(err).Time("week", date).Msg("failed to upsert observation")
			return
		}
	}
	logger.Debug().Int("rows", frame.Len()).Msg("observations persisted")
}

func (p *Pipeline) recordRun(ctx context.Context, study Study, startedAt time.Time, summary alerting.Summary, runErr error, logger zerolog.Logger) {
	if p.runStore == nil {
		return
	}

	run := storage.AnalysisRun{
		Study:        study.Name,
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		Observations: summary.Observations,
		MeanBps:      summary.MeanBps,
		BestModel:    summary.BestModel,
		BestR2:       decimal.NewFromFloat(summary.BestR2).Round(6),
		Status:       "complete",
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status = "failed"
		run.Error = &msg
	}

	if _, err := p.runStore.InsertAnalysisRun(ctx, run); err != nil {
		logger.Error().Err(err).Msg("failed to persist run record")
	}
}

func bestFit(results []regress.Result) regress.Result {
	best := results[0]
	for _, res := range results[1:] {
		if res.R2 > best.R2 {
			best = res
		}
	}
	return best
}

func spreadTitle(study Study) string {
	switch study.Name {
	case "pmms_treasury":
		return "30-Year PMMS vs 10-Year Treasury Spread"
	case "pss30":
		return "Primary-Secondary Spread (PSS30)"
	}
	return study.SpreadID
}
