package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"ratespread/internal/storage"
)

// Show prints recent stored spread observations for a study, or recent
// analysis runs when requested.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show stored data")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Runs {
		return showRuns(ctx, store, opts.Limit)
	}
	return showObservations(ctx, store, opts.Study, opts.Limit)
}

func showObservations(ctx context.Context, store *storage.Store, study string, limit int) error {
	observations, err := store.ListRecentObservations(ctx, study, limit)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	total, err := store.CountObservations(ctx, study)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Week\tRate A\tRate B\tSpread (bps)")

	for _, obs := range observations {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			obs.Week.UTC().Format(time.DateOnly),
			obs.RateA.StringFixed(2),
			obs.RateB.StringFixed(2),
			obs.SpreadBps.StringFixed(1),
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "showing %d of %d observations for %s\n", len(observations), total, study)
	return nil
}

func showRuns(ctx context.Context, store *storage.Store, limit int) error {
	runs, err := store.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tStudy\tObs\tMean (bps)\tBest Fit\tR²\tStatus\tError")

	for _, run := range runs {
		errMsg := ""
		if run.Error != nil {
			errMsg = sanitizeInline(*run.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Study,
			run.Observations,
			run.MeanBps.StringFixed(1),
			run.BestModel,
			run.BestR2.StringFixed(4),
			run.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
