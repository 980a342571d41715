// Package report writes the pipeline's tabular and chart artifacts.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ratespread/internal/regress"
	"ratespread/internal/series"
)

// WriteSpreadCSV writes Date,<seriesA>,<seriesB>,Spread_bps rows for an
// aligned frame and its derived spread. The write is idempotent; an
// existing file at path is replaced.
func WriteSpreadCSV(path string, frame series.AlignedFrame, colA, colB string, spread series.TimeSeries) error {
	a, ok := frame.Column(colA)
	if !ok {
		return fmt.Errorf("report: column %s not in frame", colA)
	}
	b, ok := frame.Column(colB)
	if !ok {
		return fmt.Errorf("report: column %s not in frame", colB)
	}
	if spread.Len() != frame.Len() {
		return fmt.Errorf("report: spread has %d rows, frame has %d", spread.Len(), frame.Len())
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Date", colA, colB, "Spread_bps"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, date := range frame.Dates {
		record := []string{
			date.Format(time.DateOnly),
			a.Values[i].String(),
			b.Values[i].String(),
			spread.At(i).Value.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteRegressionCSV writes observed, fitted, and residual columns for a
// fitted model, one row per input observation.
func WriteRegressionCSV(path string, dates []time.Time, observed []float64, result regress.Result) error {
	if len(dates) != len(observed) || len(dates) != len(result.Fitted) {
		return fmt.Errorf("report: regression rows misaligned (%d dates, %d observed, %d fitted)",
			len(dates), len(observed), len(result.Fitted))
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Date", "Observed", "Fitted", "Residual"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, date := range dates {
		record := []string{
			date.Format(time.DateOnly),
			fmt.Sprintf("%.4f", observed[i]),
			fmt.Sprintf("%.4f", result.Fitted[i]),
			fmt.Sprintf("%.4f", result.Residuals[i]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
