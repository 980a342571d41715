package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ratespread/internal/regress"
	"ratespread/internal/series"
)

func testFrame(t *testing.T) (series.AlignedFrame, series.TimeSeries) {
	t.Helper()
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	obsA := make([]series.Observation, 6)
	obsB := make([]series.Observation, 6)
	for i := range obsA {
		date := start.AddDate(0, 0, 7*i)
		obsA[i] = series.Observation{Date: date, Value: decimal.NewFromFloat(6.5 + float64(i)*0.05)}
		obsB[i] = series.Observation{Date: date, Value: decimal.NewFromFloat(4.0 + float64(i)*0.02)}
	}

	a, err := series.New("PMMS", "percent", obsA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := series.New("DGS10", "percent", obsB)
	if err != nil {
		t.Fatal(err)
	}

	frame, err := series.AlignWeekly(time.Wednesday, series.FillForward, a, b)
	if err != nil {
		t.Fatal(err)
	}
	spread, err := series.BasisPointSpread(frame, "SPREAD", "PMMS", "DGS10")
	if err != nil {
		t.Fatal(err)
	}
	return frame, spread
}

func TestWriteSpreadCSV(t *testing.T) {
	frame, spread := testFrame(t)
	path := filepath.Join(t.TempDir(), "nested", "spread.csv")

	if err := WriteSpreadCSV(path, frame, "PMMS", "DGS10", spread); err != nil {
		t.Fatalf("write should succeed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(records) != frame.Len()+1 {
		t.Fatalf("expected %d rows, got %d", frame.Len()+1, len(records))
	}
	header := records[0]
	if header[0] != "Date" || header[1] != "PMMS" || header[2] != "DGS10" || header[3] != "Spread_bps" {
		t.Fatalf("unexpected header %v", header)
	}
	if records[1][0] != "2024-01-03" {
		t.Fatalf("unexpected first date %s", records[1][0])
	}
	if records[1][3] != "250" {
		t.Fatalf("expected 250 bps in first row, got %s", records[1][3])
	}
}

func TestWriteSpreadCSVIdempotent(t *testing.T) {
	frame, spread := testFrame(t)
	path := filepath.Join(t.TempDir(), "spread.csv")

	if err := WriteSpreadCSV(path, frame, "PMMS", "DGS10", spread); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := WriteSpreadCSV(path, frame, "PMMS", "DGS10", spread); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatal("re-running the export must produce identical output")
	}
}

func TestWriteRegressionCSV(t *testing.T) {
	frame, spread := testFrame(t)
	y := make([]float64, spread.Len())
	for i := 0; i < spread.Len(); i++ {
		y[i] = spread.At(i).Value.InexactFloat64()
	}
	x := regress.TimeIndex(frame.Dates)

	res, err := regress.FitLinear(x, y)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fit.csv")
	if err := WriteRegressionCSV(path, frame.Dates, y, res); err != nil {
		t.Fatalf("write should succeed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(y)+1 {
		t.Fatalf("expected %d rows, got %d", len(y)+1, len(records))
	}
}

func TestChartsRender(t *testing.T) {
	frame, spread := testFrame(t)
	dir := t.TempDir()

	if err := SpreadHistoryPNG(filepath.Join(dir, "spread.png"), "Spread", spread); err != nil {
		t.Fatalf("spread chart: %v", err)
	}
	if err := RatesComparisonPNG(filepath.Join(dir, "rates.png"), "Rates", frame); err != nil {
		t.Fatalf("rates chart: %v", err)
	}

	y := make([]float64, spread.Len())
	for i := 0; i < spread.Len(); i++ {
		y[i] = spread.At(i).Value.InexactFloat64()
	}
	x := regress.TimeIndex(frame.Dates)
	res, err := regress.FitLinear(x, y)
	if err != nil {
		t.Fatal(err)
	}

	if err := RegressionFitPNG(filepath.Join(dir, "fit.png"), "Fit", "x", "y", x, y, []regress.Result{res}); err != nil {
		t.Fatalf("regression chart: %v", err)
	}
	if err := ResidualsPNG(filepath.Join(dir, "residuals.png"), "Residuals", frame.Dates, res); err != nil {
		t.Fatalf("residuals chart: %v", err)
	}

	for _, name := range []string{"spread.png", "rates.png", "fit.png", "residuals.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}
