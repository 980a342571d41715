package report

import (
	"fmt"
	"os"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"ratespread/internal/regress"
	"ratespread/internal/series"
)

const (
	chartWidth  = 1280
	chartHeight = 720
)

// SpreadHistoryPNG renders a spread time series with a horizontal mean line.
func SpreadHistoryPNG(path, title string, spread series.TimeSeries) error {
	if spread.Len() == 0 {
		return fmt.Errorf("report: no observations to chart")
	}

	x := spread.Dates()
	y := make([]float64, spread.Len())
	var sum float64
	for i := 0; i < spread.Len(); i++ {
		y[i] = spread.At(i).Value.InexactFloat64()
		sum += y[i]
	}
	mean := sum / float64(len(y))

	meanLine := make([]float64, len(y))
	for i := range meanLine {
		meanLine[i] = mean
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Spread (bps)",
			Range: paddedRange(y),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    spread.ID(),
				XValues: x,
				YValues: y,
			},
			chart.TimeSeries{
				Name:    fmt.Sprintf("Mean: %.1f bps", mean),
				XValues: x,
				YValues: meanLine,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// RatesComparisonPNG plots every aligned column on a shared time axis.
func RatesComparisonPNG(path, title string, frame series.AlignedFrame) error {
	if frame.Len() == 0 {
		return fmt.Errorf("report: no observations to chart")
	}

	lines := make([]chart.Series, 0, len(frame.Columns))
	values := make([][]float64, 0, len(frame.Columns))
	for _, col := range frame.Columns {
		y := make([]float64, frame.Len())
		for i := range col.Values {
			y[i] = col.Values[i].InexactFloat64()
		}
		values = append(values, y)
		lines = append(lines, chart.TimeSeries{
			Name:    col.ID,
			XValues: frame.Dates,
			YValues: y,
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Rate (%)",
			Range: paddedRange(values...),
		},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// RegressionFitPNG renders observed points as a scatter with one fitted
// curve per model, sorted along the independent variable.
func RegressionFitPNG(path, title, xLabel, yLabel string, x, y []float64, results []regress.Result) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("report: invalid regression chart input (%d x, %d y)", len(x), len(y))
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	sortedX := make([]float64, len(x))
	sortedY := make([]float64, len(y))
	for i, idx := range order {
		sortedX[i] = x[idx]
		sortedY[i] = y[idx]
	}

	seriesList := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Observed",
			XValues: sortedX,
			YValues: sortedY,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
			},
		},
	}

	for _, res := range results {
		fitted := make([]float64, len(sortedX))
		for i, xv := range sortedX {
			fitted[i] = res.Predict(xv)
		}
		seriesList = append(seriesList, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (R²=%.4f)", res.Name(), res.R2),
			XValues: sortedX,
			YValues: fitted,
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: xLabel},
		YAxis:  chart.YAxis{Name: yLabel, Range: paddedRange(sortedY)},
		Series: seriesList,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// ResidualsPNG renders model residuals over time with a zero reference line.
func ResidualsPNG(path, title string, dates []time.Time, result regress.Result) error {
	if len(dates) == 0 || len(dates) != len(result.Residuals) {
		return fmt.Errorf("report: invalid residual chart input (%d dates, %d residuals)",
			len(dates), len(result.Residuals))
	}

	zero := make([]float64, len(dates))

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Residual (bps)",
			Range: paddedRange(result.Residuals),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    fmt.Sprintf("%s residuals", result.Name()),
				XValues: dates,
				YValues: result.Residuals,
			},
			chart.TimeSeries{
				Name:    "Zero",
				XValues: dates,
				YValues: zero,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, graph)
}

// paddedRange widens a collapsed value range so constant series (e.g. a
// flat spread) still render instead of failing on a zero-delta axis.
func paddedRange(sets ...[]float64) chart.Range {
	first := true
	var min, max float64
	for _, set := range sets {
		for _, v := range set {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if first || max-min > 1e-9 {
		return nil
	}
	return &chart.ContinuousRange{Min: min - 1, Max: max + 1}
}

func renderPNG(path string, graph chart.Chart) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
