package analysis

import (
	"math"

	"github.com/shopspring/decimal"

	"ratespread/internal/series"
)

// Stats summarises a spread series in basis points.
type Stats struct {
	Count int
	Mean  decimal.Decimal
	Std   decimal.Decimal
	Min   decimal.Decimal
	Max   decimal.Decimal
}

// Describe computes count/mean/std/min/max for a series.
func Describe(ts series.TimeSeries) Stats {
	n := ts.Len()
	if n == 0 {
		return Stats{}
	}

	values := make([]float64, n)
	min := ts.At(0).Value
	max := ts.At(0).Value
	var sum float64
	for i := 0; i < n; i++ {
		v := ts.At(i).Value
		values[i] = v.InexactFloat64()
		sum += values[i]
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	if n > 1 {
		variance /= float64(n - 1)
	} else {
		variance = 0
	}

	return Stats{
		Count: n,
		Mean:  decimal.NewFromFloat(mean).Round(4),
		Std:   decimal.NewFromFloat(math.Sqrt(variance)).Round(4),
		Min:   min,
		Max:   max,
	}
}
