package series

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// basis points per percentage point
var bpsPerPercent = decimal.NewFromInt(100)

// BasisPointSpread computes (a - b) * 100 across an aligned frame, turning
// a percentage-point difference into basis points. The result keeps the
// frame's timestamp set exactly; no smoothing is applied.
func BasisPointSpread(frame AlignedFrame, spreadID, colA, colB string) (TimeSeries, error) {
	a, ok := frame.Column(colA)
	if !ok {
		return TimeSeries{}, fmt.Errorf("series: spread input %s not in frame", colA)
	}
	b, ok := frame.Column(colB)
	if !ok {
		return TimeSeries{}, fmt.Errorf("series: spread input %s not in frame", colB)
	}

	obs := make([]Observation, frame.Len())
	for i, date := range frame.Dates {
		obs[i] = Observation{
			Date:  date,
			Value: a.Values[i].Sub(b.Values[i]).Mul(bpsPerPercent),
		}
	}

	return New(spreadID, "bps", obs)
}
