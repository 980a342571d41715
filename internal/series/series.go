package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingData indicates a series has no usable observations for the
	// requested operation.
	ErrMissingData = errors.New("series: missing data")
)

// Observation is a single dated value.
type Observation struct {
	Date  time.Time
	Value decimal.Decimal
}

// TimeSeries is an ordered sequence of observations with strictly
// increasing, unique timestamps. Instances are immutable after construction.
type TimeSeries struct {
	id   string
	unit string
	obs  []Observation
}

// New validates ordering and builds a TimeSeries. Observation dates must be
// strictly increasing.
func New(id, unit string, obs []Observation) (TimeSeries, error) {
	if id == "" {
		return TimeSeries{}, errors.New("series: id required")
	}

	copied := make([]Observation, len(obs))
	for i, o := range obs {
		if i > 0 && !obs[i-1].Date.Before(o.Date) {
			return TimeSeries{}, fmt.Errorf("series %s: observations out of order at index %d (%s after %s)",
				id, i, o.Date.Format(time.DateOnly), obs[i-1].Date.Format(time.DateOnly))
		}
		copied[i] = Observation{Date: o.Date.UTC(), Value: o.Value}
	}

	return TimeSeries{id: id, unit: unit, obs: copied}, nil
}

// ID returns the source identifier.
func (t TimeSeries) ID() string { return t.id }

// Unit returns the measurement unit, e.g. "percent" or "bps".
func (t TimeSeries) Unit() string { return t.unit }

// Len returns the number of observations.
func (t TimeSeries) Len() int { return len(t.obs) }

// At returns the i-th observation.
func (t TimeSeries) At(i int) Observation { return t.obs[i] }

// First returns the earliest observation.
func (t TimeSeries) First() (Observation, error) {
	if len(t.obs) == 0 {
		return Observation{}, fmt.Errorf("series %s: %w", t.id, ErrMissingData)
	}
	return t.obs[0], nil
}

// Last returns the latest observation.
func (t TimeSeries) Last() (Observation, error) {
	if len(t.obs) == 0 {
		return Observation{}, fmt.Errorf("series %s: %w", t.id, ErrMissingData)
	}
	return t.obs[len(t.obs)-1], nil
}

// Dates returns a copy of all observation dates in order.
func (t TimeSeries) Dates() []time.Time {
	dates := make([]time.Time, len(t.obs))
	for i, o := range t.obs {
		dates[i] = o.Date
	}
	return dates
}

// Values returns a copy of all observation values in order.
func (t TimeSeries) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, len(t.obs))
	for i, o := range t.obs {
		values[i] = o.Value
	}
	return values
}

// AddConstant derives a new series with delta added to every value,
// keeping the timestamp set intact. Used for proxy series.
func (t TimeSeries) AddConstant(id string, delta decimal.Decimal) TimeSeries {
	obs := make([]Observation, len(t.obs))
	for i, o := range t.obs {
		obs[i] = Observation{Date: o.Date, Value: o.Value.Add(delta)}
	}
	return TimeSeries{id: id, unit: t.unit, obs: obs}
}

// valueOnOrBefore returns the last observation value at or before date.
func (t TimeSeries) valueOnOrBefore(date time.Time) (Observation, bool) {
	idx := sort.Search(len(t.obs), func(i int) bool {
		return t.obs[i].Date.After(date)
	})
	if idx == 0 {
		return Observation{}, false
	}
	return t.obs[idx-1], true
}
