package series

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FillPolicy controls how alignment resolves dates without an exact
// observation.
type FillPolicy string

const (
	// FillForward carries the last observation on or before the target
	// date, however stale.
	FillForward FillPolicy = "ffill"
	// FillDrop keeps a row only when every series observed within the
	// seven days ending at the target date.
	FillDrop FillPolicy = "drop"
)

// ParseFillPolicy maps a config string onto a FillPolicy.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(s) {
	case FillForward, FillDrop:
		return FillPolicy(s), nil
	case "":
		return FillForward, nil
	}
	return "", fmt.Errorf("series: unknown fill policy %q", s)
}

// Column is one aligned series inside an AlignedFrame.
type Column struct {
	ID     string
	Unit   string
	Values []decimal.Decimal
}

// AlignedFrame holds two or more series resampled onto a shared weekly
// grid. Every row has a value for every column.
type AlignedFrame struct {
	Dates   []time.Time
	Columns []Column
}

// Len returns the number of aligned rows.
func (f AlignedFrame) Len() int { return len(f.Dates) }

// Column looks a column up by series ID.
func (f AlignedFrame) Column(id string) (Column, bool) {
	for _, c := range f.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Series extracts an aligned column back out as a TimeSeries.
func (f AlignedFrame) Series(id string) (TimeSeries, error) {
	col, ok := f.Column(id)
	if !ok {
		return TimeSeries{}, fmt.Errorf("series: column %s not in frame", id)
	}
	obs := make([]Observation, len(f.Dates))
	for i, d := range f.Dates {
		obs[i] = Observation{Date: d, Value: col.Values[i]}
	}
	return New(id, col.Unit, obs)
}

// AlignWeekly resamples the given series onto a weekly grid anchored on the
// given weekday (the original analysis used Wednesday). For each grid date
// the last observation on or before that date is selected. Grid dates
// before any series has data are dropped; the grid ends at the earliest of
// the series' final observations, so no value is carried past its source.
func AlignWeekly(weekday time.Weekday, policy FillPolicy, inputs ...TimeSeries) (AlignedFrame, error) {
	if len(inputs) < 2 {
		return AlignedFrame{}, fmt.Errorf("series: alignment needs at least two series, got %d", len(inputs))
	}

	var gridStart, gridEnd time.Time
	for _, ts := range inputs {
		first, err := ts.First()
		if err != nil {
			return AlignedFrame{}, err
		}
		last, _ := ts.Last()
		if gridStart.IsZero() || first.Date.After(gridStart) {
			gridStart = first.Date
		}
		if gridEnd.IsZero() || last.Date.Before(gridEnd) {
			gridEnd = last.Date
		}
	}

	start := nextWeekdayOnOrAfter(gridStart, weekday)
	end := lastWeekdayOnOrBefore(gridEnd, weekday)
	if start.After(end) {
		return AlignedFrame{}, fmt.Errorf("series: no overlapping %s grid between %s and %s: %w",
			weekday, gridStart.Format(time.DateOnly), gridEnd.Format(time.DateOnly), ErrMissingData)
	}

	frame := AlignedFrame{Columns: make([]Column, len(inputs))}
	for i, ts := range inputs {
		frame.Columns[i] = Column{ID: ts.ID(), Unit: ts.Unit()}
	}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 7) {
		row := make([]decimal.Decimal, len(inputs))
		complete := true
		for i, ts := range inputs {
			obs, ok := ts.valueOnOrBefore(date)
			if !ok {
				complete = false
				break
			}
			if policy == FillDrop && date.Sub(obs.Date) > 6*24*time.Hour {
				complete = false
				break
			}
			row[i] = obs.Value
		}
		if !complete {
			continue
		}
		frame.Dates = append(frame.Dates, date)
		for i := range inputs {
			frame.Columns[i].Values = append(frame.Columns[i].Values, row[i])
		}
	}

	if len(frame.Dates) == 0 {
		return AlignedFrame{}, fmt.Errorf("series: alignment produced no complete rows: %w", ErrMissingData)
	}

	return frame, nil
}

func nextWeekdayOnOrAfter(t time.Time, weekday time.Weekday) time.Time {
	t = truncateDay(t)
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset)
}

func lastWeekdayOnOrBefore(t time.Time, weekday time.Weekday) time.Time {
	t = truncateDay(t)
	offset := (int(t.Weekday()) - int(weekday) + 7) % 7
	return t.AddDate(0, 0, -offset)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseWeekday maps a config string onto a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("series: unknown weekday %q", s)
}
