package series

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustSeries(t *testing.T, id string, obs []Observation) TimeSeries {
	t.Helper()
	ts, err := New(id, "percent", obs)
	if err != nil {
		t.Fatalf("build series %s: %v", id, err)
	}
	return ts
}

func dailySeries(t *testing.T, id string, start time.Time, values ...float64) TimeSeries {
	t.Helper()
	obs := make([]Observation, len(values))
	for i, v := range values {
		obs[i] = Observation{Date: start.AddDate(0, 0, i), Value: decimal.NewFromFloat(v)}
	}
	return mustSeries(t, id, obs)
}

func TestNewRejectsOutOfOrder(t *testing.T) {
	_, err := New("X", "percent", []Observation{
		{Date: day(2024, 1, 2), Value: decimal.NewFromInt(1)},
		{Date: day(2024, 1, 2), Value: decimal.NewFromInt(2)},
	})
	if err == nil {
		t.Fatal("duplicate dates should be rejected")
	}
}

func TestAlignWeeklyFullRows(t *testing.T) {
	// Weekly series printing Thursdays, daily series Mon-Fri.
	// 2024-01-04 is a Thursday; 2024-01-10 a Wednesday.
	weekly := mustSeries(t, "PMMS", []Observation{
		{Date: day(2024, 1, 4), Value: decimal.NewFromFloat(6.62)},
		{Date: day(2024, 1, 11), Value: decimal.NewFromFloat(6.66)},
		{Date: day(2024, 1, 18), Value: decimal.NewFromFloat(6.60)},
		{Date: day(2024, 1, 25), Value: decimal.NewFromFloat(6.69)},
	})
	daily := dailySeries(t, "DGS10", day(2024, 1, 2),
		3.95, 3.91, 3.99, 4.04, 4.02, 4.01, 4.03, 4.00, 3.97, 3.94,
		3.96, 3.98, 4.05, 4.08, 4.10, 4.12, 4.09, 4.11, 4.13, 4.15)

	frame, err := AlignWeekly(time.Wednesday, FillForward, weekly, daily)
	if err != nil {
		t.Fatalf("alignment should succeed: %v", err)
	}

	if frame.Len() == 0 {
		t.Fatal("frame should not be empty")
	}
	for _, date := range frame.Dates {
		if date.Weekday() != time.Wednesday {
			t.Fatalf("grid date %s is not a Wednesday", date.Format(time.DateOnly))
		}
	}
	for _, col := range frame.Columns {
		if len(col.Values) != frame.Len() {
			t.Fatalf("column %s has %d values for %d rows", col.ID, len(col.Values), frame.Len())
		}
	}

	// First grid date must not precede the weekly series' first print.
	if frame.Dates[0].Before(day(2024, 1, 4)) {
		t.Fatalf("leading dates before all series have data must be dropped, got %s", frame.Dates[0].Format(time.DateOnly))
	}

	// 2024-01-10: weekly value carried from Jan 4, daily from Jan 10 itself.
	pmms, _ := frame.Column("PMMS")
	if !pmms.Values[0].Equal(decimal.NewFromFloat(6.62)) {
		t.Fatalf("expected carried PMMS value 6.62, got %s", pmms.Values[0])
	}
}

func TestAlignWeeklyNoObservations(t *testing.T) {
	empty := mustSeries(t, "EMPTY", nil)
	daily := dailySeries(t, "DGS10", day(2024, 1, 2), 3.95, 3.91, 3.99)

	_, err := AlignWeekly(time.Wednesday, FillForward, empty, daily)
	if !errors.Is(err, ErrMissingData) {
		t.Fatalf("empty series should produce ErrMissingData, got %v", err)
	}
}

func TestAlignWeeklyNoOverlap(t *testing.T) {
	early := dailySeries(t, "A", day(2020, 1, 1), 1.0, 1.1, 1.2)
	late := dailySeries(t, "B", day(2024, 1, 1), 2.0, 2.1, 2.2)

	_, err := AlignWeekly(time.Wednesday, FillForward, early, late)
	if !errors.Is(err, ErrMissingData) {
		t.Fatalf("disjoint ranges should produce ErrMissingData, got %v", err)
	}
}

func TestAlignWeeklyDropPolicy(t *testing.T) {
	// Sparse series with a month-long gap: ffill keeps carrying, drop does not.
	sparse := mustSeries(t, "SPARSE", []Observation{
		{Date: day(2024, 1, 3), Value: decimal.NewFromFloat(5.0)},
		{Date: day(2024, 2, 7), Value: decimal.NewFromFloat(5.5)},
	})
	daily := dailySeries(t, "DGS10", day(2024, 1, 1),
		4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0,
		4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0,
		4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0,
		4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0, 4.0)

	ffill, err := AlignWeekly(time.Wednesday, FillForward, sparse, daily)
	if err != nil {
		t.Fatalf("ffill alignment should succeed: %v", err)
	}

	drop, err := AlignWeekly(time.Wednesday, FillDrop, sparse, daily)
	if err != nil {
		t.Fatalf("drop alignment should succeed: %v", err)
	}

	if drop.Len() >= ffill.Len() {
		t.Fatalf("drop policy should keep fewer rows (%d) than ffill (%d)", drop.Len(), ffill.Len())
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("wednesday")
	if err != nil || d != time.Wednesday {
		t.Fatalf("expected Wednesday, got %v (%v)", d, err)
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatal("unknown weekday should error")
	}
}

func TestParseFillPolicy(t *testing.T) {
	p, err := ParseFillPolicy("")
	if err != nil || p != FillForward {
		t.Fatalf("empty policy should default to ffill, got %v (%v)", p, err)
	}
	if _, err := ParseFillPolicy("interpolate"); err == nil {
		t.Fatal("unsupported policy should error")
	}
}
