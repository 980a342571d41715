package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextOccurrenceSameWeek(t *testing.T) {
	s := New(Options{Weekday: time.Thursday, At: 16 * time.Hour}, zerolog.Nop())

	// Monday 2024-01-01 10:00 UTC -> Thursday 2024-01-04 16:00 UTC.
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	next := s.NextOccurrence(now)
	want := time.Date(2024, 1, 4, 16, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestNextOccurrenceRollsToNextWeek(t *testing.T) {
	s := New(Options{Weekday: time.Thursday, At: 16 * time.Hour}, zerolog.Nop())

	// Thursday at exactly 16:00 must schedule the following week.
	now := time.Date(2024, 1, 4, 16, 0, 0, 0, time.UTC)
	next := s.NextOccurrence(now)
	want := time.Date(2024, 1, 11, 16, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestNextOccurrenceLaterSameDay(t *testing.T) {
	s := New(Options{Weekday: time.Thursday, At: 16 * time.Hour}, zerolog.Nop())

	now := time.Date(2024, 1, 4, 9, 30, 0, 0, time.UTC)
	next := s.NextOccurrence(now)
	want := time.Date(2024, 1, 4, 16, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}
