package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchSeriesMissingAPIKey(t *testing.T) {
	f := NewFRED(FREDOptions{}, noopLogger())
	if _, err := f.FetchSeries(context.Background(), "DGS10", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestFetchSeriesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error_code": 400, "error_message": "Bad Request. The series does not exist."})
	}))
	defer srv.Close()

	f := NewFRED(FREDOptions{BaseURL: srv.URL, APIKey: "test", Timeout: time.Second}, noopLogger())
	_, err := f.FetchSeries(context.Background(), "NOPE", time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected error on HTTP 400")
	}
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("error should wrap ErrFetch, got %v", err)
	}
}

func TestFetchSeriesSkipsPlaceholders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("series_id"); got != "DGS10" {
			t.Fatalf("unexpected series_id %q", got)
		}
		if got := r.URL.Query().Get("observation_start"); got != "2024-01-01" {
			t.Fatalf("unexpected observation_start %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"observations": []map[string]string{
				{"date": "2024-01-02", "value": "3.95"},
				{"date": "2024-01-03", "value": "."},
				{"date": "2024-01-04", "value": "4.00"},
			},
		})
	}))
	defer srv.Close()

	f := NewFRED(FREDOptions{BaseURL: srv.URL, APIKey: "test", Timeout: time.Second}, noopLogger())
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts, err := f.FetchSeries(context.Background(), "DGS10", from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if ts.Len() != 2 {
		t.Fatalf("placeholder rows should be skipped, got %d observations", ts.Len())
	}
	if got := ts.At(1).Value.String(); got != "4" {
		t.Fatalf("unexpected value %s", got)
	}
	if ts.Unit() != "percent" {
		t.Fatalf("unexpected unit %s", ts.Unit())
	}
}

func TestFetchSeriesNetworkError(t *testing.T) {
	f := NewFRED(FREDOptions{BaseURL: "http://127.0.0.1:1", APIKey: "test", Timeout: 200 * time.Millisecond}, noopLogger())
	_, err := f.FetchSeries(context.Background(), "DGS10", time.Time{}, time.Time{})
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("network failure should wrap ErrFetch, got %v", err)
	}
}
