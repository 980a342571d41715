package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ratespread/internal/series"
)

const observationsPath = "/series/observations"

// FREDOptions parameterise the FRED API client.
type FREDOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// FRED fetches observation series from the St. Louis Fed FRED API.
type FRED struct {
	opts    FREDOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFRED constructs a FRED client.
func NewFRED(opts FREDOptions, logger zerolog.Logger) *FRED {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stlouisfed.org/fred"
	}

	return &FRED{
		opts:    opts,
		logger:  logger.With().Str("component", "fred_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSeries retrieves the observations for one series identifier. FRED
// reports missing trading days as the placeholder value "."; those rows are
// skipped rather than fabricated.
func (f *FRED) FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (series.TimeSeries, error) {
	if f.opts.APIKey == "" {
		return series.TimeSeries{}, errors.New("fred api key not configured")
	}
	if seriesID == "" {
		return series.TimeSeries{}, errors.New("series id required")
	}

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", f.opts.APIKey)
	query.Set("file_type", "json")
	if !from.IsZero() {
		query.Set("observation_start", from.UTC().Format(time.DateOnly))
	}
	if !to.IsZero() {
		query.Set("observation_end", to.UTC().Format(time.DateOnly))
	}

	endpoint := f.baseURL + observationsPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return series.TimeSeries{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "ratespread/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return series.TimeSeries{}, fmt.Errorf("%w: %s: %v", ErrFetch, seriesID, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return series.TimeSeries{}, fmt.Errorf("%w: %s: read body: %v", ErrFetch, seriesID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return series.TimeSeries{}, parseAPIError(seriesID, resp.StatusCode, payload)
	}

	var body observationsResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return series.TimeSeries{}, fmt.Errorf("decode fred response for %s: %w", seriesID, err)
	}

	obs := make([]series.Observation, 0, len(body.Observations))
	skipped := 0
	for _, o := range body.Observations {
		if o.Value == "." || o.Value == "" {
			skipped++
			continue
		}
		date, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return series.TimeSeries{}, fmt.Errorf("parse observation date %q for %s: %w", o.Date, seriesID, err)
		}
		value, err := decimal.NewFromString(o.Value)
		if err != nil {
			return series.TimeSeries{}, fmt.Errorf("parse observation value %q for %s: %w", o.Value, seriesID, err)
		}
		obs = append(obs, series.Observation{Date: date, Value: value})
	}

	f.logger.Debug().
		Str("series_id", seriesID).
		Int("observations", len(obs)).
		Int("skipped", skipped).
		Msg("fetched series")

	return series.New(seriesID, "percent", obs)
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type apiErrorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func parseAPIError(seriesID string, status int, payload []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		return fmt.Errorf("%w: %s: fred api error (%d): %s", ErrFetch, seriesID, status, apiErr.ErrorMessage)
	}
	if len(payload) > 0 {
		return fmt.Errorf("%w: %s: fred api error (%d): %s", ErrFetch, seriesID, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%w: %s: fred api error (%d)", ErrFetch, seriesID, status)
}

var _ SeriesFetcher = (*FRED)(nil)
