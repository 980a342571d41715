package fetcher

import (
	"context"
	"errors"
	"time"

	"ratespread/internal/series"
)

// ErrFetch indicates the upstream data source was unreachable or rejected
// the request. A failed fetch is terminal for the run.
var ErrFetch = errors.New("fetcher: upstream unavailable")

// SeriesFetcher retrieves a named time series over a date range.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (series.TimeSeries, error)
}
