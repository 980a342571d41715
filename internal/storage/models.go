package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadObservation is one persisted weekly spread row for a study.
type SpreadObservation struct {
	Study     string
	Week      time.Time
	RateA     decimal.Decimal
	RateB     decimal.Decimal
	SpreadBps decimal.Decimal
	CreatedAt time.Time
}

// AnalysisRun captures one pipeline execution for auditing.
type AnalysisRun struct {
	ID           int64
	Study        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Observations int
	MeanBps      decimal.Decimal
	BestModel    string
	BestR2       decimal.Decimal
	Status       string
	Error        *string
	CreatedAt    time.Time
}
