package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertObservationSQL = `INSERT INTO spread_observations (
        study,
        week_ts,
        rate_a,
        rate_b,
        spread_bps
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (study, week_ts) DO UPDATE
    SET
        rate_a     = EXCLUDED.rate_a,
        rate_b     = EXCLUDED.rate_b,
        spread_bps = EXCLUDED.spread_bps;`

	listRecentObservationsSQL = `SELECT
        study,
        week_ts,
        rate_a,
        rate_b,
        spread_bps,
        created_at
    FROM spread_observations
    WHERE study = $1
    ORDER BY week_ts DESC
    LIMIT $2;`

	countObservationsSQL = `SELECT COUNT(*) FROM spread_observations WHERE study = $1;`

	insertRunSQL = `INSERT INTO analysis_runs (
        study,
        started_at,
        finished_at,
        observations,
        mean_bps,
        best_model,
        best_r2,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	listRecentRunsSQL = `SELECT
        id,
        study,
        started_at,
        finished_at,
        observations,
        mean_bps,
        best_model,
        best_r2,
        status,
        error,
        created_at
    FROM analysis_runs
    ORDER BY created_at DESC
    LIMIT $1;`
)

// SpreadObservationStore defines operations for weekly spread persistence.
type SpreadObservationStore interface {
	UpsertSpreadObservation(ctx context.Context, obs SpreadObservation) error
	ListRecentObservations(ctx context.Context, study string, limit int) ([]SpreadObservation, error)
	CountObservations(ctx context.Context, study string) (int64, error)
}

// AnalysisRunStore defines operations for run auditing.
type AnalysisRunStore interface {
	InsertAnalysisRun(ctx context.Context, run AnalysisRun) (AnalysisRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]AnalysisRun, error)
}

// Store aggregates access to spread observations and run records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSpreadObservation persists or updates one weekly spread row.
func (s *Store) UpsertSpreadObservation(ctx context.Context, obs SpreadObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertObservationSQL,
		obs.Study,
		obs.Week,
		obs.RateA.String(),
		obs.RateB.String(),
		obs.SpreadBps.String(),
	)
	if execErr != nil {
		return fmt.Errorf("upsert spread observation: %w", execErr)
	}
	return nil
}

// ListRecentObservations lists the most recent observations for a study.
func (s *Store) ListRecentObservations(ctx context.Context, study string, limit int) ([]SpreadObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentObservationsSQL, study, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent observations: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]SpreadObservation, 0, limit)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

// CountObservations counts stored observations for a study.
func (s *Store) CountObservations(ctx context.Context, study string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL, study).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

// InsertAnalysisRun persists a run audit record.
func (s *Store) InsertAnalysisRun(ctx context.Context, run AnalysisRun) (AnalysisRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return AnalysisRun{}, err
	}

	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}

	row := pool.QueryRow(ctx, insertRunSQL,
		run.Study,
		run.StartedAt,
		run.FinishedAt,
		run.Observations,
		run.MeanBps.String(),
		run.BestModel,
		run.BestR2.String(),
		run.Status,
		errMsg,
	)

	if scanErr := row.Scan(&run.ID, &run.CreatedAt); scanErr != nil {
		return AnalysisRun{}, fmt.Errorf("insert analysis run: %w", scanErr)
	}
	return run, nil
}

// ListRecentRuns lists the most recent run records.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]AnalysisRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]AnalysisRun, 0, limit)
	for rows.Next() {
		var (
			run      AnalysisRun
			meanStr  string
			r2Str    string
			errField sql.NullString
		)
		if err := rows.Scan(
			&run.ID,
			&run.Study,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Observations,
			&meanStr,
			&run.BestModel,
			&r2Str,
			&run.Status,
			&errField,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		run.MeanBps, convErr = decimal.NewFromString(meanStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse mean bps: %w", convErr)
		}
		run.BestR2, convErr = decimal.NewFromString(r2Str)
		if convErr != nil {
			return nil, fmt.Errorf("parse best r2: %w", convErr)
		}
		if errField.Valid {
			msg := errField.String
			run.Error = &msg
		}

		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

func scanObservation(rows pgx.Rows) (SpreadObservation, error) {
	var (
		obs       SpreadObservation
		rateAStr  string
		rateBStr  string
		spreadStr string
	)

	if err := rows.Scan(
		&obs.Study,
		&obs.Week,
		&rateAStr,
		&rateBStr,
		&spreadStr,
		&obs.CreatedAt,
	); err != nil {
		return SpreadObservation{}, err
	}

	var err error
	obs.RateA, err = decimal.NewFromString(rateAStr)
	if err != nil {
		return SpreadObservation{}, fmt.Errorf("parse rate_a: %w", err)
	}
	obs.RateB, err = decimal.NewFromString(rateBStr)
	if err != nil {
		return SpreadObservation{}, fmt.Errorf("parse rate_b: %w", err)
	}
	obs.SpreadBps, err = decimal.NewFromString(spreadStr)
	if err != nil {
		return SpreadObservation{}, fmt.Errorf("parse spread_bps: %w", err)
	}

	return obs, nil
}

var _ SpreadObservationStore = (*Store)(nil)
var _ AnalysisRunStore = (*Store)(nil)
