package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listClientsSQL = `SELECT DISTINCT client_id
    FROM daily_metrics
    WHERE metric_date >= $1
    ORDER BY client_id;`

	listMetricRowsSQL = `SELECT
        client_id,
        campaign_id,
        metric_date,
        impressions,
        clicks,
        cost::text,
        conversions::text,
        quality_score,
        impression_share,
        search_lost_is_budget,
        search_lost_is_rank
    FROM daily_metrics
    WHERE client_id = $1
      AND metric_date >= $2
      AND metric_date <= $3
    ORDER BY campaign_id, metric_date;`

	insertDiagnosisSQL = `INSERT INTO diagnoses (
        run_id,
        client_id,
        alert_id,
        severity,
        category,
        top_hypothesis,
        cpa,
        rating
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (run_id, client_id, alert_id) DO UPDATE
    SET severity       = EXCLUDED.severity,
        top_hypothesis = EXCLUDED.top_hypothesis,
        cpa            = EXCLUDED.cpa,
        rating         = EXCLUDED.rating
    RETURNING id, created_at;`

	listRecentDiagnosesSQL = `SELECT
        id,
        run_id,
        client_id,
        alert_id,
        severity,
        category,
        top_hypothesis,
        cpa::text,
        rating,
        created_at
    FROM diagnoses
    WHERE ($1 = '' OR client_id = $1)
    ORDER BY created_at DESC
    LIMIT $2;`

	deleteDiagnosesBeforeSQL = `DELETE FROM diagnoses WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// MetricReader reads campaign history. The engines never write to it.
type MetricReader interface {
	ListClients(ctx context.Context, since time.Time) ([]string, error)
	ListMetricRows(ctx context.Context, clientID string, from, to time.Time) ([]MetricRow, error)
}

// DiagnosisStore audits diagnoses produced by scans.
type DiagnosisStore interface {
	InsertDiagnosis(ctx context.Context, rec DiagnosisRecord) (DiagnosisRecord, error)
	ListRecentDiagnoses(ctx context.Context, clientID string, limit int) ([]DiagnosisRecord, error)
	DeleteDiagnosesBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to metric history and diagnoses.
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

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Session locks die with the connection, so a failed unlock is harmless.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListClients lists clients with metrics on or after since.
func (s *Store) ListClients(ctx context.Context, since time.Time) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listClientsSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("list clients: %w", queryErr)
	}

	clients, collectErr := pgx.CollectRows(rows, pgx.RowTo[string])
	if collectErr != nil {
		return nil, fmt.Errorf("list clients: %w", collectErr)
	}
	return clients, nil
}

// ListMetricRows lists a client's campaign rows with metric_date in [from, to].
func (s *Store) ListMetricRows(ctx context.Context, clientID string, from, to time.Time) ([]MetricRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listMetricRowsSQL, clientID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list metric rows: %w", queryErr)
	}
	defer rows.Close()

	out := make([]MetricRow, 0)
	for rows.Next() {
		row, scanErr := scanMetricRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InsertDiagnosis persists a diagnosis, updating it if the run already wrote one.
func (s *Store) InsertDiagnosis(ctx context.Context, rec DiagnosisRecord) (DiagnosisRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return DiagnosisRecord{}, err
	}

	row := pool.QueryRow(ctx, insertDiagnosisSQL,
		rec.RunID,
		rec.ClientID,
		rec.AlertID,
		rec.Severity,
		rec.Category,
		rec.TopHypothesis,
		rec.CPA.String(),
		rec.Rating,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return DiagnosisRecord{}, fmt.Errorf("insert diagnosis: %w", scanErr)
	}
	return rec, nil
}

// ListRecentDiagnoses lists the newest diagnoses, optionally for one client.
func (s *Store) ListRecentDiagnoses(ctx context.Context, clientID string, limit int) ([]DiagnosisRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDiagnosesSQL, clientID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent diagnoses: %w", queryErr)
	}
	defer rows.Close()

	out := make([]DiagnosisRecord, 0, limit)
	for rows.Next() {
		var rec DiagnosisRecord
		var cpaStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.ClientID,
			&rec.AlertID,
			&rec.Severity,
			&rec.Category,
			&rec.TopHypothesis,
			&cpaStr,
			&rec.Rating,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.CPA, convErr = decimal.NewFromString(cpaStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse cpa: %w", convErr)
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// DeleteDiagnosesBefore prunes the audit trail.
func (s *Store) DeleteDiagnosesBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteDiagnosesBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete diagnoses before: %w", execErr)
	}
	return nil
}

func scanMetricRow(rows pgx.Rows) (MetricRow, error) {
	var (
		row            MetricRow
		costStr        string
		conversionsStr string
		quality        sql.NullFloat64
		share          sql.NullFloat64
		lostBudget     sql.NullFloat64
		lostRank       sql.NullFloat64
	)

	if err := rows.Scan(
		&row.ClientID,
		&row.CampaignID,
		&row.Date,
		&row.Impressions,
		&row.Clicks,
		&costStr,
		&conversionsStr,
		&quality,
		&share,
		&lostBudget,
		&lostRank,
	); err != nil {
		return MetricRow{}, err
	}

	var err error
	row.Cost, err = decimal.NewFromString(costStr)
	if err != nil {
		return MetricRow{}, fmt.Errorf("parse cost: %w", err)
	}
	row.Conversions, err = decimal.NewFromString(conversionsStr)
	if err != nil {
		return MetricRow{}, fmt.Errorf("parse conversions: %w", err)
	}

	row.QualityScore = nullableFloat(quality)
	row.ImpressionShare = nullableFloat(share)
	row.SearchLostISBudget = nullableFloat(lostBudget)
	row.SearchLostISRank = nullableFloat(lostRank)
	return row, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
