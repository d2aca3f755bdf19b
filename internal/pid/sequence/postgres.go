package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"prms/internal/pid"
	"prms/pkg/platform/sentinel"
)

// nextSequenceQuery creates the period row on first use and increments it
// otherwise. The row lock taken by ON CONFLICT serialises concurrent callers.
const nextSequenceQuery = `
	INSERT INTO pid_sequences (site_code, period, last_value)
	VALUES ($1, $2, 1)
	ON CONFLICT (site_code, period) DO UPDATE SET
		last_value = pid_sequences.last_value + 1,
		updated_at = NOW()
	RETURNING last_value
`

const currentSequenceQuery = `SELECT last_value FROM pid_sequences WHERE site_code = $1 AND period = $2`

// Postgres persists one counter row per site and period.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed allocator.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Next increments and returns period's counter.
func (a *Postgres) Next(ctx context.Context, period pid.Period) (int, error) {
	var next int
	err := a.db.QueryRowContext(ctx, nextSequenceQuery, period.SiteCode, period.Year+period.Month).Scan(&next)
	if err != nil {
		return 0, classifyPostgresError(fmt.Sprintf("next sequence for %s", period), err)
	}
	return next, nil
}

// Current returns the last value issued for period.
func (a *Postgres) Current(ctx context.Context, period pid.Period) (int, error) {
	var current int
	err := a.db.QueryRowContext(ctx, currentSequenceQuery, period.SiteCode, period.Year+period.Month).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence for %s: %w", period, sentinel.ErrNotFound)
	}
	if err != nil {
		return 0, classifyPostgresError(fmt.Sprintf("current sequence for %s", period), err)
	}
	return current, nil
}

// classifyPostgresError marks connection-class failures (SQLSTATE 08) as
// unavailable so the service can report them as retryable. Both supported
// drivers are recognised.
func classifyPostgresError(op string, err error) error {
	if isConnectionFailure(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}
