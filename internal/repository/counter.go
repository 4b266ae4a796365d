package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/session-archiver/internal/models"
)

const recountSessionQuery = `UPDATE sessions SET enrolled_count = (
	SELECT COUNT(*) FROM enrollments e
	WHERE e.session_id = $1 AND e.enrollment_status IN ('pending', 'approved')
), updated_at = $2 WHERE id = $1`

const decrementSessionQuery = `UPDATE sessions SET enrolled_count = GREATEST(enrolled_count - 1, 0), updated_at = $2 WHERE id = $1`

// recountSession rewrites enrolled_count from the live enrollments of the session.
func recountSession(ctx context.Context, exec sqlx.ExecerContext, sessionID string, now time.Time) error {
	if _, err := exec.ExecContext(ctx, recountSessionQuery, sessionID, now); err != nil {
		return fmt.Errorf("recount session %s: %w", sessionID, err)
	}
	return nil
}

// decrementSession lowers enrolled_count by one, never below zero.
func decrementSession(ctx context.Context, exec sqlx.ExecerContext, sessionID string, now time.Time) error {
	if _, err := exec.ExecContext(ctx, decrementSessionQuery, sessionID, now); err != nil {
		return fmt.Errorf("decrement session %s: %w", sessionID, err)
	}
	return nil
}

// CounterRepository reconciles denormalised enrollment counters.
type CounterRepository struct {
	db *sqlx.DB
}

// NewCounterRepository constructs the repository.
func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// ListDrift returns live sessions whose enrolled_count disagrees with their live enrollments.
func (r *CounterRepository) ListDrift(ctx context.Context) ([]models.CounterDrift, error) {
	const query = `SELECT s.id AS session_id, s.enrolled_count AS stored, COALESCE(c.actual, 0) AS actual
FROM sessions s
LEFT JOIN (
	SELECT session_id, COUNT(*) AS actual FROM enrollments
	WHERE enrollment_status IN ('pending', 'approved')
	GROUP BY session_id
) c ON c.session_id = s.id
WHERE s.deleted_at IS NULL AND s.enrolled_count <> COALESCE(c.actual, 0)
ORDER BY s.id`
	var drifts []models.CounterDrift
	if err := r.db.SelectContext(ctx, &drifts, query); err != nil {
		return nil, fmt.Errorf("list counter drift: %w", err)
	}
	return drifts, nil
}

// Recount locks the session row and recomputes its counter.
func (r *CounterRepository) Recount(ctx context.Context, sessionID string, now time.Time) error {
	return runInTx(ctx, r.db, "recount", func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID); err != nil {
			return fmt.Errorf("lock session %s: %w", sessionID, err)
		}
		return recountSession(ctx, tx, sessionID, now)
	})
}
