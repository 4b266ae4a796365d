package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/session-archiver/internal/models"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

// RestoreRepository moves wrongly archived enrollments back into the live tables.
type RestoreRepository struct {
	db *sqlx.DB
}

// NewRestoreRepository constructs the repository.
func NewRestoreRepository(db *sqlx.DB) *RestoreRepository {
	return &RestoreRepository{db: db}
}

// RestoreParams describes one restoration.
type RestoreParams struct {
	Historical models.HistoricalEnrollment
	// LiveID is used when the historical row does not remember its original id.
	LiveID string
	// Revive clears the soft delete of the destination session when it is set.
	Revive bool
	Now    time.Time
}

// RestoreResult reports what a committed restoration changed.
type RestoreResult struct {
	EnrollmentID  string
	Restored      bool
	AlreadyLive   bool
	SessionRevive bool
}

// ListRestorable returns historical enrollments that still count towards a session.
func (r *RestoreRepository) ListRestorable(ctx context.Context) ([]models.HistoricalEnrollment, error) {
	query := `SELECT ` + historicalEnrollmentColumns + `
	FROM historical_enrollments
	WHERE enrollment_status IN ('pending', 'approved')
	ORDER BY archived_at, id`
	var rows []models.HistoricalEnrollment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list restorable enrollments: %w", err)
	}
	return rows, nil
}

// FindSessions loads sessions by id regardless of their soft-delete state.
func (r *RestoreRepository) FindSessions(ctx context.Context, ids []string) (map[string]models.Session, error) {
	result := make(map[string]models.Session, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ANY($1)`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	for _, s := range sessions {
		result[s.ID] = s
	}
	return result, nil
}

// FindHistoricalSessions loads historical sessions by their own id.
func (r *RestoreRepository) FindHistoricalSessions(ctx context.Context, ids []string) (map[string]models.HistoricalSession, error) {
	result := make(map[string]models.HistoricalSession, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + historicalSessionColumns + ` FROM historical_sessions WHERE id = ANY($1)`
	var snapshots []models.HistoricalSession
	if err := r.db.SelectContext(ctx, &snapshots, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find historical sessions: %w", err)
	}
	for _, h := range snapshots {
		result[h.ID] = h
	}
	return result, nil
}

// LiveExists reports whether the historical row already has a live counterpart, either by
// original id or by the (user, session) pair.
func (r *RestoreRepository) LiveExists(ctx context.Context, h models.HistoricalEnrollment) (bool, error) {
	return liveExists(ctx, r.db, h)
}

func liveExists(ctx context.Context, q sqlx.QueryerContext, h models.HistoricalEnrollment) (bool, error) {
	originalID := ""
	if h.OriginalEnrollmentID != nil {
		originalID = *h.OriginalEnrollmentID
	}
	const query = `SELECT 1 FROM enrollments WHERE id = $1 OR (user_id = $2 AND session_id = $3) LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, query, originalID, h.UserID, h.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check live enrollment: %w", err)
	}
	return true, nil
}

// Restore re-inserts the live enrollment, resyncs the session counter, optionally revives the
// session and drops the historical copy, all in one transaction.
func (r *RestoreRepository) Restore(ctx context.Context, params RestoreParams) (RestoreResult, error) {
	h := params.Historical
	live := h.Live(params.LiveID)
	result := RestoreResult{EnrollmentID: live.ID}

	err := runInTx(ctx, r.db, "restore", func(tx *sqlx.Tx) error {
		var session struct {
			ID        string     `db:"id"`
			DeletedAt *time.Time `db:"deleted_at"`
		}
		if err := tx.GetContext(ctx, &session, `SELECT id, deleted_at FROM sessions WHERE id = $1 FOR UPDATE`, h.SessionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", h.SessionID))
			}
			return fmt.Errorf("lock session %s: %w", h.SessionID, err)
		}

		exists, err := liveExists(ctx, tx, h)
		if err != nil {
			return err
		}
		if exists {
			result.AlreadyLive = true
			return nil
		}

		const insertQuery = `INSERT INTO enrollments
	(id, user_id, class_id, session_id, payment_status, enrollment_status, enrolled_at, reviewed_by, reviewed_at, review_note)
	VALUES (:id, :user_id, :class_id, :session_id, :payment_status, :enrollment_status, :enrolled_at, :reviewed_by, :reviewed_at, :review_note)
	ON CONFLICT DO NOTHING`
		res, err := tx.NamedExecContext(ctx, insertQuery, live)
		if err != nil {
			return fmt.Errorf("insert live enrollment %s: %w", live.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check live enrollment insert: %w", err)
		}
		if affected == 0 {
			result.AlreadyLive = true
			return nil
		}

		if err := recountSession(ctx, tx, h.SessionID, params.Now); err != nil {
			return err
		}

		if params.Revive && session.DeletedAt != nil {
			const reviveQuery = `UPDATE sessions SET deleted_at = NULL, archived_into = NULL, status = $2, updated_at = $3 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, reviveQuery, h.SessionID, models.SessionStatusScheduled, params.Now); err != nil {
				return fmt.Errorf("revive session %s: %w", h.SessionID, err)
			}
			result.SessionRevive = true
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM historical_enrollments WHERE id = $1`, h.ID); err != nil {
			return fmt.Errorf("delete historical enrollment %s: %w", h.ID, err)
		}

		// The historical session goes once its last enrollment is restored into a live session,
		// whichever row revived it.
		if session.DeletedAt == nil || result.SessionRevive {
			const pruneQuery = `DELETE FROM historical_sessions hs WHERE hs.id = $1
	AND NOT EXISTS (SELECT 1 FROM historical_enrollments he WHERE he.historical_session_id = hs.id)`
			if _, err := tx.ExecContext(ctx, pruneQuery, h.HistoricalSessionID); err != nil {
				return fmt.Errorf("prune historical session %s: %w", h.HistoricalSessionID, err)
			}
		}

		result.Restored = true
		return nil
	})
	if err != nil {
		return RestoreResult{EnrollmentID: live.ID}, err
	}
	return result, nil
}
