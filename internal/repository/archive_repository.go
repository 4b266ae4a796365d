package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

// ArchiveRepository moves ended sessions and their enrollments into the historical tables.
type ArchiveRepository struct {
	db    *sqlx.DB
	newID func() string
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db, newID: uuid.NewString}
}

// ListLiveEndingBy pages through live sessions whose effective date is on or before lastDay,
// ordered by id and starting after afterID.
func (r *ArchiveRepository) ListLiveEndingBy(ctx context.Context, lastDay time.Time, afterID string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + sessionColumns + `
	FROM sessions
	WHERE deleted_at IS NULL AND COALESCE(end_date, session_date) <= $1 AND id > $2
	ORDER BY id
	LIMIT $3`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, lastDay.Format("2006-01-02"), afterID, limit); err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	return sessions, nil
}

// ArchiveSession completes, copies and soft-deletes one session inside a single transaction.
// Repeated calls are safe: historical rows are keyed by the original ids.
func (r *ArchiveRepository) ArchiveSession(ctx context.Context, sessionID string, now time.Time, reason string) (result dto.ArchiveResult, err error) {
	result.SessionID = sessionID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var session models.Session
	lockQuery := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err = tx.GetContext(ctx, &session, lockQuery, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrSessionNotLive, fmt.Sprintf("session %s is not live", sessionID))
			return result, err
		}
		return result, fmt.Errorf("lock session %s: %w", sessionID, err)
	}

	const completeQuery = `UPDATE sessions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, completeQuery, sessionID, models.SessionStatusCompleted, now); err != nil {
		return result, fmt.Errorf("complete session %s: %w", sessionID, err)
	}
	session.Status = models.SessionStatusCompleted

	var enrollments []models.Enrollment
	enrollmentQuery := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE session_id = $1 ORDER BY enrolled_at, id FOR UPDATE`
	if err = tx.SelectContext(ctx, &enrollments, enrollmentQuery, sessionID); err != nil {
		return result, fmt.Errorf("load enrollments for session %s: %w", sessionID, err)
	}

	var archivedInto *string
	if len(enrollments) > 0 {
		historicalID, reused, herr := r.upsertHistoricalSession(ctx, tx, session, now, reason)
		if herr != nil {
			err = herr
			return result, err
		}
		result.HistoricalSessionID = historicalID
		result.ReusedHistorical = reused
		archivedInto = &historicalID

		for _, enrollment := range enrollments {
			inserted, ierr := r.insertHistoricalEnrollment(ctx, tx, enrollment, historicalID, now, reason)
			if ierr != nil {
				err = ierr
				return result, err
			}
			if inserted {
				result.ArchivedEnrollments++
			}
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE session_id = $1`, sessionID); err != nil {
			return result, fmt.Errorf("delete enrollments for session %s: %w", sessionID, err)
		}
		if err = recountSession(ctx, tx, sessionID, now); err != nil {
			return result, err
		}
	}

	const softDeleteQuery = `UPDATE sessions SET deleted_at = $2, archived_into = $3, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, softDeleteQuery, sessionID, now, archivedInto); err != nil {
		return result, fmt.Errorf("soft delete session %s: %w", sessionID, err)
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit archive transaction: %w", err)
	}
	return result, nil
}

func (r *ArchiveRepository) upsertHistoricalSession(ctx context.Context, tx *sqlx.Tx, session models.Session, now time.Time, reason string) (string, bool, error) {
	snapshot := models.NewHistoricalSession(r.newID(), session, now, reason)
	const insertQuery = `INSERT INTO historical_sessions
	(id, original_session_id, class_id, session_date, end_date, start_time, end_time, capacity, enrolled_count,
	 instructor_id, status, archived_at, archived_reason)
	VALUES (:id, :original_session_id, :class_id, :session_date, :end_date, :start_time, :end_time, :capacity, :enrolled_count,
	 :instructor_id, :status, :archived_at, :archived_reason)
	ON CONFLICT (original_session_id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, insertQuery, snapshot)
	if err != nil {
		return "", false, fmt.Errorf("insert historical session for %s: %w", session.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("check historical session insert: %w", err)
	}
	if affected == 1 {
		return snapshot.ID, false, nil
	}

	var existingID string
	if err := tx.GetContext(ctx, &existingID, `SELECT id FROM historical_sessions WHERE original_session_id = $1`, session.ID); err != nil {
		return "", false, fmt.Errorf("load historical session for %s: %w", session.ID, err)
	}
	return existingID, true, nil
}

func (r *ArchiveRepository) insertHistoricalEnrollment(ctx context.Context, tx *sqlx.Tx, enrollment models.Enrollment, historicalSessionID string, now time.Time, reason string) (bool, error) {
	row := models.NewHistoricalEnrollment(r.newID(), enrollment, historicalSessionID, now, reason)
	const insertQuery = `INSERT INTO historical_enrollments
	(id, original_enrollment_id, historical_session_id, user_id, class_id, session_id, payment_status,
	 enrollment_status, enrolled_at, reviewed_by, reviewed_at, review_note, archived_at, archived_reason)
	VALUES (:id, :original_enrollment_id, :historical_session_id, :user_id, :class_id, :session_id, :payment_status,
	 :enrollment_status, :enrolled_at, :reviewed_by, :reviewed_at, :review_note, :archived_at, :archived_reason)
	ON CONFLICT (original_enrollment_id) WHERE original_enrollment_id IS NOT NULL DO NOTHING`
	res, err := tx.NamedExecContext(ctx, insertQuery, row)
	if err != nil {
		return false, fmt.Errorf("insert historical enrollment for %s: %w", enrollment.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check historical enrollment insert: %w", err)
	}
	return affected == 1, nil
}
