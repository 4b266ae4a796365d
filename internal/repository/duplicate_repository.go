package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/session-archiver/internal/models"
)

// UniqueEnrollmentIndex is the constraint that keeps one live enrollment per user and session.
const UniqueEnrollmentIndex = "enrollments_user_session_key"

// DuplicateRepository finds and removes duplicate live enrollments.
type DuplicateRepository struct {
	db *sqlx.DB
}

// NewDuplicateRepository constructs the repository.
func NewDuplicateRepository(db *sqlx.DB) *DuplicateRepository {
	return &DuplicateRepository{db: db}
}

// ListDuplicateGroups returns every (user, session) pair holding more than one live enrollment.
func (r *DuplicateRepository) ListDuplicateGroups(ctx context.Context) ([]models.DuplicateGroup, error) {
	query := `SELECT e.id, e.user_id, e.class_id, e.session_id, e.payment_status, e.enrollment_status, e.enrolled_at,
       e.reviewed_by, e.reviewed_at, e.review_note
	FROM enrollments e
	JOIN (
		SELECT user_id, session_id FROM enrollments
		GROUP BY user_id, session_id
		HAVING COUNT(*) > 1
	) d ON d.user_id = e.user_id AND d.session_id = e.session_id
	ORDER BY e.user_id, e.session_id, e.id`
	var rows []models.Enrollment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list duplicate enrollments: %w", err)
	}

	var groups []models.DuplicateGroup
	for _, row := range rows {
		n := len(groups)
		if n > 0 && groups[n-1].UserID == row.UserID && groups[n-1].SessionID == row.SessionID {
			groups[n-1].Enrollments = append(groups[n-1].Enrollments, row)
			continue
		}
		groups = append(groups, models.DuplicateGroup{
			UserID:      row.UserID,
			SessionID:   row.SessionID,
			Enrollments: []models.Enrollment{row},
		})
	}
	return groups, nil
}

// DeleteDuplicates removes the given enrollments in one transaction. Each removed row that was
// counted (pending or approved) lowers its session counter by one, floored at zero. The returned
// slice holds the ids whose counter was decremented.
func (r *DuplicateRepository) DeleteDuplicates(ctx context.Context, doomed []models.Enrollment, now time.Time) ([]string, error) {
	var decremented []string
	err := runInTx(ctx, r.db, "dedupe", func(tx *sqlx.Tx) error {
		decremented = decremented[:0]
		for _, enrollment := range doomed {
			res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, enrollment.ID)
			if err != nil {
				return fmt.Errorf("delete duplicate enrollment %s: %w", enrollment.ID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("check duplicate delete rows: %w", err)
			}
			if affected == 0 || !enrollment.EnrollmentStatus.Counted() {
				continue
			}
			if err := decrementSession(ctx, tx, enrollment.SessionID, now); err != nil {
				return err
			}
			decremented = append(decremented, enrollment.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decremented, nil
}

// EnsureUniqueConstraint (re-)creates the unique index on (user_id, session_id).
func (r *DuplicateRepository) EnsureUniqueConstraint(ctx context.Context) error {
	query := `CREATE UNIQUE INDEX IF NOT EXISTS ` + UniqueEnrollmentIndex + ` ON enrollments (user_id, session_id)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure unique enrollment index: %w", err)
	}
	return nil
}
