package models

import "time"

// EnrollmentStatus represents the review state of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
	EnrollmentStatusRejected EnrollmentStatus = "rejected"
)

// Counted reports whether the status contributes to a session's enrolled_count.
func (s EnrollmentStatus) Counted() bool {
	return s == EnrollmentStatusPending || s == EnrollmentStatusApproved
}

// Rank orders statuses when collapsing duplicates; higher wins.
func (s EnrollmentStatus) Rank() int {
	switch s {
	case EnrollmentStatusApproved:
		return 3
	case EnrollmentStatusPending:
		return 2
	case EnrollmentStatusRejected:
		return 1
	default:
		return 0
	}
}

// CountedEnrollmentStatuses lists the statuses counted in enrolled_count.
var CountedEnrollmentStatuses = []EnrollmentStatus{EnrollmentStatusPending, EnrollmentStatusApproved}

// Enrollment captures a user's registration for a session in the live table.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	ClassID          string           `db:"class_id" json:"class_id"`
	SessionID        string           `db:"session_id" json:"session_id"`
	PaymentStatus    string           `db:"payment_status" json:"payment_status"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	ReviewedBy       *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote       *string          `db:"review_note" json:"review_note,omitempty"`
}

// HistoricalEnrollment is the immutable copy of an enrollment owned by a historical session.
type HistoricalEnrollment struct {
	ID                   string           `db:"id" json:"id"`
	OriginalEnrollmentID *string          `db:"original_enrollment_id" json:"original_enrollment_id,omitempty"`
	HistoricalSessionID  string           `db:"historical_session_id" json:"historical_session_id"`
	UserID               string           `db:"user_id" json:"user_id"`
	ClassID              string           `db:"class_id" json:"class_id"`
	SessionID            string           `db:"session_id" json:"session_id"`
	PaymentStatus        string           `db:"payment_status" json:"payment_status"`
	EnrollmentStatus     EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	EnrolledAt           time.Time        `db:"enrolled_at" json:"enrolled_at"`
	ReviewedBy           *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote           *string          `db:"review_note" json:"review_note,omitempty"`
	ArchivedAt           time.Time        `db:"archived_at" json:"archived_at"`
	ArchivedReason       string           `db:"archived_reason" json:"archived_reason"`
}

// NewHistoricalEnrollment snapshots e under the historical session historicalSessionID.
func NewHistoricalEnrollment(id string, e Enrollment, historicalSessionID string, archivedAt time.Time, reason string) HistoricalEnrollment {
	originalID := e.ID
	return HistoricalEnrollment{
		ID:                   id,
		OriginalEnrollmentID: &originalID,
		HistoricalSessionID:  historicalSessionID,
		UserID:               e.UserID,
		ClassID:              e.ClassID,
		SessionID:            e.SessionID,
		PaymentStatus:        e.PaymentStatus,
		EnrollmentStatus:     e.EnrollmentStatus,
		EnrolledAt:           e.EnrolledAt,
		ReviewedBy:           e.ReviewedBy,
		ReviewedAt:           e.ReviewedAt,
		ReviewNote:           e.ReviewNote,
		ArchivedAt:           archivedAt,
		ArchivedReason:       reason,
	}
}

// Live rebuilds the live enrollment, using id when the original id is unknown.
func (h HistoricalEnrollment) Live(id string) Enrollment {
	if h.OriginalEnrollmentID != nil && *h.OriginalEnrollmentID != "" {
		id = *h.OriginalEnrollmentID
	}
	return Enrollment{
		ID:               id,
		UserID:           h.UserID,
		ClassID:          h.ClassID,
		SessionID:        h.SessionID,
		PaymentStatus:    h.PaymentStatus,
		EnrollmentStatus: h.EnrollmentStatus,
		EnrolledAt:       h.EnrolledAt,
		ReviewedBy:       h.ReviewedBy,
		ReviewedAt:       h.ReviewedAt,
		ReviewNote:       h.ReviewNote,
	}
}
