package models

import "time"

// SessionStatus is the lifecycle state of a class session.
type SessionStatus string

// Possible session statuses.
const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is one scheduled occurrence of a class in the live table.
type Session struct {
	ID            string        `db:"id" json:"id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	SessionDate   time.Time     `db:"session_date" json:"session_date"`
	EndDate       *time.Time    `db:"end_date" json:"end_date,omitempty"`
	StartTime     TimeOfDay     `db:"start_time" json:"start_time"`
	EndTime       TimeOfDay     `db:"end_time" json:"end_time"`
	Capacity      int           `db:"capacity" json:"capacity"`
	EnrolledCount int           `db:"enrolled_count" json:"enrolled_count"`
	InstructorID  *string       `db:"instructor_id" json:"instructor_id,omitempty"`
	Status        SessionStatus `db:"status" json:"status"`
	DeletedAt     *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
	ArchivedInto  *string       `db:"archived_into" json:"archived_into,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Live reports whether the session has not been soft-deleted.
func (s Session) Live() bool {
	return s.DeletedAt == nil
}

// Schedule extracts the fields that decide when the session ends.
func (s Session) Schedule() Schedule {
	return Schedule{SessionDate: s.SessionDate, EndDate: s.EndDate, EndTime: s.EndTime}
}

// Schedule is the date/time window shared by live and historical sessions.
type Schedule struct {
	SessionDate time.Time
	EndDate     *time.Time
	EndTime     TimeOfDay
}

// HistoricalSession is the immutable copy of a session taken at archival time.
type HistoricalSession struct {
	ID                string        `db:"id" json:"id"`
	OriginalSessionID string        `db:"original_session_id" json:"original_session_id"`
	ClassID           string        `db:"class_id" json:"class_id"`
	SessionDate       time.Time     `db:"session_date" json:"session_date"`
	EndDate           *time.Time    `db:"end_date" json:"end_date,omitempty"`
	StartTime         TimeOfDay     `db:"start_time" json:"start_time"`
	EndTime           TimeOfDay     `db:"end_time" json:"end_time"`
	Capacity          int           `db:"capacity" json:"capacity"`
	EnrolledCount     int           `db:"enrolled_count" json:"enrolled_count"`
	InstructorID      *string       `db:"instructor_id" json:"instructor_id,omitempty"`
	Status            SessionStatus `db:"status" json:"status"`
	ArchivedAt        time.Time     `db:"archived_at" json:"archived_at"`
	ArchivedReason    string        `db:"archived_reason" json:"archived_reason"`
}

// Schedule extracts the fields that decide when the session ended.
func (h HistoricalSession) Schedule() Schedule {
	return Schedule{SessionDate: h.SessionDate, EndDate: h.EndDate, EndTime: h.EndTime}
}

// NewHistoricalSession snapshots s for archival.
func NewHistoricalSession(id string, s Session, archivedAt time.Time, reason string) HistoricalSession {
	return HistoricalSession{
		ID:                id,
		OriginalSessionID: s.ID,
		ClassID:           s.ClassID,
		SessionDate:       s.SessionDate,
		EndDate:           s.EndDate,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		Capacity:          s.Capacity,
		EnrolledCount:     s.EnrolledCount,
		InstructorID:      s.InstructorID,
		Status:            SessionStatusCompleted,
		ArchivedAt:        archivedAt,
		ArchivedReason:    reason,
	}
}
