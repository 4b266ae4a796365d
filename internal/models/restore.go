package models

// RestoreCandidate pairs a historical enrollment with whatever is known about its session.
type RestoreCandidate struct {
	Enrollment HistoricalEnrollment
	// Session is the row in the sessions table, live or soft-deleted; nil when it no longer exists.
	Session *Session
	// Snapshot is the owning historical session.
	Snapshot *HistoricalSession
}

// Schedule prefers the current session row over the archived snapshot so edits made after
// archival are honoured.
func (c RestoreCandidate) Schedule() (Schedule, bool) {
	if c.Session != nil {
		return c.Session.Schedule(), true
	}
	if c.Snapshot != nil {
		return c.Snapshot.Schedule(), true
	}
	return Schedule{}, false
}

// DuplicateGroup holds the live enrollments sharing one (user, session) pair.
type DuplicateGroup struct {
	UserID      string
	SessionID   string
	Enrollments []Enrollment
}

// CounterDrift records a session whose enrolled_count disagreed with its live enrollments.
type CounterDrift struct {
	SessionID string `db:"session_id"`
	Stored    int    `db:"stored"`
	Actual    int    `db:"actual"`
}
