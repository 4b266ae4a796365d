package dto

import "time"

// RunReport summarises one pass of the lifecycle job.
type RunReport struct {
	StartedAt           time.Time     `json:"started_at"`
	Now                 time.Time     `json:"now"`
	Duration            time.Duration `json:"duration"`
	Scanned             int           `json:"scanned"`
	Eligible            int           `json:"eligible"`
	ArchivedSessions    int           `json:"archived_sessions"`
	ArchivedEnrollments int           `json:"archived_enrollments"`
	Skipped             int           `json:"skipped"`
	Failed              []string      `json:"failed,omitempty"`
}

// HasFailures reports whether any session transaction was rolled back.
func (r RunReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// ArchiveResult describes one committed session archival.
type ArchiveResult struct {
	SessionID           string `json:"session_id"`
	HistoricalSessionID string `json:"historical_session_id,omitempty"`
	ArchivedEnrollments int    `json:"archived_enrollments"`
	ReusedHistorical    bool   `json:"reused_historical"`
}

// DedupeAction is one row removed (or, in dry-run, selected for removal) by the resolver.
type DedupeAction struct {
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	KeptID      string    `json:"kept_id"`
	DeletedID   string    `json:"deleted_id"`
	Status      string    `json:"status"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	Decremented bool      `json:"decremented"`
}

// DedupeReport summarises a resolver run.
type DedupeReport struct {
	DryRun            bool           `json:"dry_run"`
	Groups            int            `json:"groups"`
	Deleted           int            `json:"deleted"`
	Decrements        int            `json:"decrements"`
	ConstraintEnsured bool           `json:"constraint_ensured"`
	Actions           []DedupeAction `json:"actions"`
}

// RestoreOutcome labels what happened to one candidate.
type RestoreOutcome string

// Possible restore outcomes.
const (
	RestoreOutcomeRestored       RestoreOutcome = "restored"
	RestoreOutcomeWouldRestore   RestoreOutcome = "would_restore"
	RestoreOutcomeAlreadyLive    RestoreOutcome = "already_live"
	RestoreOutcomeOrphaned       RestoreOutcome = "orphaned"
	RestoreOutcomeFailed         RestoreOutcome = "failed"
	RestoreOutcomeSessionRevived RestoreOutcome = "restored_session_revived"
)

// RestoreAction is the per-row result of the restoration tool.
type RestoreAction struct {
	HistoricalID string         `json:"historical_id"`
	EnrollmentID string         `json:"enrollment_id"`
	UserID       string         `json:"user_id"`
	SessionID    string         `json:"session_id"`
	EffectiveEnd time.Time      `json:"effective_end"`
	Outcome      RestoreOutcome `json:"outcome"`
	Error        string         `json:"error,omitempty"`
}

// RestoreReport summarises a restoration run.
type RestoreReport struct {
	DryRun          bool            `json:"dry_run"`
	Scanned         int             `json:"scanned"`
	Matched         int             `json:"matched"`
	Restored        int             `json:"restored"`
	SessionsRevived int             `json:"sessions_revived"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	Actions         []RestoreAction `json:"actions"`
}

// ReconcileReport summarises a counter reconciliation.
type ReconcileReport struct {
	DryRun  bool            `json:"dry_run"`
	Drifted int             `json:"drifted"`
	Fixed   int             `json:"fixed"`
	Drifts  []CounterChange `json:"drifts"`
}

// CounterChange is one session whose enrolled_count was (or would be) corrected.
type CounterChange struct {
	SessionID string `json:"session_id"`
	Stored    int    `json:"stored"`
	Actual    int    `json:"actual"`
}
