package service

import (
	"time"

	"github.com/noah-isme/session-archiver/internal/models"
)

// Evaluator decides whether a session's scheduled window has elapsed. Session dates and times
// are wall-clock values in Location.
type Evaluator struct {
	Location *time.Location
}

// NewEvaluator builds an Evaluator for loc, defaulting to UTC.
func NewEvaluator(loc *time.Location) Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return Evaluator{Location: loc}
}

// EffectiveEnd combines end_date (or session_date when there is none) with end_time.
// A missing end_time means the session runs until the last second of that day.
func (e Evaluator) EffectiveEnd(s models.Schedule) time.Time {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	day := s.SessionDate
	if s.EndDate != nil {
		day = *s.EndDate
	}
	endTime := s.EndTime
	if !endTime.Valid {
		endTime = models.NewTimeOfDay(23, 59, 59)
	}
	return endTime.On(day, loc)
}

// Ended reports whether the effective end of s is strictly before now.
func (e Evaluator) Ended(s models.Schedule, now time.Time) bool {
	return e.EffectiveEnd(s).Before(now)
}

// IsEnded reports whether the session must transition to completed at now.
func (e Evaluator) IsEnded(session models.Session, now time.Time) bool {
	return e.Ended(session.Schedule(), now)
}

// LastCandidateDay is the latest calendar date a session can end on and still be ended at now.
func (e Evaluator) LastCandidateDay(now time.Time) time.Time {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
