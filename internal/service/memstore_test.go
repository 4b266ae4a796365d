package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	"github.com/noah-isme/session-archiver/internal/repository"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

// memStore mirrors the repository semantics in memory so service behaviour can be checked
// end to end without a database.
type memStore struct {
	sessions     map[string]*models.Session
	enrollments  map[string]models.Enrollment
	hSessions    map[string]models.HistoricalSession
	hEnrollments map[string]models.HistoricalEnrollment

	archiveErr map[string]error
	restoreErr map[string]error
	listErr    error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     map[string]*models.Session{},
		enrollments:  map[string]models.Enrollment{},
		hSessions:    map[string]models.HistoricalSession{},
		hEnrollments: map[string]models.HistoricalEnrollment{},
		archiveErr:   map[string]error{},
		restoreErr:   map[string]error{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) addSession(s models.Session) {
	if s.Status == "" {
		s.Status = models.SessionStatusScheduled
	}
	m.sessions[s.ID] = &s
}

func (m *memStore) addEnrollment(e models.Enrollment) {
	m.enrollments[e.ID] = e
	m.recount(e.SessionID)
}

func (m *memStore) liveCount(sessionID string) int {
	n := 0
	for _, e := range m.enrollments {
		if e.SessionID == sessionID && e.EnrollmentStatus.Counted() {
			n++
		}
	}
	return n
}

func (m *memStore) recount(sessionID string) {
	if s, ok := m.sessions[sessionID]; ok {
		s.EnrolledCount = m.liveCount(sessionID)
	}
}

func (m *memStore) historicalByOriginalSession(id string) (models.HistoricalSession, bool) {
	for _, h := range m.hSessions {
		if h.OriginalSessionID == id {
			return h, true
		}
	}
	return models.HistoricalSession{}, false
}

func (m *memStore) historicalByOriginalEnrollment(id string) bool {
	for _, h := range m.hEnrollments {
		if h.OriginalEnrollmentID != nil && *h.OriginalEnrollmentID == id {
			return true
		}
	}
	return false
}

func (m *memStore) ListLiveEndingBy(_ context.Context, lastDay time.Time, afterID string, limit int) ([]models.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cutoff := lastDay.Format("2006-01-02")
	var out []models.Session
	for _, id := range ids {
		s := m.sessions[id]
		if s.DeletedAt != nil || id <= afterID {
			continue
		}
		day := s.SessionDate
		if s.EndDate != nil {
			day = *s.EndDate
		}
		if day.Format("2006-01-02") > cutoff {
			continue
		}
		out = append(out, *s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ArchiveSession(_ context.Context, sessionID string, now time.Time, reason string) (dto.ArchiveResult, error) {
	result := dto.ArchiveResult{SessionID: sessionID}
	if err := m.archiveErr[sessionID]; err != nil {
		return result, err
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.DeletedAt != nil {
		return result, appErrors.Clone(appErrors.ErrSessionNotLive, "not live")
	}
	session := *s
	session.Status = models.SessionStatusCompleted

	var live []models.Enrollment
	for _, e := range m.enrollments {
		if e.SessionID == sessionID {
			live = append(live, e)
		}
	}

	var archivedInto *string
	if len(live) > 0 {
		h, found := m.historicalByOriginalSession(sessionID)
		if !found {
			h = models.NewHistoricalSession(m.nextID("hs"), session, now, reason)
			m.hSessions[h.ID] = h
		}
		result.HistoricalSessionID = h.ID
		result.ReusedHistorical = found
		id := h.ID
		archivedInto = &id
		for _, e := range live {
			if m.historicalByOriginalEnrollment(e.ID) {
				continue
			}
			he := models.NewHistoricalEnrollment(m.nextID("he"), e, h.ID, now, reason)
			m.hEnrollments[he.ID] = he
			result.ArchivedEnrollments++
		}
		for _, e := range live {
			delete(m.enrollments, e.ID)
		}
	}

	s.Status = models.SessionStatusCompleted
	s.EnrolledCount = m.liveCount(sessionID)
	deletedAt := now
	s.DeletedAt = &deletedAt
	s.ArchivedInto = archivedInto
	return result, nil
}

func (m *memStore) ListDuplicateGroups(context.Context) ([]models.DuplicateGroup, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	byKey := map[[2]string][]models.Enrollment{}
	for _, e := range m.enrollments {
		key := [2]string{e.UserID, e.SessionID}
		byKey[key] = append(byKey[key], e)
	}
	var groups []models.DuplicateGroup
	for key, rows := range byKey {
		if len(rows) < 2 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		groups = append(groups, models.DuplicateGroup{UserID: key[0], SessionID: key[1], Enrollments: rows})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].UserID != groups[j].UserID {
			return groups[i].UserID < groups[j].UserID
		}
		return groups[i].SessionID < groups[j].SessionID
	})
	return groups, nil
}

func (m *memStore) DeleteDuplicates(_ context.Context, doomed []models.Enrollment, _ time.Time) ([]string, error) {
	var decremented []string
	for _, e := range doomed {
		if _, ok := m.enrollments[e.ID]; !ok {
			continue
		}
		delete(m.enrollments, e.ID)
		if !e.EnrollmentStatus.Counted() {
			continue
		}
		if s, ok := m.sessions[e.SessionID]; ok && s.EnrolledCount > 0 {
			s.EnrolledCount--
		}
		decremented = append(decremented, e.ID)
	}
	return decremented, nil
}

func (m *memStore) EnsureUniqueConstraint(context.Context) error {
	seen := map[[2]string]bool{}
	for _, e := range m.enrollments {
		key := [2]string{e.UserID, e.SessionID}
		if seen[key] {
			return fmt.Errorf("duplicate key %v", key)
		}
		seen[key] = true
	}
	return nil
}

func (m *memStore) ListRestorable(context.Context) ([]models.HistoricalEnrollment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.HistoricalEnrollment
	for _, h := range m.hEnrollments {
		if h.EnrollmentStatus.Counted() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindSessions(_ context.Context, ids []string) (map[string]models.Session, error) {
	out := map[string]models.Session{}
	for _, id := range ids {
		if s, ok := m.sessions[id]; ok {
			out[id] = *s
		}
	}
	return out, nil
}

func (m *memStore) FindHistoricalSessions(_ context.Context, ids []string) (map[string]models.HistoricalSession, error) {
	out := map[string]models.HistoricalSession{}
	for _, id := range ids {
		if h, ok := m.hSessions[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (m *memStore) LiveExists(_ context.Context, h models.HistoricalEnrollment) (bool, error) {
	for _, e := range m.enrollments {
		if h.OriginalEnrollmentID != nil && e.ID == *h.OriginalEnrollmentID {
			return true, nil
		}
		if e.UserID == h.UserID && e.SessionID == h.SessionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Restore(ctx context.Context, params repository.RestoreParams) (repository.RestoreResult, error) {
	h := params.Historical
	live := h.Live(params.LiveID)
	result := repository.RestoreResult{EnrollmentID: live.ID}
	if err := m.restoreErr[h.ID]; err != nil {
		return result, err
	}
	s, ok := m.sessions[h.SessionID]
	if !ok {
		return result, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if exists, _ := m.LiveExists(ctx, h); exists {
		result.AlreadyLive = true
		return result, nil
	}
	m.enrollments[live.ID] = live
	m.recount(h.SessionID)
	if params.Revive && s.DeletedAt != nil {
		s.DeletedAt = nil
		s.ArchivedInto = nil
		s.Status = models.SessionStatusScheduled
		result.SessionRevive = true
	}
	delete(m.hEnrollments, h.ID)
	if s.DeletedAt == nil {
		remaining := false
		for _, other := range m.hEnrollments {
			if other.HistoricalSessionID == h.HistoricalSessionID {
				remaining = true
				break
			}
		}
		if !remaining {
			delete(m.hSessions, h.HistoricalSessionID)
		}
	}
	result.Restored = true
	return result, nil
}

func (m *memStore) ListDrift(context.Context) ([]models.CounterDrift, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var drifts []models.CounterDrift
	for id, s := range m.sessions {
		if s.DeletedAt != nil {
			continue
		}
		if actual := m.liveCount(id); actual != s.EnrolledCount {
			drifts = append(drifts, models.CounterDrift{SessionID: id, Stored: s.EnrolledCount, Actual: actual})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].SessionID < drifts[j].SessionID })
	return drifts, nil
}

func (m *memStore) Recount(_ context.Context, sessionID string, _ time.Time) error {
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	m.recount(sessionID)
	return nil
}

// countersConsistent reports the first live session whose counter disagrees with its rows.
func (m *memStore) countersConsistent() (string, bool) {
	for id, s := range m.sessions {
		if s.DeletedAt == nil && s.EnrolledCount != m.liveCount(id) {
			return id, false
		}
	}
	return "", true
}
