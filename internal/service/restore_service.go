package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	"github.com/noah-isme/session-archiver/internal/repository"
	"github.com/noah-isme/session-archiver/pkg/clock"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

type restoreStore interface {
	ListRestorable(ctx context.Context) ([]models.HistoricalEnrollment, error)
	FindSessions(ctx context.Context, ids []string) (map[string]models.Session, error)
	FindHistoricalSessions(ctx context.Context, ids []string) (map[string]models.HistoricalSession, error)
	LiveExists(ctx context.Context, h models.HistoricalEnrollment) (bool, error)
	Restore(ctx context.Context, params repository.RestoreParams) (repository.RestoreResult, error)
}

// RestoreRequest configures a restoration run.
type RestoreRequest struct {
	DryRun bool
	// Limit caps how many matches are processed; zero means no cap.
	Limit int `validate:"gte=0"`
}

// RestoreService moves enrollments archived before their session ended back to the live tables.
type RestoreService struct {
	store     restoreStore
	clock     clock.Clock
	evaluator Evaluator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	newID     func() string
}

// NewRestoreService constructs RestoreService.
func NewRestoreService(store restoreStore, clk clock.Clock, evaluator Evaluator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RestoreService {
	if clk == nil {
		clk = clock.System{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestoreService{
		store:     store,
		clock:     clk,
		evaluator: evaluator,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// FindCandidates pairs each restorable historical enrollment with its session data.
func (s *RestoreService) FindCandidates(ctx context.Context) ([]models.RestoreCandidate, error) {
	rows, err := s.store.ListRestorable(ctx)
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]string, 0, len(rows))
	snapshotIDs := make([]string, 0, len(rows))
	seenSession := make(map[string]bool)
	seenSnapshot := make(map[string]bool)
	for _, row := range rows {
		if !seenSession[row.SessionID] {
			seenSession[row.SessionID] = true
			sessionIDs = append(sessionIDs, row.SessionID)
		}
		if !seenSnapshot[row.HistoricalSessionID] {
			seenSnapshot[row.HistoricalSessionID] = true
			snapshotIDs = append(snapshotIDs, row.HistoricalSessionID)
		}
	}

	sessions, err := s.store.FindSessions(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.store.FindHistoricalSessions(ctx, snapshotIDs)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.RestoreCandidate, 0, len(rows))
	for _, row := range rows {
		candidate := models.RestoreCandidate{Enrollment: row}
		if session, ok := sessions[row.SessionID]; ok {
			candidate.Session = &session
		}
		if snapshot, ok := snapshots[row.HistoricalSessionID]; ok {
			candidate.Snapshot = &snapshot
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Restore scans historical enrollments and restores those whose session has not ended yet.
// In dry-run mode only detection and the already-live check run.
func (s *RestoreService) Restore(ctx context.Context, req RestoreRequest) (dto.RestoreReport, error) {
	report := dto.RestoreReport{DryRun: req.DryRun}
	if err := s.validator.Struct(req); err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid restore request")
	}

	candidates, err := s.FindCandidates(ctx)
	if err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to load historical enrollments")
	}
	report.Scanned = len(candidates)

	now := s.clock.Now()
	for _, candidate := range candidates {
		schedule, ok := candidate.Schedule()
		if !ok || s.evaluator.Ended(schedule, now) {
			continue
		}
		if req.Limit > 0 && report.Matched >= req.Limit {
			break
		}
		report.Matched++
		action := s.restoreOne(ctx, candidate, s.evaluator.EffectiveEnd(schedule), now, req.DryRun)
		switch action.Outcome {
		case dto.RestoreOutcomeRestored, dto.RestoreOutcomeSessionRevived:
			report.Restored++
			if action.Outcome == dto.RestoreOutcomeSessionRevived {
				report.SessionsRevived++
			}
		case dto.RestoreOutcomeFailed:
			report.Failed++
		case dto.RestoreOutcomeWouldRestore:
		default:
			report.Skipped++
		}
		report.Actions = append(report.Actions, action)
	}

	s.metrics.ObserveRestore(report)
	s.logger.Sugar().Infow("restore finished",
		"dry_run", report.DryRun,
		"scanned", report.Scanned,
		"matched", report.Matched,
		"restored", report.Restored,
		"sessions_revived", report.SessionsRevived,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *RestoreService) restoreOne(ctx context.Context, candidate models.RestoreCandidate, end, now time.Time, dryRun bool) dto.RestoreAction {
	h := candidate.Enrollment
	action := dto.RestoreAction{
		HistoricalID: h.ID,
		UserID:       h.UserID,
		SessionID:    h.SessionID,
		EffectiveEnd: end,
	}
	if h.OriginalEnrollmentID != nil {
		action.EnrollmentID = *h.OriginalEnrollmentID
	}

	if candidate.Session == nil {
		action.Outcome = dto.RestoreOutcomeOrphaned
		s.logger.Sugar().Warnw("historical enrollment has no session row", "historical_id", h.ID, "session_id", h.SessionID)
		return action
	}

	exists, err := s.store.LiveExists(ctx, h)
	if err != nil {
		action.Outcome = dto.RestoreOutcomeFailed
		action.Error = err.Error()
		s.logger.Sugar().Errorw("live enrollment check failed", "historical_id", h.ID, "error", err)
		return action
	}
	if exists {
		action.Outcome = dto.RestoreOutcomeAlreadyLive
		return action
	}
	if dryRun {
		action.Outcome = dto.RestoreOutcomeWouldRestore
		return action
	}

	result, err := s.store.Restore(ctx, repository.RestoreParams{
		Historical: h,
		LiveID:     s.newID(),
		Revive:     !candidate.Session.Live(),
		Now:        now,
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			action.Outcome = dto.RestoreOutcomeOrphaned
			return action
		}
		action.Outcome = dto.RestoreOutcomeFailed
		action.Error = err.Error()
		s.logger.Sugar().Errorw("restore rolled back", "historical_id", h.ID, "session_id", h.SessionID, "error", err)
		return action
	}
	action.EnrollmentID = result.EnrollmentID
	switch {
	case result.AlreadyLive:
		action.Outcome = dto.RestoreOutcomeAlreadyLive
	case result.SessionRevive:
		action.Outcome = dto.RestoreOutcomeSessionRevived
	default:
		action.Outcome = dto.RestoreOutcomeRestored
	}
	s.logger.Sugar().Infow("enrollment restored",
		"historical_id", h.ID,
		"enrollment_id", result.EnrollmentID,
		"session_id", h.SessionID,
		"session_revived", result.SessionRevive,
	)
	return action
}
