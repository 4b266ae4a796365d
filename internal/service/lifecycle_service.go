package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	"github.com/noah-isme/session-archiver/pkg/clock"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

type sessionArchiver interface {
	ListLiveEndingBy(ctx context.Context, lastDay time.Time, afterID string, limit int) ([]models.Session, error)
	ArchiveSession(ctx context.Context, sessionID string, now time.Time, reason string) (dto.ArchiveResult, error)
}

type runLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// LifecycleConfig tunes one lifecycle run.
type LifecycleConfig struct {
	BatchSize int           `validate:"gte=1,lte=10000"`
	Reason    string        `validate:"required,max=255"`
	LockKey   string        `validate:"required_with=LockTTL"`
	LockTTL   time.Duration `validate:"gte=0"`
}

// LifecycleService archives sessions whose scheduled window has elapsed.
type LifecycleService struct {
	repo      sessionArchiver
	locker    runLocker
	clock     clock.Clock
	evaluator Evaluator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LifecycleConfig
}

// NewLifecycleService constructs LifecycleService. locker and metrics may be nil.
func NewLifecycleService(repo sessionArchiver, locker runLocker, clk clock.Clock, evaluator Evaluator, metrics *MetricsService, cfg LifecycleConfig, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if clk == nil {
		clk = clock.System{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		repo:      repo,
		locker:    locker,
		clock:     clk,
		evaluator: evaluator,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// RunOnce performs a single pass over live sessions. Per-session failures are logged and
// reported in the returned RunReport; only failures that prevent scanning abort the run.
func (s *LifecycleService) RunOnce(ctx context.Context) (report dto.RunReport, err error) {
	report.StartedAt = time.Now().UTC()
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		s.metrics.ObserveRun(report, err)
	}()

	if err = s.validator.Struct(s.cfg); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid lifecycle configuration")
		return report, err
	}

	if s.locker != nil && s.cfg.LockKey != "" {
		release, lerr := s.locker.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		if lerr != nil {
			err = lerr
			return report, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.Sugar().Warnw("failed to release lifecycle lock", "key", s.cfg.LockKey, "error", rerr)
			}
		}()
	}

	now := s.clock.Now()
	report.Now = now
	lastDay := s.evaluator.LastCandidateDay(now)

	afterID := ""
	for {
		batch, lerr := s.repo.ListLiveEndingBy(ctx, lastDay, afterID, s.cfg.BatchSize)
		if lerr != nil {
			err = appErrors.Wrap(lerr, appErrors.ErrStorage.Code, "failed to list live sessions")
			return report, err
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		for _, session := range batch {
			if cerr := ctx.Err(); cerr != nil {
				err = cerr
				return report, err
			}
			report.Scanned++
			if !s.evaluator.IsEnded(session, now) {
				continue
			}
			report.Eligible++
			s.archive(ctx, session, now, &report)
		}

		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	s.logger.Sugar().Infow("lifecycle run finished",
		"now", now,
		"scanned", report.Scanned,
		"eligible", report.Eligible,
		"archived_sessions", report.ArchivedSessions,
		"archived_enrollments", report.ArchivedEnrollments,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
	return report, nil
}

func (s *LifecycleService) archive(ctx context.Context, session models.Session, now time.Time, report *dto.RunReport) {
	result, err := s.repo.ArchiveSession(ctx, session.ID, now, s.cfg.Reason)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionNotLive) {
			report.Skipped++
			s.logger.Sugar().Debugw("session already archived", "session_id", session.ID)
			return
		}
		report.Failed = append(report.Failed, session.ID)
		s.logger.Sugar().Errorw("session archival rolled back", "session_id", session.ID, "error", err)
		return
	}
	report.ArchivedSessions++
	report.ArchivedEnrollments += result.ArchivedEnrollments
	s.logger.Sugar().Infow("session archived",
		"session_id", session.ID,
		"historical_session_id", result.HistoricalSessionID,
		"archived_enrollments", result.ArchivedEnrollments,
		"reused_historical", result.ReusedHistorical,
	)
}
