package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	"github.com/noah-isme/session-archiver/pkg/clock"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

type counterStore interface {
	ListDrift(ctx context.Context) ([]models.CounterDrift, error)
	Recount(ctx context.Context, sessionID string, now time.Time) error
}

// CounterService reconciles enrolled_count on live sessions.
type CounterService struct {
	store   counterStore
	clock   clock.Clock
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCounterService constructs CounterService.
func NewCounterService(store counterStore, clk clock.Clock, metrics *MetricsService, logger *zap.Logger) *CounterService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CounterService{store: store, clock: clk, metrics: metrics, logger: logger}
}

// Reconcile recomputes every drifted counter. Sessions that fail are logged and left for the
// next run; the first such error is returned after all sessions were attempted.
func (s *CounterService) Reconcile(ctx context.Context, dryRun bool) (dto.ReconcileReport, error) {
	report := dto.ReconcileReport{DryRun: dryRun}
	drifts, err := s.store.ListDrift(ctx)
	if err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to list counter drift")
	}
	report.Drifted = len(drifts)

	var firstErr error
	now := s.clock.Now()
	for _, drift := range drifts {
		report.Drifts = append(report.Drifts, dto.CounterChange{SessionID: drift.SessionID, Stored: drift.Stored, Actual: drift.Actual})
		if dryRun {
			continue
		}
		if err := s.store.Recount(ctx, drift.SessionID, now); err != nil {
			s.logger.Sugar().Errorw("recount failed", "session_id", drift.SessionID, "error", err)
			if firstErr == nil {
				firstErr = appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to recount session")
			}
			continue
		}
		report.Fixed++
	}

	s.metrics.ObserveReconcile(report)
	s.logger.Sugar().Infow("counter reconcile finished", "dry_run", dryRun, "drifted", report.Drifted, "fixed", report.Fixed)
	return report, firstErr
}
