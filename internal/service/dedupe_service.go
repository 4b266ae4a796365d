package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/internal/models"
	"github.com/noah-isme/session-archiver/pkg/clock"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

type duplicateStore interface {
	ListDuplicateGroups(ctx context.Context) ([]models.DuplicateGroup, error)
	DeleteDuplicates(ctx context.Context, doomed []models.Enrollment, now time.Time) ([]string, error)
	EnsureUniqueConstraint(ctx context.Context) error
}

// DedupeRequest configures a resolver run.
type DedupeRequest struct {
	DryRun bool
	// SessionID limits the run to one session. A scoped run leaves the unique index alone since
	// other sessions may still hold duplicates.
	SessionID string `validate:"omitempty,max=64"`
}

// DedupeService collapses duplicate live enrollments to one canonical row per (user, session).
type DedupeService struct {
	store     duplicateStore
	clock     clock.Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDedupeService constructs DedupeService.
func NewDedupeService(store duplicateStore, clk clock.Clock, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DedupeService {
	if clk == nil {
		clk = clock.System{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupeService{store: store, clock: clk, metrics: metrics, validator: validate, logger: logger}
}

// RankEnrollments orders a duplicate group best first: status rank, then most recent
// enrolled_at, then highest id.
func RankEnrollments(group []models.Enrollment) []models.Enrollment {
	ranked := make([]models.Enrollment, len(group))
	copy(ranked, group)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if ra, rb := a.EnrollmentStatus.Rank(), b.EnrollmentStatus.Rank(); ra != rb {
			return ra > rb
		}
		if !a.EnrolledAt.Equal(b.EnrolledAt) {
			return a.EnrolledAt.After(b.EnrolledAt)
		}
		return a.ID > b.ID
	})
	return ranked
}

// Resolve finds every duplicate group, keeps the best row and deletes the rest, then re-asserts
// the unique constraint. Deleted rows are defects and are never copied to the historical tables.
func (s *DedupeService) Resolve(ctx context.Context, req DedupeRequest) (dto.DedupeReport, error) {
	report := dto.DedupeReport{DryRun: req.DryRun}
	if err := s.validator.Struct(req); err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid dedupe request")
	}

	groups, err := s.store.ListDuplicateGroups(ctx)
	if err != nil {
		return report, appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to list duplicate enrollments")
	}
	if req.SessionID != "" {
		scoped := groups[:0]
		for _, group := range groups {
			if group.SessionID == req.SessionID {
				scoped = append(scoped, group)
			}
		}
		groups = scoped
	}
	report.Groups = len(groups)

	var doomed []models.Enrollment
	for _, group := range groups {
		ranked := RankEnrollments(group.Enrollments)
		keep := ranked[0]
		for _, drop := range ranked[1:] {
			doomed = append(doomed, drop)
			report.Actions = append(report.Actions, dto.DedupeAction{
				UserID:     group.UserID,
				SessionID:  group.SessionID,
				KeptID:     keep.ID,
				DeletedID:  drop.ID,
				Status:     string(drop.EnrollmentStatus),
				EnrolledAt: drop.EnrolledAt,
			})
		}
	}

	if req.DryRun {
		report.Deleted = len(doomed)
		for i := range report.Actions {
			if models.EnrollmentStatus(report.Actions[i].Status).Counted() {
				report.Decrements++
			}
		}
		s.logger.Sugar().Infow("dedupe dry run", "groups", report.Groups, "would_delete", report.Deleted, "would_decrement", report.Decrements)
		return report, nil
	}

	if len(doomed) > 0 {
		decremented, err := s.store.DeleteDuplicates(ctx, doomed, s.clock.Now())
		if err != nil {
			return report, appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to delete duplicate enrollments")
		}
		marked := make(map[string]bool, len(decremented))
		for _, id := range decremented {
			marked[id] = true
		}
		for i := range report.Actions {
			report.Actions[i].Decremented = marked[report.Actions[i].DeletedID]
		}
		report.Deleted = len(doomed)
		report.Decrements = len(decremented)
	}

	if req.SessionID == "" {
		if err := s.store.EnsureUniqueConstraint(ctx); err != nil {
			return report, appErrors.Wrap(err, appErrors.ErrStorage.Code, "failed to ensure unique enrollment constraint")
		}
		report.ConstraintEnsured = true
	}

	s.metrics.ObserveDedupe(report)
	s.logger.Sugar().Infow("dedupe finished", "groups", report.Groups, "deleted", report.Deleted, "decrements", report.Decrements)
	return report, nil
}
