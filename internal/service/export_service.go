package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/dto"
	"github.com/noah-isme/session-archiver/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration, now time.Time) ([]string, error)
}

// ReportExporter writes operator tool reports as CSV or PDF files.
type ReportExporter struct {
	storage   fileStorage
	retention time.Duration
	logger    *zap.Logger
}

// NewReportExporter constructs a ReportExporter. A zero retention keeps every report.
func NewReportExporter(storage fileStorage, retention time.Duration, logger *zap.Logger) *ReportExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExporter{storage: storage, retention: retention, logger: logger}
}

// DedupeDataset flattens a resolver report into rows.
func DedupeDataset(report dto.DedupeReport) export.Dataset {
	data := export.Dataset{Headers: []string{"user_id", "session_id", "kept_id", "deleted_id", "status", "enrolled_at", "decremented"}}
	for _, a := range report.Actions {
		data.Rows = append(data.Rows, map[string]string{
			"user_id":     a.UserID,
			"session_id":  a.SessionID,
			"kept_id":     a.KeptID,
			"deleted_id":  a.DeletedID,
			"status":      a.Status,
			"enrolled_at": a.EnrolledAt.UTC().Format(time.RFC3339),
			"decremented": strconv.FormatBool(a.Decremented),
		})
	}
	return data
}

// RestoreDataset flattens a restoration report into rows.
func RestoreDataset(report dto.RestoreReport) export.Dataset {
	data := export.Dataset{Headers: []string{"historical_id", "enrollment_id", "user_id", "session_id", "effective_end", "outcome", "error"}}
	for _, a := range report.Actions {
		data.Rows = append(data.Rows, map[string]string{
			"historical_id": a.HistoricalID,
			"enrollment_id": a.EnrollmentID,
			"user_id":       a.UserID,
			"session_id":    a.SessionID,
			"effective_end": a.EffectiveEnd.UTC().Format(time.RFC3339),
			"outcome":       string(a.Outcome),
			"error":         a.Error,
		})
	}
	return data
}

// ReconcileDataset flattens a counter reconciliation into rows.
func ReconcileDataset(report dto.ReconcileReport) export.Dataset {
	data := export.Dataset{Headers: []string{"session_id", "stored", "actual"}}
	for _, d := range report.Drifts {
		data.Rows = append(data.Rows, map[string]string{
			"session_id": d.SessionID,
			"stored":     strconv.Itoa(d.Stored),
			"actual":     strconv.Itoa(d.Actual),
		})
	}
	return data
}

// Write renders data to filename, choosing the format from its extension, and prunes expired
// reports. It returns the path written.
func (e *ReportExporter) Write(filename, title string, data export.Dataset, now time.Time) (string, error) {
	if e.retention > 0 {
		removed, err := e.storage.CleanupOlderThan(e.retention, now)
		if err != nil {
			e.logger.Sugar().Warnw("report cleanup failed", "error", err)
		} else if len(removed) > 0 {
			e.logger.Sugar().Infow("expired reports removed", "count", len(removed))
		}
	}

	payload, err := export.Render(export.FormatFromPath(filename), data, title)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", filename, err)
	}
	path, err := e.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}
	e.logger.Sugar().Infow("report written", "path", path, "rows", len(data.Rows))
	return path, nil
}
