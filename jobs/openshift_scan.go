package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rollcall-hq/rollcall/internal/observability"
	"github.com/rollcall-hq/rollcall/internal/shift"
)

// OpenShiftLister is the slice of shift persistence the scan needs.
type OpenShiftLister interface {
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]shift.Record, error)
}

// OpenShiftScanner flags shifts that have stayed open past the configured
// threshold, which usually means a forgotten clock-out.
type OpenShiftScanner struct {
	store   OpenShiftLister
	metrics *observability.Metrics
	logger  *slog.Logger
	maxAge  time.Duration
}

// NewOpenShiftScanner constructs a scanner.
func NewOpenShiftScanner(store OpenShiftLister, metrics *observability.Metrics, logger *slog.Logger, maxAge time.Duration) *OpenShiftScanner {
	return &OpenShiftScanner{store: store, metrics: metrics, logger: logger, maxAge: maxAge}
}

// HandleTask processes TaskTypeOpenShiftScan tasks.
func (s *OpenShiftScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload OpenShiftScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	maxAge := s.maxAge
	if payload.MaxAgeMinutes > 0 {
		maxAge = time.Duration(payload.MaxAgeMinutes) * time.Minute
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	records, err := s.store.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, rec := range records {
		s.metrics.ObserveOverdueShift()
		s.logger.Warn("shift open past threshold",
			slog.String("user_id", rec.UserID),
			slog.String("org_id", rec.OrgID),
			slog.Time("clock_in_at", rec.ClockInAt),
			slog.Duration("max_age", maxAge))
	}
	s.logger.Info("open shift scan complete",
		slog.Int("flagged", len(records)),
		slog.Time("cutoff", cutoff))
	return nil
}
