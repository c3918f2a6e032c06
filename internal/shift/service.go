package shift

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/observability"
	"github.com/rollcall-hq/rollcall/internal/perimeter"
)

// Store abstracts shift persistence. Implementations must enforce the
// single-open-shift invariant atomically, not with read-then-write.
type Store interface {
	CreateOpen(ctx context.Context, rec Record) (*Record, error)
	CloseOpen(ctx context.Context, userID string, params CloseParams) (*Record, error)
	FindOpen(ctx context.Context, userID string) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListByOrg(ctx context.Context, orgID string) ([]Record, error)
}

// MembershipChecker evaluates geofence membership for an organization.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, orgID string, point geo.Coordinate) (perimeter.Evaluation, error)
}

// ClockOutResult pairs the closed record with the exit warning. Leaving the
// perimeter never blocks a clock-out; it is reported, not enforced.
type ClockOutResult struct {
	Record           *Record `json:"shift"`
	OutsidePerimeter bool    `json:"outsidePerimeter"`
}

// Service wraps the shift state machine.
type Service struct {
	store      Store
	perimeters MembershipChecker
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, perimeters MembershipChecker, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		perimeters: perimeters,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// ClockIn opens a shift for the caller. The perimeter check happens before
// any record is created; an out-of-perimeter caller is rejected with
// ErrOutsidePerimeter, distinct from ErrAlreadyOnDuty.
func (s *Service) ClockIn(ctx context.Context, ident identity.Identity, lat, lng float64, note string) (*Record, error) {
	point, err := geo.New(lat, lng)
	if err != nil {
		s.metrics.ObserveClockEvent("clock_in", "invalid_location")
		return nil, err
	}

	eval, err := s.perimeters.CheckMembership(ctx, ident.OrganizationID, point)
	if err != nil {
		return nil, err
	}
	if !eval.Inside {
		s.metrics.ObserveClockEvent("clock_in", "outside_perimeter")
		return nil, ErrOutsidePerimeter
	}

	rec := Record{
		ID:              uuid.New(),
		UserID:          ident.UserID,
		OrgID:           ident.OrganizationID,
		ClockInAt:       s.now().UTC(),
		ClockInLocation: point,
		Note:            note,
		DisplayName:     ident.DisplayName,
		AvatarURL:       ident.AvatarURL,
	}
	created, err := s.store.CreateOpen(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrAlreadyOnDuty) {
			s.metrics.ObserveClockEvent("clock_in", "already_on_duty")
		}
		return nil, err
	}
	s.metrics.ObserveClockEvent("clock_in", "ok")
	return created, nil
}

// ClockOut closes the caller's open shift. The exit location is optional;
// when provided and outside the perimeter the result carries a warning but
// the clock-out still succeeds.
func (s *Service) ClockOut(ctx context.Context, ident identity.Identity, lat, lng *float64, note string) (*ClockOutResult, error) {
	var location *geo.Coordinate
	if lat != nil && lng != nil {
		point, err := geo.New(*lat, *lng)
		if err != nil {
			return nil, err
		}
		location = &point
	}

	rec, err := s.store.CloseOpen(ctx, ident.UserID, CloseParams{
		At:       s.now().UTC(),
		Location: location,
		Note:     note,
	})
	if err != nil {
		if errors.Is(err, ErrNoActiveShift) {
			s.metrics.ObserveClockEvent("clock_out", "no_active_shift")
		}
		return nil, err
	}
	s.metrics.ObserveClockEvent("clock_out", "ok")

	result := &ClockOutResult{Record: rec}
	if location != nil {
		eval, err := s.perimeters.CheckMembership(ctx, ident.OrganizationID, *location)
		switch {
		case err == nil:
			result.OutsidePerimeter = !eval.Inside
		case errors.Is(err, perimeter.ErrNotConfigured):
			// No perimeter to warn against.
		default:
			s.logger.Warn("exit membership check failed",
				slog.String("user_id", ident.UserID),
				slog.Any("error", err))
		}
	}
	return result, nil
}

// CurrentState derives the caller's duty state from the store on every
// call; elapsed time never drifts from persisted truth.
func (s *Service) CurrentState(ctx context.Context, userID string) (*State, error) {
	rec, err := s.store.FindOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveShift) {
			return &State{OnDuty: false}, nil
		}
		return nil, err
	}
	since := rec.ClockInAt
	elapsed := int64(s.now().UTC().Sub(since).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	return &State{OnDuty: true, Since: &since, ElapsedSeconds: elapsed}, nil
}

// History returns the caller's shifts, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Record, error) {
	return s.store.ListByUser(ctx, userID)
}

// StaffOverview returns every shift record in the caller's organization
// for the manager attendance view.
func (s *Service) StaffOverview(ctx context.Context, orgID string) ([]Record, error) {
	return s.store.ListByOrg(ctx, orgID)
}
