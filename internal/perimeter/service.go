package perimeter

import (
	"context"
	"errors"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/observability"
)

// Store abstracts perimeter persistence.
type Store interface {
	Get(ctx context.Context, orgID string) (*Perimeter, error)
	Upsert(ctx context.Context, orgID string, center geo.Coordinate, radiusMeters float64) (*Perimeter, error)
}

// Service wraps perimeter business rules.
type Service struct {
	store   Store
	cache   *Cache
	metrics *observability.Metrics
}

// NewService constructs a Service. Cache and metrics may be nil.
func NewService(store Store, cache *Cache, metrics *observability.Metrics) *Service {
	return &Service{store: store, cache: cache, metrics: metrics}
}

// Set validates and saves the organization's perimeter. Saving the same
// center and radius twice yields the same persisted state.
func (s *Service) Set(ctx context.Context, orgID string, lat, lng, radiusMeters float64) (*Perimeter, error) {
	center, err := geo.New(lat, lng)
	if err != nil {
		return nil, err
	}
	if radiusMeters < MinRadiusMeters {
		return nil, ErrInvalidRadius
	}
	p, err := s.store.Upsert(ctx, orgID, center, radiusMeters)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, orgID)
	return p, nil
}

// Get returns the organization's perimeter, served from cache when warm.
func (s *Service) Get(ctx context.Context, orgID string) (*Perimeter, error) {
	return s.cache.Fetch(ctx, orgID, func(ctx context.Context) (*Perimeter, error) {
		return s.store.Get(ctx, orgID)
	})
}

// CheckMembership evaluates whether point lies within the organization's
// perimeter. A missing perimeter is ErrNotConfigured, never "outside".
func (s *Service) CheckMembership(ctx context.Context, orgID string, point geo.Coordinate) (Evaluation, error) {
	p, err := s.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			s.metrics.ObserveMembershipCheck("unconfigured")
		}
		return Evaluation{}, err
	}
	eval := Evaluate(point, *p)
	if eval.Inside {
		s.metrics.ObserveMembershipCheck("inside")
	} else {
		s.metrics.ObserveMembershipCheck("outside")
	}
	return eval, nil
}
