package perimeter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-hq/rollcall/internal/geo"
	_ "github.com/rollcall-hq/rollcall/testing"
)

type stubStore struct {
	perimeters map[string]*Perimeter
	upserts    int
	gets       int
}

func newStubStore() *stubStore {
	return &stubStore{perimeters: map[string]*Perimeter{}}
}

func (s *stubStore) Get(ctx context.Context, orgID string) (*Perimeter, error) {
	s.gets++
	p, ok := s.perimeters[orgID]
	if !ok {
		return nil, ErrNotConfigured
	}
	copied := *p
	return &copied, nil
}

func (s *stubStore) Upsert(ctx context.Context, orgID string, center geo.Coordinate, radiusMeters float64) (*Perimeter, error) {
	s.upserts++
	p, ok := s.perimeters[orgID]
	if !ok {
		p = &Perimeter{ID: uuid.New(), OrgID: orgID}
		s.perimeters[orgID] = p
	}
	p.Center = center
	p.RadiusMeters = radiusMeters
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

func newTestService(t *testing.T) (*Service, *stubStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newStubStore()
	return NewService(store, NewCache(client, time.Minute), nil), store
}

func TestSetRejectsInvalidInput(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "org-1", 999, 0, 500)
	require.ErrorIs(t, err, geo.ErrOutOfRange)

	_, err = svc.Set(ctx, "org-1", 40, -74, 0)
	require.ErrorIs(t, err, ErrInvalidRadius)

	_, err = svc.Set(ctx, "org-1", 40, -74, -10)
	require.ErrorIs(t, err, ErrInvalidRadius)

	assert.Zero(t, store.upserts, "invalid input must not reach the store")
}

func TestSetIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)

	second, err := svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resaving must overwrite in place")
	assert.Equal(t, first.Center, second.Center)
	assert.Equal(t, first.RadiusMeters, second.RadiusMeters)
	assert.Len(t, store.perimeters, 1)
}

func TestGetMissesAreNotCached(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "org-1")
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)

	p, err := svc.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, p.RadiusMeters)
}

func TestGetServedFromCache(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Get(ctx, "org-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.gets, "repeat reads should come from redis")
}

func TestSetInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)
	_, err = svc.Get(ctx, "org-1")
	require.NoError(t, err)

	_, err = svc.Set(ctx, "org-1", 40.0, -74.0, 2000)
	require.NoError(t, err)

	p, err := svc.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, p.RadiusMeters)
}

func TestCheckMembershipScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "org-1", 40.0, -74.0, 1000)
	require.NoError(t, err)

	center, err := geo.New(40.0, -74.0)
	require.NoError(t, err)
	eval, err := svc.CheckMembership(ctx, "org-1", center)
	require.NoError(t, err)
	assert.True(t, eval.Inside)
	assert.Equal(t, 0.0, eval.DistanceMeters)

	// ~1112 m north of center, outside the 1000 m radius.
	north, err := geo.New(40.01, -74.0)
	require.NoError(t, err)
	eval, err = svc.CheckMembership(ctx, "org-1", north)
	require.NoError(t, err)
	assert.False(t, eval.Inside)
	assert.Greater(t, eval.DistanceMeters, 1000.0)
}

func TestCheckMembershipMissingPerimeter(t *testing.T) {
	svc, _ := newTestService(t)

	point, err := geo.New(40.0, -74.0)
	require.NoError(t, err)
	_, err = svc.CheckMembership(context.Background(), "org-none", point)
	require.ErrorIs(t, err, ErrNotConfigured, "missing perimeter must be an error, never a silent outside")
}

func TestEvaluateBoundaryInclusive(t *testing.T) {
	center := geo.Coordinate{Lat: 40.0, Lng: -74.0}
	point := geo.Coordinate{Lat: 40.01, Lng: -74.0}
	exact := geo.DistanceMeters(point, center)

	atRadius := Evaluate(point, Perimeter{Center: center, RadiusMeters: exact})
	assert.True(t, atRadius.Inside, "a point at exactly the radius counts as inside")

	justOutside := Evaluate(point, Perimeter{Center: center, RadiusMeters: exact - 0.01})
	assert.False(t, justOutside.Inside)
}

func TestEvaluateDecisionUsesUnroundedDistance(t *testing.T) {
	center := geo.Coordinate{Lat: 40.0, Lng: -74.0}
	point := geo.Coordinate{Lat: 40.01, Lng: -74.0}
	exact := geo.DistanceMeters(point, center)

	// Radius between the unrounded distance and its 2 dp rounding: the
	// decision must follow the unrounded value.
	eval := Evaluate(point, Perimeter{Center: center, RadiusMeters: exact})
	assert.True(t, eval.Inside)
	assert.Equal(t, geo.Round2(exact), eval.DistanceMeters)
}
