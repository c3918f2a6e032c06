package perimeter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/platform/db"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for perimeters.
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs a repository. A non-positive timeout falls back
// to the platform default.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{pool: pool, timeout: timeout}
}

// Get fetches the single perimeter for an organization.
func (r *Repository) Get(ctx context.Context, orgID string) (*Perimeter, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, org_id, center_lat, center_lng, radius_m, updated_at
		FROM perimeters
		WHERE org_id = $1
	`
	var p Perimeter
	err := r.pool.QueryRow(ctx, query, orgID).Scan(
		&p.ID, &p.OrgID, &p.Center.Lat, &p.Center.Lng, &p.RadiusMeters, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotConfigured
		}
		return nil, mapStoreErr(err)
	}
	return &p, nil
}

// Upsert saves the perimeter for an organization, creating it on first
// save and overwriting center/radius in place thereafter. Idempotent.
func (r *Repository) Upsert(ctx context.Context, orgID string, center geo.Coordinate, radiusMeters float64) (*Perimeter, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		INSERT INTO perimeters (id, org_id, center_lat, center_lng, radius_m, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (org_id) DO UPDATE
		SET center_lat = EXCLUDED.center_lat,
		    center_lng = EXCLUDED.center_lng,
		    radius_m   = EXCLUDED.radius_m,
		    updated_at = now()
		RETURNING id, org_id, center_lat, center_lng, radius_m, updated_at
	`
	var p Perimeter
	err := r.pool.QueryRow(ctx, query, uuid.New(), orgID, center.Lat, center.Lng, radiusMeters).Scan(
		&p.ID, &p.OrgID, &p.Center.Lat, &p.Center.Lng, &p.RadiusMeters, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &p, nil
}

func mapStoreErr(err error) error {
	if db.IsUnavailable(err) {
		return httpx.ErrUnavailable
	}
	return err
}
