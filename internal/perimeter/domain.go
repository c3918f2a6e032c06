// Package perimeter manages the per-organization geofence and evaluates
// point membership against it.
package perimeter

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-hq/rollcall/internal/geo"
)

// MinRadiusMeters is the smallest perimeter a manager may configure.
const MinRadiusMeters = 1.0

var (
	// ErrNotConfigured indicates no perimeter exists for the organization.
	// Callers must surface this distinctly and never treat it as "outside".
	ErrNotConfigured = errors.New("perimeter not configured")
	// ErrInvalidRadius indicates a radius below the configured minimum.
	ErrInvalidRadius = errors.New("radius must be at least 1 meter")
)

// Perimeter is the circular geofence owned by one organization. At most one
// exists per organization; saves overwrite it in place.
type Perimeter struct {
	ID           uuid.UUID      `json:"id"`
	OrgID        string         `json:"organizationId"`
	Center       geo.Coordinate `json:"center"`
	RadiusMeters float64        `json:"radiusMeters"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Evaluation is the outcome of a membership check. DistanceMeters is
// rounded to two decimals for reporting; the inside decision was made on
// the unrounded value.
type Evaluation struct {
	Inside         bool           `json:"inside"`
	DistanceMeters float64        `json:"distanceMeters"`
	RadiusMeters   float64        `json:"radiusMeters"`
	Center         geo.Coordinate `json:"center"`
}

// Evaluate decides membership of point against p. The boundary is
// inclusive: a point at exactly the radius is inside.
func Evaluate(point geo.Coordinate, p Perimeter) Evaluation {
	distance := geo.DistanceMeters(point, p.Center)
	return Evaluation{
		Inside:         distance <= p.RadiusMeters,
		DistanceMeters: geo.Round2(distance),
		RadiusMeters:   p.RadiusMeters,
		Center:         p.Center,
	}
}
