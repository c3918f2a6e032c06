// Package shift derives per-user duty state from clock events and owns the
// single-open-shift invariant.
package shift

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-hq/rollcall/internal/geo"
)

var (
	// ErrAlreadyOnDuty indicates an open shift already exists for the user.
	ErrAlreadyOnDuty = errors.New("already on duty")
	// ErrNoActiveShift indicates no open shift exists for the user.
	ErrNoActiveShift = errors.New("no active shift")
	// ErrLocationRequired indicates a clock-in without a location.
	ErrLocationRequired = errors.New("clock-in location required")
	// ErrOutsidePerimeter indicates a clock-in attempt from outside the
	// organization's perimeter. Never conflated with ErrAlreadyOnDuty.
	ErrOutsidePerimeter = errors.New("outside the work perimeter")
)

// Record is one shift: created open at clock-in, closed exactly once at
// clock-out, immutable thereafter. DisplayName and AvatarURL are
// denormalized copies captured at clock-in for reporting.
type Record struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"userId"`
	OrgID            string          `json:"organizationId"`
	ClockInAt        time.Time       `json:"clockInAt"`
	ClockInLocation  geo.Coordinate  `json:"clockInLocation"`
	ClockOutAt       *time.Time      `json:"clockOutAt,omitempty"`
	ClockOutLocation *geo.Coordinate `json:"clockOutLocation,omitempty"`
	Note             string          `json:"note,omitempty"`
	Duration         string          `json:"duration,omitempty"`
	DisplayName      string          `json:"displayName,omitempty"`
	AvatarURL        string          `json:"avatarUrl,omitempty"`
}

// Open reports whether the record has no clock-out yet.
func (r Record) Open() bool {
	return r.ClockOutAt == nil
}

// State is the derived duty state for one user.
type State struct {
	OnDuty         bool       `json:"onDuty"`
	Since          *time.Time `json:"since,omitempty"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
}

// FormatDuration renders an elapsed duration as whole hours plus remainder
// minutes, e.g. "1 h 1 m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	return fmt.Sprintf("%d h %d m", hours, minutes)
}
