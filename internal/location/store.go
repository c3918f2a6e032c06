// Package location mirrors each user's last reported position. The data is
// ephemeral client-reported state, so it lives in Redis under a TTL rather
// than in Postgres.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rollcall-hq/rollcall/internal/geo"
)

// ErrNotFound indicates no recent location is known for the user.
var ErrNotFound = errors.New("location not found")

const keyPrefix = "location:user:"

// Position is a user's last reported coordinate and when it was reported.
type Position struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	ReportedAt time.Time      `json:"reportedAt"`
}

// Store keeps last-known positions in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Update records the user's position, replacing any previous one.
func (s *Store) Update(ctx context.Context, userID string, coord geo.Coordinate, at time.Time) (*Position, error) {
	pos := Position{Coordinate: coord, ReportedAt: at.UTC()}
	data, err := json.Marshal(pos)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, keyPrefix+userID, data, s.ttl).Err(); err != nil {
		return nil, err
	}
	return &pos, nil
}

// Current returns the user's last reported position, if still retained.
func (s *Store) Current(ctx context.Context, userID string) (*Position, error) {
	raw, err := s.client.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var pos Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}
