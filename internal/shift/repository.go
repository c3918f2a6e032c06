package shift

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/platform/db"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// openShiftConstraint is the partial unique index on shifts(user_id) WHERE
// clock_out_at IS NULL. It is what makes concurrent clock-ins safe: the
// insert either wins or fails with a unique violation, no read-then-write.
const openShiftConstraint = "uq_shifts_open_user"

const recordColumns = `
	id, user_id, org_id, clock_in_at, clock_in_lat, clock_in_lng,
	clock_out_at, clock_out_lat, clock_out_lng, note, duration,
	display_name, avatar_url
`

// Repository provides PostgreSQL backed persistence for shift records.
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{pool: pool, timeout: timeout}
}

// CreateOpen inserts an open shift record. A unique violation on the open
// partial index means the user already has an open shift.
func (r *Repository) CreateOpen(ctx context.Context, rec Record) (*Record, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		INSERT INTO shifts (id, user_id, org_id, clock_in_at, clock_in_lat, clock_in_lng, note, display_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.OrgID, rec.ClockInAt,
		rec.ClockInLocation.Lat, rec.ClockInLocation.Lng,
		rec.Note, rec.DisplayName, rec.AvatarURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == openShiftConstraint {
			return nil, ErrAlreadyOnDuty
		}
		return nil, mapStoreErr(err)
	}
	return &rec, nil
}

// CloseParams carries the clock-out details applied to the open record.
type CloseParams struct {
	At       time.Time
	Location *geo.Coordinate
	Note     string
}

// CloseOpen atomically claims and closes the user's open shift. The row
// lock serializes concurrent clock-outs; the loser re-evaluates the
// predicate, finds no open row and gets ErrNoActiveShift.
func (r *Repository) CloseOpen(ctx context.Context, userID string, params CloseParams) (*Record, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const claim = `
		SELECT id, clock_in_at, note
		FROM shifts
		WHERE user_id = $1 AND clock_out_at IS NULL
		FOR UPDATE
	`
	var (
		id           string
		clockInAt    time.Time
		existingNote string
	)
	if err := tx.QueryRow(ctx, claim, userID).Scan(&id, &clockInAt, &existingNote); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveShift
		}
		return nil, mapStoreErr(err)
	}

	note := existingNote
	if params.Note != "" {
		note = params.Note
	}
	duration := FormatDuration(params.At.Sub(clockInAt))

	var outLat, outLng *float64
	if params.Location != nil {
		outLat = &params.Location.Lat
		outLng = &params.Location.Lng
	}

	const update = `
		UPDATE shifts
		SET clock_out_at = $2, clock_out_lat = $3, clock_out_lng = $4,
		    note = $5, duration = $6
		WHERE id = $1
		RETURNING ` + recordColumns
	row := tx.QueryRow(ctx, update, id, params.At, outLat, outLng, note, duration)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// FindOpen returns the user's open shift record.
func (r *Repository) FindOpen(ctx context.Context, userID string) (*Record, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT ` + recordColumns + `
		FROM shifts
		WHERE user_id = $1 AND clock_out_at IS NULL
		ORDER BY clock_in_at DESC
		LIMIT 1
	`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveShift
		}
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// ListByUser returns the user's shift history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	const query = `
		SELECT ` + recordColumns + `
		FROM shifts
		WHERE user_id = $1
		ORDER BY clock_in_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListByOrg returns all shift records for an organization, newest first.
func (r *Repository) ListByOrg(ctx context.Context, orgID string) ([]Record, error) {
	const query = `
		SELECT ` + recordColumns + `
		FROM shifts
		WHERE org_id = $1
		ORDER BY clock_in_at DESC
	`
	return r.list(ctx, query, orgID)
}

// ListOpenOlderThan returns shifts still open with a clock-in before the
// cutoff. Used by the overdue scan.
func (r *Repository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]Record, error) {
	const query = `
		SELECT ` + recordColumns + `
		FROM shifts
		WHERE clock_out_at IS NULL AND clock_in_at < $1
		ORDER BY clock_in_at ASC
	`
	return r.list(ctx, query, cutoff)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]Record, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec              Record
		outLat, outLng   *float64
		note, duration   *string
		name, avatar     *string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.OrgID, &rec.ClockInAt,
		&rec.ClockInLocation.Lat, &rec.ClockInLocation.Lng,
		&rec.ClockOutAt, &outLat, &outLng, &note, &duration,
		&name, &avatar,
	)
	if err != nil {
		return nil, err
	}
	if outLat != nil && outLng != nil {
		rec.ClockOutLocation = &geo.Coordinate{Lat: *outLat, Lng: *outLng}
	}
	if note != nil {
		rec.Note = *note
	}
	if duration != nil {
		rec.Duration = *duration
	}
	if name != nil {
		rec.DisplayName = *name
	}
	if avatar != nil {
		rec.AvatarURL = *avatar
	}
	return &rec, nil
}

func mapStoreErr(err error) error {
	if db.IsUnavailable(err) {
		return httpx.ErrUnavailable
	}
	return err
}
