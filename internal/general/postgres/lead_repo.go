package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
)

// LeadRepo persists customer leads using pgx and plain SQL.
type LeadRepo struct{}

// NewLeadRepo constructs a new LeadRepo.
func NewLeadRepo() ports.LeadRepository {
	return &LeadRepo{}
}

const leadSelectColumns = `
	l.id, l.created_at, l.updated_at,
	l.customer_id,
	l.pickup_address, ST_X(l.pickup_point), ST_Y(l.pickup_point),
	l.dropoff_address, ST_X(l.dropoff_point), ST_Y(l.dropoff_point),
	l.distance_meters, l.is_active`

// Create inserts a new active lead.
func (repo *LeadRepo) Create(ctx context.Context, l *lead.Lead) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO leads (
			customer_id,
			pickup_address, pickup_point,
			dropoff_address, dropoff_point,
			distance_meters, is_active,
			created_at, updated_at
		)
		VALUES (
			$1,
			$2, ST_SetSRID(ST_MakePoint($3, $4), 4326),
			$5, ST_SetSRID(ST_MakePoint($6, $7), 4326),
			$8, true, now(), now()
		)
		RETURNING id, created_at, updated_at
	`,
		l.CustomerID,
		l.Pickup.Address, l.Pickup.Coord.Lon, l.Pickup.Coord.Lat,
		l.Dropoff.Address, l.Dropoff.Coord.Lon, l.Dropoff.Coord.Lat,
		l.DistanceMeters,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetByID returns an active lead or fault.ErrNotFound.
func (repo *LeadRepo) GetByID(ctx context.Context, id string) (*lead.Lead, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+leadSelectColumns+`
		FROM leads l
		WHERE l.id = $1 AND l.is_active = true
	`, id)

	out, err := scanLead(row, false, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, fault.ErrNotFound)
	}
	return out, err
}

// Search returns one page of active leads matching the predicate plus the
// total count.
func (repo *LeadRepo) Search(ctx context.Context, pred geoquery.Predicate, offset, limit int) ([]lead.Lead, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	args := []any{}
	where, err := compilePredicate(pred, leadGeomColumns, &args)
	if err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM leads l
		WHERE l.is_active = true AND %s
		ORDER BY l.created_at DESC, l.id
		LIMIT $%d OFFSET $%d
	`, leadSelectColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search leads: %w", err)
	}
	defer rows.Close()

	var (
		out   []lead.Lead
		total int
	)
	for rows.Next() {
		l, err := scanLead(rows, true, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Deactivate soft-deletes a lead.
func (repo *LeadRepo) Deactivate(ctx context.Context, id string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE leads SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

// ----- scanning helpers -----

func scanLead(s tripRowScanner, withTotal bool, total *int) (*lead.Lead, error) {
	var (
		out       lead.Lead
		pickLon   float64
		pickLat   float64
		dropLon   float64
		dropLat   float64
	)

	dest := []any{
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.CustomerID,
		&out.Pickup.Address, &pickLon, &pickLat,
		&out.Dropoff.Address, &dropLon, &dropLat,
		&out.DistanceMeters, &out.IsActive,
	}
	if withTotal {
		dest = append(dest, total)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	out.Pickup.Coord = geo.Coord{Lon: pickLon, Lat: pickLat}
	out.Dropoff.Coord = geo.Coord{Lon: dropLon, Lat: dropLat}
	return &out, nil
}
