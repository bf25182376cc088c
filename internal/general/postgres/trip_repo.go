package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripRepo persists trip offers using pgx and plain SQL. Geometry columns
// are PostGIS: start/dest points, an optional via multipoint and an optional
// route linestring, all SRID 4326.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

const tripSelectColumns = `
	t.id, t.created_at, t.updated_at,
	t.created_by, t.assigned_driver_id,
	t.start_address, ST_X(t.start_point), ST_Y(t.start_point),
	t.dest_address, ST_X(t.dest_point), ST_Y(t.dest_point),
	COALESCE(ST_AsGeoJSON(t.via_points), ''),
	COALESCE(ST_AsGeoJSON(t.route_line), ''),
	t.distance_meters, t.is_active`

// Create inserts a new active trip offer.
func (repo *TripRepo) Create(ctx context.Context, t *trip.Offer) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var viaWKT, routeWKT *string
	if len(t.Via) > 0 {
		s := wktMultiPoint(t.Via)
		viaWKT = &s
	}
	if len(t.Route) > 0 {
		s := wktLineString(t.Route)
		routeWKT = &s
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (
			created_by, assigned_driver_id,
			start_address, start_point,
			dest_address, dest_point,
			via_points, route_line,
			distance_meters, is_active,
			created_at, updated_at
		)
		VALUES (
			$1, $2,
			$3, ST_SetSRID(ST_MakePoint($4, $5), 4326),
			$6, ST_SetSRID(ST_MakePoint($7, $8), 4326),
			ST_GeomFromText($9, 4326), ST_GeomFromText($10, 4326),
			$11, true, now(), now()
		)
		RETURNING id, created_at, updated_at
	`,
		t.CreatedBy, t.AssignedDriverID,
		t.Start.Address, t.Start.Coord.Lon, t.Start.Coord.Lat,
		t.Destination.Address, t.Destination.Coord.Lon, t.Destination.Coord.Lat,
		viaWKT, routeWKT,
		t.DistanceMeters,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// GetByID returns an active trip or fault.ErrNotFound.
func (repo *TripRepo) GetByID(ctx context.Context, id string) (*trip.Offer, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+tripSelectColumns+`
		FROM trips t
		WHERE t.id = $1 AND t.is_active = true
	`, id)

	out, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", id, fault.ErrNotFound)
	}
	return out, err
}

// Search returns one page of active trips matching the predicate plus the
// total count.
func (repo *TripRepo) Search(ctx context.Context, pred geoquery.Predicate, offset, limit int) ([]trip.Offer, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	args := []any{}
	where, err := compilePredicate(pred, tripGeomColumns, &args)
	if err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM trips t
		WHERE t.is_active = true AND %s
		ORDER BY t.created_at DESC, t.id
		LIMIT $%d OFFSET $%d
	`, tripSelectColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search trips: %w", err)
	}
	defer rows.Close()

	return collectTrips(rows, true)
}

// SearchAll returns up to cap matching active trips in stable creation order.
func (repo *TripRepo) SearchAll(ctx context.Context, pred geoquery.Predicate, cap int) ([]trip.Offer, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	args := []any{}
	where, err := compilePredicate(pred, tripGeomColumns, &args)
	if err != nil {
		return nil, err
	}
	args = append(args, cap)

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM trips t
		WHERE t.is_active = true AND %s
		ORDER BY t.created_at DESC, t.id
		LIMIT $%d
	`, tripSelectColumns, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("search trips unpaged: %w", err)
	}
	defer rows.Close()

	out, _, err := collectTrips(rows, false)
	return out, err
}

// GetByIDs fetches active trips preserving the order of ids.
func (repo *TripRepo) GetByIDs(ctx context.Context, ids []string) ([]trip.Offer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+tripSelectColumns+`
		FROM trips t
		WHERE t.id = ANY($1) AND t.is_active = true
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get trips by ids: %w", err)
	}
	defer rows.Close()

	fetched, _, err := collectTrips(rows, false)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]trip.Offer, len(fetched))
	for _, t := range fetched {
		byID[t.ID] = t
	}
	out := make([]trip.Offer, 0, len(fetched))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Deactivate soft-deletes a trip offer.
func (repo *TripRepo) Deactivate(ctx context.Context, id string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

// ----- scanning helpers -----

type tripRowScanner interface {
	Scan(dest ...any) error
}

func scanTripInto(s tripRowScanner, withTotal bool, total *int) (*trip.Offer, error) {
	var (
		out       trip.Offer
		startLon  float64
		startLat  float64
		destLon   float64
		destLat   float64
		viaJSON   string
		routeJSON string
	)

	dest := []any{
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.CreatedBy, &out.AssignedDriverID,
		&out.Start.Address, &startLon, &startLat,
		&out.Destination.Address, &destLon, &destLat,
		&viaJSON, &routeJSON,
		&out.DistanceMeters, &out.IsActive,
	}
	if withTotal {
		dest = append(dest, total)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	out.Start.Coord = geo.Coord{Lon: startLon, Lat: startLat}
	out.Destination.Coord = geo.Coord{Lon: destLon, Lat: destLat}

	viaCoords, err := parseCoordList(viaJSON)
	if err != nil {
		return nil, err
	}
	for _, c := range viaCoords {
		out.Via = append(out.Via, geo.Point{Coord: c})
	}

	routeCoords, err := parseCoordList(routeJSON)
	if err != nil {
		return nil, err
	}
	out.Route = geo.Polyline(routeCoords)

	return &out, nil
}

func scanTrip(row pgx.Row) (*trip.Offer, error) {
	return scanTripInto(row, false, nil)
}

func collectTrips(rows pgx.Rows, withTotal bool) ([]trip.Offer, int, error) {
	var (
		out   []trip.Offer
		total int
	)
	for rows.Next() {
		t, err := scanTripInto(rows, withTotal, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
