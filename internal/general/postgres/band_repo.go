package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
)

// BandRepo stores the four distance-band tables. Writes serialize per table
// with a transaction-scoped advisory lock so the overlap check and the insert
// cannot interleave with a concurrent writer of the same table.
type BandRepo struct{}

// NewBandRepo constructs a new BandRepo.
func NewBandRepo() ports.BandRepository {
	return &BandRepo{}
}

const bandSelectColumns = `
	id, created_at, updated_at, band_table, from_km, to_km, cost, is_active
`

// Upsert inserts a new active band after checking the half-open interval
// against every active sibling in the same table.
func (repo *BandRepo) Upsert(ctx context.Context, band *pricing.Band) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// per-table write lock, released at commit or rollback
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, band.Table.String()); err != nil {
		return fmt.Errorf("lock band table: %w", err)
	}

	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM distance_bands
			WHERE band_table = $1
			  AND is_active
			  AND id <> COALESCE($4, '00000000-0000-0000-0000-000000000000')
			  AND from_km < $3 AND $2 < to_km
		)
	`, band.Table.String(), band.FromKm, band.ToKm, nilIfEmpty(band.ID)).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("check band overlap: %w", err)
	}
	if overlaps {
		return fmt.Errorf("%s [%g, %g): %w", band.Table, band.FromKm, band.ToKm, pricing.ErrOverlap)
	}

	if band.ID == "" {
		err = tx.QueryRow(ctx, `
			INSERT INTO distance_bands (band_table, from_km, to_km, cost, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, now(), now())
			RETURNING id, created_at, updated_at
		`, band.Table.String(), band.FromKm, band.ToKm, band.Cost).
			Scan(&band.ID, &band.CreatedAt, &band.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert band: %w", err)
		}
		return nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE distance_bands
		SET from_km = $2, to_km = $3, cost = $4, updated_at = now()
		WHERE id = $1 AND is_active
	`, band.ID, band.FromKm, band.ToKm, band.Cost)
	if err != nil {
		return fmt.Errorf("update band: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("band %s: %w", band.ID, fault.ErrNotFound)
	}
	return nil
}

// Lookup returns the cost of the single active band whose interval covers
// the distance. A distance no band covers is a pricing hole, reported as
// ErrNotPriced.
func (repo *BandRepo) Lookup(ctx context.Context, table pricing.Table, distanceKm float64) (int64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var cost int64
	err = tx.QueryRow(ctx, `
		SELECT cost
		FROM distance_bands
		WHERE band_table = $1
		  AND is_active
		  AND from_km <= $2 AND $2 < to_km
	`, table.String(), distanceKm).Scan(&cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s at %.2f km: %w", table, distanceKm, fault.ErrNotPriced)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup band: %w", err)
	}
	return cost, nil
}

// List returns the active bands of one table ordered by interval start.
func (repo *BandRepo) List(ctx context.Context, table pricing.Table) ([]pricing.Band, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+bandSelectColumns+`
		FROM distance_bands
		WHERE band_table = $1 AND is_active
		ORDER BY from_km
	`, table.String())
	if err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	defer rows.Close()

	var out []pricing.Band
	for rows.Next() {
		band, err := scanBand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *band)
	}
	return out, rows.Err()
}

// Archive deactivates a band. Already-settled requests keep the amounts they
// recorded at settlement time.
func (repo *BandRepo) Archive(ctx context.Context, table pricing.Table, bandID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE distance_bands
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND band_table = $2 AND is_active
	`, bandID, table.String())
	if err != nil {
		return fmt.Errorf("archive band: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("band %s: %w", bandID, fault.ErrNotFound)
	}
	return nil
}

func scanBand(row pgx.Row) (*pricing.Band, error) {
	var (
		band  pricing.Band
		table string
	)
	err := row.Scan(&band.ID, &band.CreatedAt, &band.UpdatedAt,
		&table, &band.FromKm, &band.ToKm, &band.Cost, &band.IsActive)
	if err != nil {
		return nil, err
	}
	band.Table, _ = pricing.ParseTable(table)
	return &band, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
