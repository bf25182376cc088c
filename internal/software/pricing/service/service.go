package service

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/fault"
	pricingdom "freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// pricingService maintains the four distance-band tables. All operations are
// admin-only; the overlap invariant is re-validated inside the store write.
type pricingService struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	bandRepo ports.BandRepository
}

// NewPricingService creates a new instance of the PricingService with the provided dependencies.
func NewPricingService(logger *logger.Logger, uow ports.UnitOfWork, bandRepo ports.BandRepository) ports.PricingService {
	return &pricingService{logger: logger, uow: uow, bandRepo: bandRepo}
}

// UpsertBand creates or updates one active band after interval validation.
func (service *pricingService) UpsertBand(ctx context.Context, actor user.Actor, in ports.BandInput) (ports.BandView, error) {
	if !actor.Role.IsAdmin() {
		return ports.BandView{}, fmt.Errorf("%w: band maintenance is admin-only", fault.ErrForbidden)
	}

	table, err := pricingdom.ParseTable(in.Table)
	if err != nil {
		return ports.BandView{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	band, err := pricingdom.NewBand(table, in.FromKm, in.ToKm, in.Cost)
	if err != nil {
		return ports.BandView{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}
	band.ID = in.ID

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.bandRepo.Upsert(txCtx, band)
	})
	if err != nil {
		service.logger.Error(ctx, "band_upsert_failed", "Failed to upsert distance band", err, map[string]any{
			"table":    table.String(),
			"admin_id": actor.ID,
		})
		if errors.Is(err, pricingdom.ErrOverlap) {
			return ports.BandView{}, fmt.Errorf("%w: %w", fault.ErrConflict, err)
		}
		return ports.BandView{}, err
	}

	service.logger.Info(ctx, "band_upserted", fmt.Sprintf("Distance band %s upserted in %s", band.ID, table), map[string]any{
		"table":    table.String(),
		"from_km":  band.FromKm,
		"to_km":    band.ToKm,
		"cost":     band.Cost,
		"admin_id": actor.ID,
	})

	return toBandView(band), nil
}

// ListBands returns one table's active bands ordered by interval start.
func (service *pricingService) ListBands(ctx context.Context, actor user.Actor, table string) ([]ports.BandView, error) {
	if !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: band maintenance is admin-only", fault.ErrForbidden)
	}

	parsed, err := pricingdom.ParseTable(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	var bands []pricingdom.Band
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		bands, err = service.bandRepo.List(txCtx, parsed)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "band_list_failed", "Failed to list distance bands", err, map[string]any{
			"table": parsed.String(),
		})
		return nil, err
	}

	out := make([]ports.BandView, 0, len(bands))
	for i := range bands {
		out = append(out, toBandView(&bands[i]))
	}
	return out, nil
}

// ArchiveBand deactivates a band; settled requests keep their amounts.
func (service *pricingService) ArchiveBand(ctx context.Context, actor user.Actor, table, id string) error {
	if !actor.Role.IsAdmin() {
		return fmt.Errorf("%w: band maintenance is admin-only", fault.ErrForbidden)
	}

	parsed, err := pricingdom.ParseTable(table)
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.bandRepo.Archive(txCtx, parsed, id)
	})
	if err != nil {
		service.logger.Error(ctx, "band_archive_failed", "Failed to archive distance band", err, map[string]any{
			"table":   parsed.String(),
			"band_id": id,
		})
		return err
	}

	service.logger.Info(ctx, "band_archived", fmt.Sprintf("Distance band %s archived in %s", id, parsed), map[string]any{
		"admin_id": actor.ID,
	})
	return nil
}

func toBandView(b *pricingdom.Band) ports.BandView {
	return ports.BandView{
		ID:     b.ID,
		Table:  b.Table.String(),
		FromKm: b.FromKm,
		ToKm:   b.ToKm,
		Cost:   b.Cost,
	}
}
