package service

import (
	"freight-connect/internal/general/config"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// listingService builds proximity predicates from search inputs and runs the
// candidate listings that precede a connect request.
type listingService struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	tripRepo ports.TripRepository
	leadRepo ports.LeadRepository
	users    ports.UserDirectory
	// locator is the optional Redis fast path for current-location trip
	// searches; nil when Redis is disabled.
	locator ports.TripLocator

	defaultRadius float64
	maxPageSize   int
	refineScanCap int
}

// NewListingService creates a new instance of the ListingService with the provided dependencies.
func NewListingService(
	logger *logger.Logger,
	cfg *config.Config,
	uow ports.UnitOfWork,
	tripRepo ports.TripRepository,
	leadRepo ports.LeadRepository,
	users ports.UserDirectory,
	locator ports.TripLocator,
) ports.ListingService {
	return &listingService{
		logger:        logger,
		uow:           uow,
		tripRepo:      tripRepo,
		leadRepo:      leadRepo,
		users:         users,
		locator:       locator,
		defaultRadius: cfg.Matching.DefaultRadiusMeters,
		maxPageSize:   cfg.Matching.MaxPageSize,
		refineScanCap: cfg.Matching.RefineScanCap,
	}
}
