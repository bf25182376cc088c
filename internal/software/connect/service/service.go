package service

import (
	"freight-connect/internal/general/logger"
	"freight-connect/internal/general/rabbitmq"
	"freight-connect/internal/ports"
)

// connectService drives the consent/settlement handshake: role pairing and
// ownership checks, distance-band pricing, wallet settlement, disclosure.
type connectService struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	connectRepo ports.ConnectRequestRepository
	leadRepo    ports.LeadRepository
	tripRepo    ports.TripRepository
	walletRepo  ports.WalletRepository
	bandRepo    ports.BandRepository
	users       ports.UserDirectory
	pub         *rabbitmq.MQPublisher
}

// NewConnectService creates a new instance of the ConnectService with the provided dependencies.
func NewConnectService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	connectRepo ports.ConnectRequestRepository,
	leadRepo ports.LeadRepository,
	tripRepo ports.TripRepository,
	walletRepo ports.WalletRepository,
	bandRepo ports.BandRepository,
	users ports.UserDirectory,
	pub *rabbitmq.MQPublisher,
) ports.ConnectService {
	return &connectService{
		logger:      logger,
		uow:         uow,
		connectRepo: connectRepo,
		leadRepo:    leadRepo,
		tripRepo:    tripRepo,
		walletRepo:  walletRepo,
		bandRepo:    bandRepo,
		users:       users,
		pub:         pub,
	}
}
