package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	walletdom "freight-connect/internal/domain/wallet"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/general/rabbitmq"
	"freight-connect/internal/ports"
)

// walletService exposes the per-driver token ledger: balance reads for the
// driver, manual credit/debit for admins.
type walletService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	walletRepo ports.WalletRepository
	pub        *rabbitmq.MQPublisher
}

// NewWalletService creates a new instance of the WalletService with the provided dependencies.
func NewWalletService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	walletRepo ports.WalletRepository,
	pub *rabbitmq.MQPublisher,
) ports.WalletService {
	return &walletService{
		logger:     logger,
		uow:        uow,
		walletRepo: walletRepo,
		pub:        pub,
	}
}

// Balance reads the calling driver's balance, creating the wallet lazily.
func (service *walletService) Balance(ctx context.Context, actor user.Actor) (ports.WalletView, error) {
	if !actor.Role.IsDriver() {
		return ports.WalletView{}, fmt.Errorf("%w: only drivers hold token wallets", fault.ErrForbidden)
	}

	var balance int64
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		balance, err = service.walletRepo.Balance(txCtx, actor.ID)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "wallet_balance_failed", "Failed to read wallet balance", err, map[string]any{
			"driver_id": actor.ID,
		})
		return ports.WalletView{}, err
	}

	return ports.WalletView{DriverID: actor.ID, Balance: balance}, nil
}

// Transactions pages through the calling driver's ledger, newest first.
func (service *walletService) Transactions(ctx context.Context, actor user.Actor, page ports.Page) (ports.TransactionPage, error) {
	if !actor.Role.IsDriver() {
		return ports.TransactionPage{}, fmt.Errorf("%w: only drivers hold token wallets", fault.ErrForbidden)
	}

	page = page.Normalize(0)

	var (
		items []walletdom.Transaction
		total int
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		items, total, err = service.walletRepo.Transactions(txCtx, actor.ID, page.Offset(), page.Limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "wallet_transactions_failed", "Failed to list wallet transactions", err, map[string]any{
			"driver_id": actor.ID,
		})
		return ports.TransactionPage{}, err
	}

	out := ports.TransactionPage{
		Items: make([]ports.TransactionView, 0, len(items)),
		Meta:  ports.NewPageMeta(page, total),
	}
	for _, t := range items {
		out.Items = append(out.Items, ports.TransactionView{
			ID:        t.ID,
			Kind:      t.Kind.String(),
			Amount:    t.Amount,
			Reason:    t.Reason,
			CausedBy:  t.CausedBy,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

// AdminCredit tops a driver's wallet up, e.g. after a confirmed plan payment.
func (service *walletService) AdminCredit(ctx context.Context, actor user.Actor, in ports.AdjustInput) (ports.WalletView, error) {
	return service.adjust(ctx, actor, in, walletdom.KindCredit)
}

// AdminDebit removes tokens manually, e.g. to reverse a mistaken credit.
func (service *walletService) AdminDebit(ctx context.Context, actor user.Actor, in ports.AdjustInput) (ports.WalletView, error) {
	return service.adjust(ctx, actor, in, walletdom.KindDebit)
}

func (service *walletService) adjust(ctx context.Context, actor user.Actor, in ports.AdjustInput, kind walletdom.Kind) (ports.WalletView, error) {
	if !actor.Role.IsAdmin() {
		return ports.WalletView{}, fmt.Errorf("%w: manual wallet adjustments are admin-only", fault.ErrForbidden)
	}

	txn, err := walletdom.NewTransaction(in.DriverID, kind, in.Amount, in.Reason, actor.ID, in.RelatedPlanID)
	if err != nil {
		return ports.WalletView{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	var newBalance int64
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		if kind == walletdom.KindCredit {
			newBalance, err = service.walletRepo.Credit(txCtx, txn)
		} else {
			newBalance, err = service.walletRepo.DebitIfSufficient(txCtx, txn)
		}
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "wallet_adjust_failed", "Failed to adjust wallet", err, map[string]any{
			"driver_id": in.DriverID,
			"kind":      kind.String(),
			"admin_id":  actor.ID,
		})
		return ports.WalletView{}, asWalletFault(err)
	}

	service.logger.Info(ctx, "wallet_adjusted", fmt.Sprintf("Wallet of driver %s adjusted (%s %d)", in.DriverID, kind, in.Amount), map[string]any{
		"driver_id":   in.DriverID,
		"kind":        kind.String(),
		"amount":      in.Amount,
		"new_balance": newBalance,
		"admin_id":    actor.ID,
	})

	service.publishTxn(ctx, txn, newBalance)

	return ports.WalletView{DriverID: in.DriverID, Balance: newBalance}, nil
}

// asWalletFault attaches the fault sentinel the handler layer maps on.
func asWalletFault(err error) error {
	if errors.Is(err, walletdom.ErrInsufficientTokens) {
		return fmt.Errorf("%w: %w", fault.ErrInsufficientTokens, err)
	}
	return err
}

// publishTxn mirrors a ledger entry onto the wallet audit stream.
func (service *walletService) publishTxn(ctx context.Context, txn *walletdom.Transaction, newBalance int64) {
	msg := contracts.WalletTxnMessage{
		DriverID:   txn.DriverID,
		Kind:       txn.Kind.String(),
		Amount:     txn.Amount,
		NewBalance: newBalance,
		Reason:     txn.Reason,
		CausedBy:   txn.CausedBy,
		Envelope: contracts.Envelope{
			CorrelationID: txn.ID,
			Producer:      "marketplace-service",
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		service.logger.Error(ctx, "wallet_txn_marshal_failed", "Failed to marshal wallet transaction message", err, nil)
		return
	}

	routingKey := contracts.RouteWalletPrefix + kindRoute(txn.Kind)
	if err := service.pub.Publish(contracts.ExchangeMarketplaceTopic, routingKey, body); err != nil {
		service.logger.Error(ctx, "wallet_txn_publish_failed", "Failed to publish wallet transaction to RabbitMQ", err, map[string]any{
			"routing_key": routingKey,
			"driver_id":   txn.DriverID,
		})
	}
}

func kindRoute(kind walletdom.Kind) string {
	if kind == walletdom.KindCredit {
		return "credit"
	}
	return "debit"
}
