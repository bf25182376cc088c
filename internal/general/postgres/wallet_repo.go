package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
)

// WalletRepo is the per-driver token ledger. The debit path uses a single
// conditional UPDATE so the balance check and decrement commit atomically;
// two concurrent debits can never both pass the check.
type WalletRepo struct{}

// NewWalletRepo constructs a new WalletRepo.
func NewWalletRepo() ports.WalletRepository {
	return &WalletRepo{}
}

// GetOrCreate returns the driver's wallet, creating a zero-balance one on
// first access. Idempotent.
func (repo *WalletRepo) GetOrCreate(ctx context.Context, driverID string) (*wallet.Wallet, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if driverID == "" {
		return nil, wallet.ErrDriverRequired
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO token_wallets (driver_id, balance, created_at, updated_at)
		VALUES ($1, 0, now(), now())
		ON CONFLICT (driver_id) DO NOTHING
	`, driverID)
	if err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	var out wallet.Wallet
	err = tx.QueryRow(ctx, `
		SELECT id, created_at, updated_at, driver_id, balance
		FROM token_wallets
		WHERE driver_id = $1
	`, driverID).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.DriverID, &out.Balance)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return &out, nil
}

// Balance reads the current balance, lazily creating the wallet.
func (repo *WalletRepo) Balance(ctx context.Context, driverID string) (int64, error) {
	w, err := repo.GetOrCreate(ctx, driverID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Credit increments the balance and appends the CREDIT entry in one
// transaction. There is no upper bound.
func (repo *WalletRepo) Credit(ctx context.Context, txn *wallet.Transaction) (int64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := repo.GetOrCreate(ctx, txn.DriverID); err != nil {
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE token_wallets
		SET balance = balance + $2, updated_at = now()
		WHERE driver_id = $1
		RETURNING balance
	`, txn.DriverID, txn.Amount).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("credit wallet: %w", err)
	}

	if err := repo.appendTransaction(ctx, txn); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// DebitIfSufficient performs the conditional decrement. When the balance is
// short the UPDATE matches no row, nothing is written, and
// wallet.ErrInsufficientTokens is returned.
func (repo *WalletRepo) DebitIfSufficient(ctx context.Context, txn *wallet.Transaction) (int64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	// make sure the wallet row exists so a first-ever debit reports a
	// balance problem, not a missing row
	if _, err := repo.GetOrCreate(ctx, txn.DriverID); err != nil {
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE token_wallets
		SET balance = balance - $2, updated_at = now()
		WHERE driver_id = $1 AND balance >= $2
		RETURNING balance
	`, txn.DriverID, txn.Amount).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("driver %s: %w", txn.DriverID, wallet.ErrInsufficientTokens)
	}
	if err != nil {
		return 0, fmt.Errorf("debit wallet: %w", err)
	}

	if err := repo.appendTransaction(ctx, txn); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Transactions lists the driver's ledger, newest first.
func (repo *WalletRepo) Transactions(ctx context.Context, driverID string, offset, limit int) ([]wallet.Transaction, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, driver_id, kind, amount, reason, caused_by, related_plan_id,
		       COUNT(*) OVER() AS total
		FROM token_transactions
		WHERE driver_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, driverID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		out   []wallet.Transaction
		total int
	)
	for rows.Next() {
		var (
			t    wallet.Transaction
			kind string
		)
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.DriverID, &kind, &t.Amount,
			&t.Reason, &t.CausedBy, &t.RelatedPlanID, &total); err != nil {
			return nil, 0, err
		}
		t.Kind, _ = wallet.ParseKind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// appendTransaction writes one immutable ledger row.
func (repo *WalletRepo) appendTransaction(ctx context.Context, txn *wallet.Transaction) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO token_transactions (
			driver_id, kind, amount, reason, caused_by, related_plan_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at
	`,
		txn.DriverID, txn.Kind.String(), txn.Amount, txn.Reason, txn.CausedBy, txn.RelatedPlanID,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
