package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectRequestRepo persists the consent handshake. Duplicate prevention
// relies on the partial unique index over the active
// (initiator_id, recipient_id, lead_id, trip_id) tuple, so a racing second
// insert fails at the store even when both pre-checks passed.
type ConnectRequestRepo struct{}

// NewConnectRequestRepo constructs a new ConnectRequestRepo.
func NewConnectRequestRepo() ports.ConnectRequestRepository {
	return &ConnectRequestRepo{}
}

const connectSelectColumns = `
	id, created_at, updated_at,
	initiator_id, recipient_id, initiator_role, recipient_role,
	lead_id, trip_id, message,
	status, recipient_accepted, initiator_accepted,
	tokens_required, tokens_deducted, has_sufficient_tokens,
	contact_details_shared, rejection_reason, is_active,
	responded_at, settled_at
`

// Create inserts a PENDING request. A unique-violation on the active tuple
// index surfaces as fault.ErrConflict.
func (repo *ConnectRequestRepo) Create(ctx context.Context, r *connect.Request) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO connect_requests (
			initiator_id, recipient_id, initiator_role, recipient_role,
			lead_id, trip_id, message,
			status, recipient_accepted, initiator_accepted,
			tokens_required, tokens_deducted, has_sufficient_tokens,
			contact_details_shared, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, TRUE, now(), now())
		RETURNING id, created_at, updated_at
	`,
		r.InitiatorID, r.RecipientID, r.InitiatorRole.String(), r.RecipientRole.String(),
		r.LeadID, r.TripID, r.Message,
		r.Status.String(), r.RecipientAccepted, r.InitiatorAccepted,
		r.TokensRequired, r.TokensDeducted, r.HasSufficientTokens,
		r.ContactDetailsShared,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("active connect request already exists for this match: %w", fault.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert connect request: %w", err)
	}
	return nil
}

// GetByID loads one request; soft-deleted rows are invisible.
func (repo *ConnectRequestRepo) GetByID(ctx context.Context, id string) (*connect.Request, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+connectSelectColumns+`
		FROM connect_requests
		WHERE id = $1 AND is_active
	`, id)

	r, err := scanConnectRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("connect request %s: %w", id, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load connect request: %w", err)
	}
	return r, nil
}

// Update writes the mutable handshake state back.
func (repo *ConnectRequestRepo) Update(ctx context.Context, r *connect.Request) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE connect_requests
		SET status = $2,
		    recipient_accepted = $3,
		    initiator_accepted = $4,
		    tokens_required = $5,
		    tokens_deducted = $6,
		    contact_details_shared = $7,
		    rejection_reason = $8,
		    responded_at = $9,
		    settled_at = $10,
		    updated_at = now()
		WHERE id = $1 AND is_active
	`,
		r.ID, r.Status.String(), r.RecipientAccepted, r.InitiatorAccepted,
		r.TokensRequired, r.TokensDeducted, r.ContactDetailsShared,
		r.RejectionReason, r.RespondedAt, r.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("update connect request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connect request %s: %w", r.ID, fault.ErrNotFound)
	}
	return nil
}

// SoftDelete hides a request from all reads. Deleting also releases the
// active-tuple uniqueness slot so the initiator may connect again later.
func (repo *ConnectRequestRepo) SoftDelete(ctx context.Context, id string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE connect_requests
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete connect request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connect request %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

// ListForUser returns one page of requests where the user is either side,
// newest first, optionally filtered by status.
func (repo *ConnectRequestRepo) ListForUser(ctx context.Context, userID string, status *connect.Status, offset, limit int) ([]connect.Request, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	var statusFilter *string
	if status != nil {
		s := status.String()
		statusFilter = &s
	}

	rows, err := tx.Query(ctx, `
		SELECT `+connectSelectColumns+`, COUNT(*) OVER() AS total
		FROM connect_requests
		WHERE is_active
		  AND (initiator_id = $1 OR recipient_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, userID, statusFilter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list connect requests: %w", err)
	}
	defer rows.Close()

	var (
		out   []connect.Request
		total int
	)
	for rows.Next() {
		r, err := scanConnectRequestTotal(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanConnectRequest(row pgx.Row) (*connect.Request, error) {
	return scanConnectFields(row, nil)
}

func scanConnectRequestTotal(row pgx.Row, total *int) (*connect.Request, error) {
	return scanConnectFields(row, total)
}

func scanConnectFields(row pgx.Row, total *int) (*connect.Request, error) {
	var (
		r                 connect.Request
		initRole, recRole string
		status            string
	)
	dest := []any{
		&r.ID, &r.CreatedAt, &r.UpdatedAt,
		&r.InitiatorID, &r.RecipientID, &initRole, &recRole,
		&r.LeadID, &r.TripID, &r.Message,
		&status, &r.RecipientAccepted, &r.InitiatorAccepted,
		&r.TokensRequired, &r.TokensDeducted, &r.HasSufficientTokens,
		&r.ContactDetailsShared, &r.RejectionReason, &r.IsActive,
		&r.RespondedAt, &r.SettledAt,
	}
	if total != nil {
		dest = append(dest, total)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.InitiatorRole, _ = user.ParseRole(initRole)
	r.RecipientRole, _ = user.ParseRole(recRole)
	r.Status, _ = connect.ParseStatus(status)
	return &r, nil
}
