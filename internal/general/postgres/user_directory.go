package postgres

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/ports"

	"github.com/jackc/pgx/v5"
)

// UserDirectory resolves a user's role and contact fields from the users
// table. Services call it exactly once per operation and keep the snapshot;
// roles persisted on a connect request are never re-derived later.
type UserDirectory struct{}

// NewUserDirectory constructs a new UserDirectory.
func NewUserDirectory() ports.UserDirectory {
	return &UserDirectory{}
}

// Resolve loads one profile by id.
func (d *UserDirectory) Resolve(ctx context.Context, userID string) (*user.Profile, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		p    user.Profile
		role string
	)
	err = tx.QueryRow(ctx, `
		SELECT id, role, name, email, phone, COALESCE(whatsapp_number, '')
		FROM users
		WHERE id = $1
	`, userID).Scan(&p.ID, &role, &p.Contact.Name, &p.Contact.Email, &p.Contact.Phone, &p.Contact.WhatsappNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	p.Role, err = user.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return &p, nil
}
