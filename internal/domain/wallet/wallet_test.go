package wallet

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	got, err := ParseKind(" debit ")
	if err != nil || got != KindDebit {
		t.Fatalf("ParseKind = %v, %v; want DEBIT", got, err)
	}
	if _, err := ParseKind("TRANSFER"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestNewTransaction(t *testing.T) {
	txn, err := NewTransaction(" drv-1 ", KindCredit, 50, " manual top-up ", "adm-1", nil)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if txn.DriverID != "drv-1" || txn.Reason != "manual top-up" {
		t.Fatalf("fields not trimmed: %+v", txn)
	}
	if txn.CreatedAt.IsZero() {
		t.Fatal("CreatedAt must be set")
	}

	cases := []struct {
		name    string
		driver  string
		kind    Kind
		amount  int64
		reason  string
		wantErr error
	}{
		{"no driver", "", KindDebit, 10, "r", ErrDriverRequired},
		{"bad kind", "d", Kind("X"), 10, "r", ErrInvalidKind},
		{"zero amount", "d", KindDebit, 0, "r", ErrAmountNotPositive},
		{"negative amount", "d", KindDebit, -5, "r", ErrAmountNotPositive},
		{"no reason", "d", KindDebit, 10, "  ", ErrReasonRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTransaction(tc.driver, tc.kind, tc.amount, tc.reason, "", nil); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
