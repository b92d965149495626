package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-01", false},
		{"01/02/2025", false},
		{"", false},
	}
	for i, tc := range cases {
		err := ValidateDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("case %d expected ErrInvalidDate, got %v", i, err)
		}
	}
}

func TestRevenueAndExpenseValidate(t *testing.T) {
	one := decimal.NewFromInt(1)
	if err := (Revenue{Date: "2025-01-01", Amount: one}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Revenue{Date: "2025-01-01", Amount: decimal.Zero}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := (Expense{Date: "bad", Amount: one}).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if err := (Expense{Date: "2025-01-01", Amount: one, Type: "food"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestExpenseRecordTrimsType(t *testing.T) {
	r := Expense{Date: "2025-01-01", Amount: decimal.NewFromInt(3), Type: "  "}.Record()
	if r.Category != "" {
		t.Fatalf("blank type should become absent category, got %q", r.Category)
	}
}

func TestRegistrationValidate(t *testing.T) {
	good := Registration{Name: "Ada", Surname: "Lovelace", Username: "ada", Email: "ada@example.com", Password: "s3cret-pass"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Registration{
		{Name: "", Surname: "L", Username: "u", Email: "a@b.c", Password: "longenough"},
		{Name: "A", Surname: "L", Username: "u", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Surname: "L", Username: "u", Email: "a@b.c", Password: "short"},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
