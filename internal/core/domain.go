package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by the remote API.
const DateLayout = "2006-01-02"

type (
	// Revenue is an income entry owned by a user.
	Revenue struct {
		ID     int64
		Date   string
		Amount decimal.Decimal
	}

	// Expense is an outgoing entry; Type is the free-form category.
	Expense struct {
		ID     int64
		Date   string
		Amount decimal.Decimal
		Type   string
	}

	User struct {
		ID        int64
		Name      string
		Surname   string
		Username  string
		Email     string
		Role      Role
		Locked    bool
		AvatarURL string
	}

	// ProfileUpdate carries the editable subset of a user profile.
	ProfileUpdate struct {
		Name     string
		Surname  string
		Username string
		Email    string
	}

	Registration struct {
		Name     string
		Surname  string
		Username string
		Email    string
		Password string
	}

	// AdminStats is the platform-wide overview shown to administrators.
	AdminStats struct {
		TotalUsers     int64
		LockedUsers    int64
		GlobalRevenue  decimal.Decimal
		GlobalExpenses decimal.Decimal
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyField      = errors.New("empty field")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrPasswordTooWeak = errors.New("password must be at least 8 characters")
	ErrFieldTooLong    = errors.New("field too long")
)

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (r Revenue) Validate() error {
	if err := ValidateDate(r.Date); err != nil {
		return err
	}
	return validateAmount(r.Amount)
}

// Record returns the aggregation view of the revenue.
func (r Revenue) Record() MonetaryRecord {
	return MonetaryRecord{Date: r.Date, Amount: r.Amount}
}

func (e Expense) Validate() error {
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if len(e.Type) > 100 {
		return fmt.Errorf("%w: type (max 100 characters)", ErrFieldTooLong)
	}
	return nil
}

// Record returns the aggregation view of the expense; Type becomes the category.
func (e Expense) Record() MonetaryRecord {
	return MonetaryRecord{Date: e.Date, Amount: e.Amount, Category: strings.TrimSpace(e.Type)}
}

// RevenueRecords maps revenues to aggregation records preserving order.
func RevenueRecords(in []Revenue) []MonetaryRecord {
	out := make([]MonetaryRecord, len(in))
	for i, r := range in {
		out[i] = r.Record()
	}
	return out
}

// ExpenseRecords maps expenses to aggregation records preserving order.
func ExpenseRecords(in []Expense) []MonetaryRecord {
	out := make([]MonetaryRecord, len(in))
	for i, e := range in {
		out[i] = e.Record()
	}
	return out
}

func (p ProfileUpdate) Validate() error {
	for name, v := range map[string]string{"name": p.Name, "surname": p.Surname, "username": p.Username} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyField, name)
		}
	}
	return validateEmail(p.Email)
}

func (r Registration) Validate() error {
	if err := (ProfileUpdate{Name: r.Name, Surname: r.Surname, Username: r.Username, Email: r.Email}).Validate(); err != nil {
		return err
	}
	if len(r.Password) < 8 {
		return ErrPasswordTooWeak
	}
	return nil
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return nil
}
