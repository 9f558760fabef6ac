package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreditCardValidate(t *testing.T) {
	good := CreditCard{
		Name:           "Nubank",
		Flag:           FlagMastercard,
		LastFourDigits: "1234",
		Limit:          decimal.NewFromInt(5000),
		ClosingDay:     10,
		DueDay:         20,
		Status:         CardActive,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]func(c *CreditCard){
		"closing day zero":  func(c *CreditCard) { c.ClosingDay = 0 },
		"closing day 32":    func(c *CreditCard) { c.ClosingDay = 32 },
		"due day 32":        func(c *CreditCard) { c.DueDay = 32 },
		"bad flag":          func(c *CreditCard) { c.Flag = "diners" },
		"short digits":      func(c *CreditCard) { c.LastFourDigits = "123" },
		"letters in digits": func(c *CreditCard) { c.LastFourDigits = "12a4" },
		"zero limit":        func(c *CreditCard) { c.Limit = decimal.Zero },
		"empty name":        func(c *CreditCard) { c.Name = " " },
		"bad status":        func(c *CreditCard) { c.Status = "frozen" },
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			c := good
			mutate(&c)
			err := c.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSubscriptionValidate(t *testing.T) {
	base := Subscription{
		Description:  "Netflix",
		Amount:       decimal.RequireFromString("39.90"),
		CategoryName: "Lazer",
	}

	tests := []struct {
		name string
		edit func(s *Subscription)
		ok   bool
	}{
		{"weekly with day of week", func(s *Subscription) { s.Frequency = Weekly; s.DayOfWeek = IntPtr(1) }, true},
		{"weekly missing day of week", func(s *Subscription) { s.Frequency = Weekly }, false},
		{"weekly with day of month", func(s *Subscription) {
			s.Frequency = Weekly
			s.DayOfWeek = IntPtr(1)
			s.DayOfMonth = IntPtr(3)
		}, false},
		{"weekly day 7", func(s *Subscription) { s.Frequency = Weekly; s.DayOfWeek = IntPtr(7) }, false},
		{"monthly day 31", func(s *Subscription) { s.Frequency = Monthly; s.DayOfMonth = IntPtr(31) }, true},
		{"monthly missing day", func(s *Subscription) { s.Frequency = Monthly }, false},
		{"yearly complete", func(s *Subscription) {
			s.Frequency = Yearly
			s.DayOfMonth = IntPtr(29)
			s.Month = IntPtr(2)
		}, true},
		{"yearly missing month", func(s *Subscription) { s.Frequency = Yearly; s.DayOfMonth = IntPtr(1) }, false},
		{"unknown frequency", func(s *Subscription) { s.Frequency = "daily" }, false},
		{"negative amount", func(s *Subscription) {
			s.Frequency = Monthly
			s.DayOfMonth = IntPtr(1)
			s.Amount = decimal.NewFromInt(-1)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.edit(&s)
			err := s.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:       decimal.RequireFromString("10.50"),
		Description:  "Lunch",
		CategoryName: "Alimentação",
		Type:         Expense,
		Status:       StatusPaid,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Amount = decimal.Zero
	bad.Description = ""
	err := bad.Validate()
	var list ValidationErrors
	if !errors.As(err, &list) || len(list) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{CategoryName: "Lazer", Amount: decimal.NewFromInt(500), Month: 3, Year: 2024}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.Month = 13
	if err := b.Validate(); err == nil {
		t.Fatalf("expected error for month 13")
	}
	b.Month = 3
	b.Year = 1999
	if err := b.Validate(); err == nil {
		t.Fatalf("expected error for year 1999")
	}
}

func TestIsPendingExpense(t *testing.T) {
	tx := Transaction{Type: Expense, Status: StatusPending}
	if !tx.IsPendingExpense() {
		t.Fatal("pending expense not detected")
	}
	tx.Type = Income
	if tx.IsPendingExpense() {
		t.Fatal("pending income counted as debt")
	}
}
