package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	StatusPaid    TransactionStatus = "paid"
	StatusPending TransactionStatus = "pending"
)

const (
	FlagVisa            CardFlag = "visa"
	FlagMastercard      CardFlag = "mastercard"
	FlagAmericanExpress CardFlag = "american_express"
	FlagElo             CardFlag = "elo"
	FlagHipercard       CardFlag = "hipercard"
	FlagOther           CardFlag = "other"
)

const (
	CardActive    CardStatus = "active"
	CardBlocked   CardStatus = "blocked"
	CardExpired   CardStatus = "expired"
	CardCancelled CardStatus = "cancelled"
)

const (
	NotificationDueDate             NotificationType = "due_date"
	NotificationBudgetLimit         NotificationType = "budget_limit"
	NotificationPaymentReminder     NotificationType = "payment_reminder"
	NotificationSubscriptionRenewal NotificationType = "subscription_renewal"
	NotificationGeneral             NotificationType = "general"
)

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

const maxDescriptionLen = 200

type (
	Frequency          string
	TransactionType    string
	TransactionStatus  string
	CardFlag           string
	CardStatus         string
	NotificationType   string
	NotificationStatus string

	CreditCard struct {
		ID             string
		OwnerID        string
		Name           string
		Flag           CardFlag
		LastFourDigits string
		Limit          decimal.Decimal
		AvailableLimit decimal.Decimal // cache; recomputed from pending debt
		ClosingDay     int
		DueDay         int
		Status         CardStatus
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Subscription struct {
		ID           string
		OwnerID      string
		Description  string
		Amount       decimal.Decimal
		CategoryID   string
		CategoryName string
		Frequency    Frequency
		DayOfWeek    *int // 0 = Sunday
		DayOfMonth   *int
		Month        *int
		CreditCardID *string
		IsActive     bool
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Transaction struct {
		ID             string
		OwnerID        string
		Amount         decimal.Decimal
		Description    string
		CategoryID     string
		CategoryName   string
		Type           TransactionType
		Status         TransactionStatus
		DueDate        *time.Time
		PaymentDate    *time.Time
		CreditCardID   *string
		SubscriptionID *string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Budget struct {
		ID           string
		OwnerID      string
		CategoryID   string
		CategoryName string
		Amount       decimal.Decimal
		Month        int
		Year         int
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Category struct {
		ID        string
		OwnerID   string
		Name      string
		Icon      string
		IsGlobal  bool // visible to every owner
		CreatedAt time.Time
	}

	Notification struct {
		ID        string
		OwnerID   string
		Title     string
		Message   string
		Type      NotificationType
		Status    NotificationStatus
		RelatedID *string
		CreatedAt time.Time
		ReadAt    *time.Time
	}
)

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool { return t == Expense || t == Income }

func (s TransactionStatus) Valid() bool { return s == StatusPaid || s == StatusPending }

func (f CardFlag) Valid() bool {
	switch f {
	case FlagVisa, FlagMastercard, FlagAmericanExpress, FlagElo, FlagHipercard, FlagOther:
		return true
	}
	return false
}

func (s CardStatus) Valid() bool {
	switch s {
	case CardActive, CardBlocked, CardExpired, CardCancelled:
		return true
	}
	return false
}

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationDueDate, NotificationBudgetLimit, NotificationPaymentReminder,
		NotificationSubscriptionRenewal, NotificationGeneral:
		return true
	}
	return false
}

func validDay(d int) bool { return d >= 1 && d <= 31 }

func validDescription(v ValidationErrors, field, s string) ValidationErrors {
	switch {
	case strings.TrimSpace(s) == "":
		return v.add(field, "must not be empty")
	case len(s) > maxDescriptionLen:
		return v.add(field, "too long (max 200 characters)")
	}
	return v
}

func (c CreditCard) Validate() error {
	var v ValidationErrors
	if strings.TrimSpace(c.Name) == "" {
		v = v.add("name", "must not be empty")
	}
	if !c.Flag.Valid() {
		v = v.add("flag", "unknown card flag")
	}
	if len(c.LastFourDigits) != 4 || strings.Trim(c.LastFourDigits, "0123456789") != "" {
		v = v.add("lastFourDigits", "must be 4 digits")
	}
	if !c.Limit.IsPositive() {
		v = v.add("limit", "must be positive")
	}
	if !validDay(c.ClosingDay) {
		v = v.add("closingDay", "must be between 1 and 31")
	}
	if !validDay(c.DueDay) {
		v = v.add("dueDay", "must be between 1 and 31")
	}
	if !c.Status.Valid() {
		v = v.add("status", "unknown card status")
	}
	return v.Err()
}

// Validate checks that exactly the anchors meaningful for the frequency are set.
func (s Subscription) Validate() error {
	var v ValidationErrors
	v = validDescription(v, "description", s.Description)
	if !s.Amount.IsPositive() {
		v = v.add("amount", "must be positive")
	}
	if strings.TrimSpace(s.CategoryName) == "" && s.CategoryID == "" {
		v = v.add("category", "must not be empty")
	}
	switch s.Frequency {
	case Weekly:
		if s.DayOfWeek == nil || *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			v = v.add("dayOfWeek", "weekly subscriptions need a day of week between 0 and 6")
		}
		if s.DayOfMonth != nil || s.Month != nil {
			v = v.add("dayOfMonth", "weekly subscriptions take only a day of week")
		}
	case Monthly:
		if s.DayOfMonth == nil || !validDay(*s.DayOfMonth) {
			v = v.add("dayOfMonth", "monthly subscriptions need a day of month between 1 and 31")
		}
		if s.DayOfWeek != nil || s.Month != nil {
			v = v.add("dayOfWeek", "monthly subscriptions take only a day of month")
		}
	case Yearly:
		if s.DayOfMonth == nil || !validDay(*s.DayOfMonth) {
			v = v.add("dayOfMonth", "yearly subscriptions need a day of month between 1 and 31")
		}
		if s.Month == nil || *s.Month < 1 || *s.Month > 12 {
			v = v.add("month", "yearly subscriptions need a month between 1 and 12")
		}
		if s.DayOfWeek != nil {
			v = v.add("dayOfWeek", "yearly subscriptions take no day of week")
		}
	default:
		v = v.add("frequency", "must be weekly, monthly or yearly")
	}
	return v.Err()
}

func (t Transaction) Validate() error {
	var v ValidationErrors
	v = validDescription(v, "description", t.Description)
	if !t.Amount.IsPositive() {
		v = v.add("amount", "must be positive")
	}
	if !t.Type.Valid() {
		v = v.add("type", "must be expense or income")
	}
	if !t.Status.Valid() {
		v = v.add("status", "must be paid or pending")
	}
	if strings.TrimSpace(t.CategoryName) == "" && t.CategoryID == "" {
		v = v.add("category", "must not be empty")
	}
	return v.Err()
}

func (b Budget) Validate() error {
	var v ValidationErrors
	if !b.Amount.IsPositive() {
		v = v.add("amount", "must be positive")
	}
	if b.Month < 1 || b.Month > 12 {
		v = v.add("month", "must be between 1 and 12")
	}
	if b.Year < 2000 || b.Year > 2100 {
		v = v.add("year", "must be between 2000 and 2100")
	}
	if b.CategoryID == "" && strings.TrimSpace(b.CategoryName) == "" {
		v = v.add("category", "must not be empty")
	}
	return v.Err()
}

func (n Notification) Validate() error {
	var v ValidationErrors
	if strings.TrimSpace(n.Title) == "" {
		v = v.add("title", "must not be empty")
	}
	if strings.TrimSpace(n.Message) == "" {
		v = v.add("message", "must not be empty")
	}
	if !n.Type.Valid() {
		v = v.add("type", "unknown notification type")
	}
	return v.Err()
}

// IsPendingExpense reports whether the transaction still counts as debt.
func (t Transaction) IsPendingExpense() bool {
	return t.Type == Expense && t.Status == StatusPending
}

// IntPtr and StringPtr help build optional fields.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
