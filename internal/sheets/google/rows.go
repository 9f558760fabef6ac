package google

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Sheet columns: ID, Date, Description, Category, Type, Status, Amount,
// Due date, Payment date, Card, Subscription.
const lastColumn = "K"

var header = []any{"ID", "Date", "Description", "Category", "Type", "Status", "Amount", "Due", "Paid", "Card", "Subscription"}

func transactionRow(tx core.Transaction, loc *time.Location) []any {
	return []any{
		tx.ID,
		formatDate(&tx.CreatedAt, loc),
		tx.Description,
		tx.CategoryName,
		string(tx.Type),
		string(tx.Status),
		core.FormatAmount(tx.Amount),
		formatDate(tx.DueDate, loc),
		formatDate(tx.PaymentDate, loc),
		deref(tx.CreditCardID),
		deref(tx.SubscriptionID),
	}
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format("02/01/2006")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if strings.Contains(base, "%d") {
		return fmt.Sprintf(base, year)
	}
	return fmt.Sprintf("%d %s", year, base)
}

func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.TrimSpace(v) == strings.TrimSpace(target) {
			return i
		}
	}
	return -1
}
