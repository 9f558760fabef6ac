package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors transactions into an external sheet. Upsert
	// is keyed by transaction ID so redelivered messages do not duplicate rows.
	TransactionExporter interface {
		Upsert(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		Delete(ctx context.Context, id string, year int) error
	}
)
