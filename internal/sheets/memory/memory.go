// Package memory is an in-process transaction exporter used when no
// spreadsheet is configured and by worker tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Exporter struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Transaction
}

var _ ports.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: map[string]core.Transaction{}}
}

// Upsert stores the transaction and returns a synthetic row reference.
func (e *Exporter) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[tx.ID]; !ok {
		e.order = append(e.order, tx.ID)
	}
	e.rows[tx.ID] = tx
	return fmt.Sprintf("mem:%d", e.position(tx.ID)), nil
}

func (e *Exporter) Delete(_ context.Context, id string, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[id]; !ok {
		return nil
	}
	delete(e.rows, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the exported transactions in first-write order.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Transaction, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.rows[id])
	}
	return out
}

func (e *Exporter) position(id string) int {
	for i, v := range e.order {
		if v == id {
			return i + 1
		}
	}
	return 0
}
