package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/ports"
	"fintrack/internal/sheets"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending transactions (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of transactions exported per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of failed attempts before a transaction is
	// marked with a sync error (default: 3)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor sweeps transactions still pending export. It catches rows
// whose sync message was never published or was lost.
type SyncProcessor struct {
	store    ports.SyncStore
	exporter sheets.TransactionExporter
	config   SyncProcessorConfig

	attemptsMu sync.Mutex
	attempts   map[string]int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(store ports.SyncStore, exporter sheets.TransactionExporter, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultSyncProcessorConfig().MaxRetries
	}
	return &SyncProcessor{
		store:    store,
		exporter: exporter,
		config:   config,
		attempts: map[string]int{},
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch exports one batch of pending transactions and returns how
// many were synced.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.store.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load pending sync batch", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	synced := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return synced
		case <-ctx.Done():
			return synced
		default:
		}

		if err := p.syncItem(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		p.forget(item.ID)
		synced++
	}
	return synced
}

func (p *SyncProcessor) syncItem(ctx context.Context, item ports.PendingSync) error {
	tx, err := p.store.GetForSync(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", item.ID, err)
	}

	ref, err := p.exporter.Upsert(ctx, *tx)
	if err != nil {
		return fmt.Errorf("export to sheets: %w", err)
	}

	if err := p.store.MarkSynced(ctx, item.ID); err != nil {
		// The row is exported; the next sweep rewrites it in place.
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"transaction_id", item.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction to Google Sheets",
		"transaction_id", item.ID,
		"sheets_ref", ref)
	return nil
}

// handleFailure counts the attempt and gives up after MaxRetries.
func (p *SyncProcessor) handleFailure(ctx context.Context, item ports.PendingSync, syncErr error) {
	p.attemptsMu.Lock()
	p.attempts[item.ID]++
	attempts := p.attempts[item.ID]
	p.attemptsMu.Unlock()

	slog.WarnContext(ctx, "Sync processing failed",
		"transaction_id", item.ID,
		"attempt", attempts,
		"error", syncErr)

	if attempts < p.config.MaxRetries {
		return
	}
	p.forget(item.ID)
	if err := p.store.MarkSyncError(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark transaction sync error",
			"transaction_id", item.ID, "error", err)
		return
	}
	slog.ErrorContext(ctx, "Transaction sync failed permanently after max retries",
		"transaction_id", item.ID,
		"attempts", attempts)
}

func (p *SyncProcessor) forget(id string) {
	p.attemptsMu.Lock()
	delete(p.attempts, id)
	p.attemptsMu.Unlock()
}

// Attempts returns the failed attempts recorded for a transaction.
func (p *SyncProcessor) Attempts(id string) int {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	return p.attempts[id]
}
