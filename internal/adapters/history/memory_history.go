// Package history stores a record of every completed pipeline run.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// MemoryHistory is an in-memory implementation of the HistoryRepository
// interface. Entries live for the process lifetime.
type MemoryHistory struct {
	entries []core.HistoryEntry
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryHistory creates a new in-memory history
func NewMemoryHistory(logger *zap.Logger) *MemoryHistory {
	return &MemoryHistory{logger: logger}
}

// Record stores a copy of entry
func (h *MemoryHistory) Record(_ context.Context, entry *core.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, *entry)
	return nil
}

// Recent returns up to limit entries, newest first
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]*core.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sorted := make([]core.HistoryEntry, len(h.entries))
	copy(sorted, h.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]*core.HistoryEntry, len(sorted))
	for i := range sorted {
		out[i] = &sorted[i]
	}
	return out, nil
}

// Prune removes entries created before the cutoff
func (h *MemoryHistory) Prune(_ context.Context, before time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[:0]
	var removed int64
	for _, e := range h.entries {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	h.entries = kept

	h.logger.Debug("Pruned history entries", zap.Int64("removed", removed))
	return removed, nil
}

// Close is a no-op
func (h *MemoryHistory) Close() error {
	return nil
}
