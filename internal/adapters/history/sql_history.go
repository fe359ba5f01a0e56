package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// sqlHistory holds the queries shared by the SQLite and MySQL stores. Both
// drivers accept ? placeholders.
type sqlHistory struct {
	db     *sql.DB
	logger *zap.Logger
}

// Record stores an entry
func (h *sqlHistory) Record(ctx context.Context, e *core.HistoryEntry) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO delivery_history (id, mode, recipient, subject, provider_id, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Mode), e.To, e.Subject, e.ProviderID, e.OK, e.Error, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (h *sqlHistory) Recent(ctx context.Context, limit int) ([]*core.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, mode, recipient, subject, provider_id, ok, error, created_at
		FROM delivery_history
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*core.HistoryEntry
	for rows.Next() {
		var (
			e    core.HistoryEntry
			mode string
		)
		if err := rows.Scan(&e.ID, &mode, &e.To, &e.Subject, &e.ProviderID, &e.OK, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Mode = core.Action(mode)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// Prune removes entries created before the cutoff
func (h *sqlHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := h.db.ExecContext(ctx, "DELETE FROM delivery_history WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		h.logger.Warn("Failed to get rows affected", zap.Error(err))
		return 0, nil
	}

	h.logger.Debug("Pruned history entries", zap.Int64("removed", removed))
	return removed, nil
}

// Close closes the database
func (h *sqlHistory) Close() error {
	return h.db.Close()
}
