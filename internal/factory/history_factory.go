package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/llm-email-agent/internal/adapters/history"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// HistoryFactory creates history repositories based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// IsHistoryEnabled returns whether runs are recorded
func (f *HistoryFactory) IsHistoryEnabled() bool {
	return f.cfg.GetHistory().Enabled
}

// CreateHistoryRepository creates a history repository based on the configuration
func (f *HistoryFactory) CreateHistoryRepository() (core.HistoryRepository, error) {
	historyCfg := f.cfg.GetHistory()

	switch historyCfg.Type {
	case "memory":
		return history.NewMemoryHistory(f.logger), nil
	case "sqlite":
		if dir := filepath.Dir(historyCfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return history.NewSQLiteHistory(historyCfg.SQLitePath, f.logger)
	case "mysql":
		return history.NewMySQLHistory(historyCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("%w: unsupported history type: %s", config.ErrConfiguration, historyCfg.Type)
	}
}

// PruneExpired removes entries older than history.retention
func (f *HistoryFactory) PruneExpired(ctx context.Context, repo core.HistoryRepository) error {
	retention := f.cfg.GetHistory().Retention
	if retention <= 0 {
		return nil
	}

	removed, err := repo.Prune(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if removed > 0 {
		f.logger.Info("Pruned history", zap.Int64("removed", removed), zap.Duration("retention", retention))
	}
	return nil
}
