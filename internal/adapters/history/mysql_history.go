package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLHistory is a MySQL implementation of the HistoryRepository interface
type MySQLHistory struct {
	sqlHistory
}

// PrepareDSN returns dsn with parseTime enabled and UTC timestamps, which
// scanning into time.Time requires
func PrepareDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// NewMySQLHistory connects to MySQL and creates the history table
func NewMySQLHistory(dsn string, logger *zap.Logger) (*MySQLHistory, error) {
	prepared, err := PrepareDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS delivery_history (
			id CHAR(36) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL,
			recipient VARCHAR(1024) NOT NULL,
			subject VARCHAR(1024) NOT NULL,
			provider_id VARCHAR(255) NOT NULL,
			ok BOOLEAN NOT NULL,
			error TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_history_created_at (created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLHistory{sqlHistory{db: db, logger: logger}}, nil
}
