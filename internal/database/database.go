package database

import (
	"database/sql"
	"fmt"

	"veritag/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to PostgreSQL using the pgx stdlib driver. Only used when
// the ledger's durable medium is configured as "postgres".
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema,
	)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
