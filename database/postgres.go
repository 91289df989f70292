package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"pulsetrack/api/config"
)

type DBClient struct {
	DB *sql.DB
}

// NewPostgresDB opens the metadata database (sites, users, API keys).
// The core only owns the handle's lifecycle; all queries against it
// belong to the dashboard tier.
func NewPostgresDB(cfg config.Database) (*DBClient, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.MainDbUser, cfg.MainDbPass, cfg.MainDbHost, cfg.MainDbPort, cfg.MainDbName, cfg.MainDbSslMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening metadata database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MainDbMaxConnectionPool)
	db.SetMaxIdleConns(cfg.MainDbMaxIdleConnections)
	db.SetConnMaxLifetime(cfg.MainDbConnectionsMaxLifeTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to metadata database: %w", err)
	}

	log.Println("Connected to PostgreSQL metadata database")
	return &DBClient{DB: db}, nil
}

func (c *DBClient) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		log.Printf("Error closing metadata database: %v", err)
		return
	}
	log.Println("PostgreSQL connection closed.")
}
