package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"pulsetrack/api/config"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

// NewClickHouseDB opens the native-protocol connection to the columnar
// store and verifies it with a ping. The connection is shared by the
// writer and the aggregate reader; the driver is safe for concurrent use.
func NewClickHouseDB(cfg config.Database) (*ClickHouseClient, error) {
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.AnalyticsDbHost, cfg.AnalyticsDbPort)},
		Auth: clickhouse.Auth{
			Database: cfg.AnalyticsDbName,
			Username: cfg.AnalyticsDbUser,
			Password: cfg.AnalyticsDbPass,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "pulsetrack-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Println("Connected to ClickHouse analytics database")
	return &ClickHouseClient{Conn: conn}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		log.Println("ClickHouse connection closed.")
	}
}
