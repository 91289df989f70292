package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-bound configuration for the service.
type Config struct {
	API      API
	Database Database
	Services Services
	Queue    Queue
}

type API struct {
	Name              string        `default:"pulsetrack_api"`
	Host              string        `default:"0.0.0.0"`
	Port              string        `default:"3080"`
	ReadHeaderTimeout time.Duration `split_words:"true" default:"60s"`
}

type Database struct {
	AnalyticsDbHost string `split_words:"true" default:"localhost"`
	AnalyticsDbPort uint16 `split_words:"true" default:"9000"`
	AnalyticsDbUser string `split_words:"true" default:"default"`
	AnalyticsDbPass string `split_words:"true" default:""`
	AnalyticsDbName string `split_words:"true" default:"analytics"`

	MainDbHost    string `split_words:"true" default:"localhost"`
	MainDbPort    uint16 `split_words:"true" default:"5432"`
	MainDbUser    string `split_words:"true" default:"postgres"`
	MainDbPass    string `split_words:"true" default:"password"`
	MainDbName    string `split_words:"true" default:"pulsetrack"`
	MainDbSslMode string `split_words:"true" default:"disable"`

	MainDbMaxConnectionPool      int           `split_words:"true" default:"4"`
	MainDbMaxIdleConnections     int           `split_words:"true" default:"4"`
	MainDbConnectionsMaxLifeTime time.Duration `split_words:"true" default:"300s"`
}

type Services struct {
	// GeoHost is the base URL of the geolocation oracle, e.g. http://localhost:3002
	GeoHost string `split_words:"true" required:"true"`
}

type Queue struct {
	FlushSize     int           `split_words:"true" default:"15"`
	FlushInterval time.Duration `split_words:"true" default:"10s"`
	IntakeBuffer  int           `split_words:"true" default:"1024"`
}

// New binds the configuration from the environment. Any missing required
// value or malformed duration is returned as an error so main can exit
// non-zero.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("API", &cfg.API); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, err
	}
	if err := envconfig.Process("SRV", &cfg.Services); err != nil {
		return nil, err
	}
	if err := envconfig.Process("QUEUE", &cfg.Queue); err != nil {
		return nil, err
	}

	return &cfg, nil
}
