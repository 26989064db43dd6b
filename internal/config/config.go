// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and KAM_ environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Storage drivers understood by the service.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AllowedOrigins lists browser origins permitted by CORS.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// UIDir is a built dashboard to serve at /. Empty disables it.
	UIDir string `koanf:"ui_dir"`

	Storage StorageConfig `koanf:"storage"`
	Persist PersistConfig `koanf:"persist"`
	Auth    AuthConfig    `koanf:"auth"`
	Import  ImportConfig  `koanf:"import"`
}

// StorageConfig selects and configures the durable backend.
type StorageConfig struct {
	Driver      string `koanf:"driver"`
	DataDir     string `koanf:"data_dir"`
	SQLitePath  string `koanf:"sqlite_path"`
	PostgresDSN string `koanf:"postgres_dsn"`
	MaxConns    int32  `koanf:"max_conns"`
}

// PersistConfig sizes the asynchronous persistence pipeline.
type PersistConfig struct {
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
}

// AuthConfig configures login tokens and the bootstrap administrator.
type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AdminEmail    string        `koanf:"admin_email"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`
	AdminName     string        `koanf:"admin_name"`
	LoginRPS      float64       `koanf:"login_rps"`
	LoginBurst    int           `koanf:"login_burst"`
}

// ImportConfig bounds spreadsheet uploads and previews.
type ImportConfig struct {
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
	PreviewTTL     time.Duration `koanf:"preview_ttl"`
	MaxPreviews    int           `koanf:"max_previews"`
	ConfirmedKeep  int           `koanf:"confirmed_keep"`
	RPS            float64       `koanf:"rps"`
	Burst          int           `koanf:"burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		AllowedOrigins: []string{"http://localhost:5173"},
		Storage: StorageConfig{
			Driver:     DriverFile,
			DataDir:    "data",
			SQLitePath: "kam.db",
			MaxConns:   4,
		},
		Persist: PersistConfig{
			QueueSize:   1024,
			WorkerCount: runtime.NumCPU(),
		},
		Auth: AuthConfig{
			TokenTTL:      12 * time.Hour,
			AdminEmail:    "admin@kam.local",
			AdminUsername: "admin",
			AdminName:     "Administrator",
			LoginRPS:      1,
			LoginBurst:    5,
		},
		Import: ImportConfig{
			MaxUploadBytes: 10 << 20,
			PreviewTTL:     15 * time.Minute,
			MaxPreviews:    64,
			ConfirmedKeep:  1024,
			RPS:            2,
			Burst:          4,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Auth.JWTSecret) == "":
		return fmt.Errorf("%w: auth.jwt_secret must be set", ErrInvalidConfig)
	case len(c.Auth.JWTSecret) < 16:
		return fmt.Errorf("%w: auth.jwt_secret must be at least 16 bytes", ErrInvalidConfig)
	case c.Auth.TokenTTL <= 0:
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalidConfig)
	case c.Import.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: import.max_upload_bytes must be positive", ErrInvalidConfig)
	case c.Import.PreviewTTL <= 0:
		return fmt.Errorf("%w: import.preview_ttl must be positive", ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("%w: storage.data_dir required for the file driver", ErrInvalidConfig)
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	return nil
}
