package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Store backend: "redis" or "filesystem"
	StoreBackend string `envconfig:"STORE_BACKEND" default:"redis"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	// Base directory for the filesystem store backend.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	StagingPrefix string `envconfig:"STAGING_PREFIX" default:"requests"`
	ResultPrefix  string `envconfig:"RESULT_PREFIX" default:"results"`

	// Wait phase. The simple deployment waited 30s, the file-based one up
	// to 300s; both are just configuration here.
	WaitTimeoutSeconds int     `envconfig:"WAIT_TIMEOUT_SECONDS" default:"30"`
	PollIntervalMS     int     `envconfig:"POLL_INTERVAL_MS" default:"1000"`
	PollIntervalMaxMS  int     `envconfig:"POLL_INTERVAL_MAX_MS" default:"5000"`
	PollBackoffFactor  float64 `envconfig:"POLL_BACKOFF_FACTOR" default:"1.5"`

	// "delete" removes a result after a successful read, "keep" leaves it
	// redeemable indefinitely.
	ResultRetention string `envconfig:"RESULT_RETENTION" default:"delete"`

	ServerPort      int   `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"10"`
}

func Load() (*Config, error) {
	// Env vars might be set in the shell; a .env file is optional.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "redis", "filesystem":
	default:
		return fmt.Errorf("%w: STORE_BACKEND must be redis or filesystem, got %q", ErrMissingRequired, c.StoreBackend)
	}
	switch c.ResultRetention {
	case "delete", "keep":
	default:
		return fmt.Errorf("%w: RESULT_RETENTION must be delete or keep, got %q", ErrMissingRequired, c.ResultRetention)
	}
	if c.StoreBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("%w: REDIS_ADDR", ErrMissingRequired)
	}
	if c.StoreBackend == "filesystem" && c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR", ErrMissingRequired)
	}
	if c.NSQDHost == "" {
		return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
	}
	if c.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: WAIT_TIMEOUT_SECONDS must be positive", ErrMissingRequired)
	}
	if c.PollIntervalMS <= 0 || c.PollIntervalMaxMS < c.PollIntervalMS {
		return fmt.Errorf("%w: poll interval bounds invalid", ErrMissingRequired)
	}
	if c.PollBackoffFactor < 1 {
		return fmt.Errorf("%w: POLL_BACKOFF_FACTOR must be >= 1", ErrMissingRequired)
	}
	return nil
}

// DeleteOnRead reports whether a result object should be removed from the
// result store after a successful read.
func (c *Config) DeleteOnRead() bool {
	return c.ResultRetention == "delete"
}
