package bgio

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultCapacity is the ring size used when no capacity is configured.
	DefaultCapacity = 4096
	// DefaultBatchSize is the backlog above which a Writer drains without
	// waiting for Flush.
	DefaultBatchSize = 1024
)

// Config configures a Reader or Writer.
type Config struct {
	Capacity  int          // ring size in bytes (default 4096)
	BatchSize int          // Writer only: drain trigger threshold in bytes (default 1024)
	Logger    *slog.Logger // background loop diagnostics (default discards)
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:  DefaultCapacity,
		BatchSize: DefaultBatchSize,
	}
}

// Validate validates the engine configuration.
func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("%w: Capacity must be >= 1, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: BatchSize must be >= 0, got %d", ErrInvalidConfig, c.BatchSize)
	}
	return nil
}

// Option adjusts a Config.
type Option func(*Config)

// WithCapacity sets the ring size.
func WithCapacity(n int) Option {
	return func(c *Config) { c.Capacity = n }
}

// WithBatchSize sets the Writer drain threshold.
func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

// WithLogger sets the logger used by the background goroutine.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

func buildConfig(opts []Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg, cfg.Validate()
}
