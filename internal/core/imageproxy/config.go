package imageproxy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Fixed pipeline parameters. These are part of the response contract (the
// immutable Cache-Control header relies on them) and are not configurable.
const (
	// DefaultWidth is the target width used when a request has no usable width.
	DefaultWidth = 1600

	// JPEGQuality is the quality every response is encoded at.
	JPEGQuality = 85

	// CacheTTL is the maximum age of a cached transcode.
	CacheTTL = 24 * time.Hour
)

// Config validation errors
var (
	// ErrInvalidCacheMaxEntries is returned when CacheMaxEntries is not positive
	ErrInvalidCacheMaxEntries = errors.New("CacheMaxEntries must be positive")
	// ErrInvalidFetchTimeout is returned when FetchTimeout is not positive
	ErrInvalidFetchTimeout = errors.New("FetchTimeout must be positive")
	// ErrInvalidMaxSourceSize is returned when MaxSourceSizeMB is not positive
	ErrInvalidMaxSourceSize = errors.New("MaxSourceSizeMB must be positive")
	// ErrInvalidCleanupInterval is returned when CleanupInterval is negative
	ErrInvalidCleanupInterval = errors.New("CleanupInterval cannot be negative")
)

// Config holds the configuration for the image proxy service.
type Config struct {
	// CacheMaxEntries is the maximum number of transcoded images held in memory.
	// The least recently used entry is evicted once the limit is reached.
	CacheMaxEntries int

	// CleanupInterval is how often expired entries are swept from the cache.
	// Set to 0 to disable the sweep (expired entries are still treated as misses).
	CleanupInterval time.Duration

	// FetchTimeout bounds each candidate source request.
	FetchTimeout time.Duration

	// MaxSourceSizeMB is the maximum allowed size for source images in megabytes.
	MaxSourceSizeMB int
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheMaxEntries, c.CacheMaxEntries)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFetchTimeout, c.FetchTimeout)
	}
	if c.MaxSourceSizeMB <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSourceSize, c.MaxSourceSizeMB)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidCleanupInterval, c.CleanupInterval)
	}
	return nil
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		CacheMaxEntries: 200,
		CleanupInterval: 1 * time.Hour,
		FetchTimeout:    15 * time.Second,
		MaxSourceSizeMB: 25,
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - IMAGE_PROXY_CACHE_MAX_ENTRIES: max cached images (default: 200)
//   - IMAGE_PROXY_CLEANUP_INTERVAL_MINUTES: expiry sweep interval in minutes, 0 to disable (default: 60)
//   - IMAGE_PROXY_FETCH_TIMEOUT_SECONDS: per-candidate fetch timeout in seconds (default: 15)
//   - IMAGE_PROXY_MAX_SOURCE_SIZE_MB: max source image size in MB (default: 25)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("IMAGE_PROXY_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxEntries = n
		} else {
			slog.Warn("[IMAGE-PROXY] invalid IMAGE_PROXY_CACHE_MAX_ENTRIES value, using default",
				"value", v,
				"default", cfg.CacheMaxEntries,
				"error", err,
			)
		}
	}

	if v := os.Getenv("IMAGE_PROXY_CLEANUP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CleanupInterval = time.Duration(n) * time.Minute
		} else {
			slog.Warn("[IMAGE-PROXY] invalid IMAGE_PROXY_CLEANUP_INTERVAL_MINUTES value, using default",
				"value", v,
				"default_minutes", int(cfg.CleanupInterval.Minutes()),
				"error", err,
			)
		}
	}

	if v := os.Getenv("IMAGE_PROXY_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[IMAGE-PROXY] invalid IMAGE_PROXY_FETCH_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default_seconds", int(cfg.FetchTimeout.Seconds()),
				"error", err,
			)
		}
	}

	if v := os.Getenv("IMAGE_PROXY_MAX_SOURCE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSourceSizeMB = n
		} else {
			slog.Warn("[IMAGE-PROXY] invalid IMAGE_PROXY_MAX_SOURCE_SIZE_MB value, using default",
				"value", v,
				"default", cfg.MaxSourceSizeMB,
				"error", err,
			)
		}
	}

	return cfg
}
