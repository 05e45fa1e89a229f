// Package config loads the matrixd configuration file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultGraphPath      = "graph.bin"
	DefaultMaxSnapMeters  = 500.0
	DefaultMaxLocations   = 200
	DefaultCacheTTL       = 10 * time.Minute
	DefaultCacheCapacity  = 100_000
	DefaultSpeedKmh       = 40.0
	DefaultDetourFactor   = 1.3
)

// Config is the whole configuration file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Graph  GraphConfig  `yaml:"graph"`
	Matrix MatrixConfig `yaml:"matrix"`
	Oracle OracleConfig `yaml:"oracle"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout defaults to RequestTimeout plus five seconds so a slow
	// matrix build can still write its response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RequestTimeout bounds the work done for one request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxConcurrent is the number of requests served at once; excess requests get 503.
	MaxConcurrent int `yaml:"max_concurrent"`

	// CORSOrigin is sent as Access-Control-Allow-Origin when set.
	CORSOrigin string `yaml:"cors_origin"`
}

// GraphConfig locates the preprocessed road graph. An empty path makes the
// server fall back to straight-line distances.
type GraphConfig struct {
	Path          string  `yaml:"path"`
	MaxSnapMeters float64 `yaml:"max_snap_meters"`
}

// MatrixConfig bounds matrix builds.
type MatrixConfig struct {
	// Workers is the number of oracle calls in flight per addition; 0 means GOMAXPROCS.
	Workers      int `yaml:"workers"`
	MaxLocations int `yaml:"max_locations"`
}

// OracleConfig configures the decorators around the distance oracle.
type OracleConfig struct {
	CacheTTL      time.Duration `yaml:"cache_ttl"` // 0 disables the cache
	CacheCapacity uint64        `yaml:"cache_capacity"`
	RateLimit     float64       `yaml:"rate_limit"` // calls per second, 0 = unlimited
	RateBurst     int           `yaml:"rate_burst"`

	StraightSpeedKmh float64 `yaml:"straight_speed_kmh"`
	DetourFactor     float64 `yaml:"detour_factor"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			ReadTimeout:    DefaultReadTimeout,
			RequestTimeout: DefaultRequestTimeout,
			MaxConcurrent:  runtime.NumCPU() * 2,
		},
		Graph: GraphConfig{
			Path:          DefaultGraphPath,
			MaxSnapMeters: DefaultMaxSnapMeters,
		},
		Matrix: MatrixConfig{
			MaxLocations: DefaultMaxLocations,
		},
		Oracle: OracleConfig{
			CacheTTL:         DefaultCacheTTL,
			CacheCapacity:    DefaultCacheCapacity,
			StraightSpeedKmh: DefaultSpeedKmh,
			DetourFactor:     DefaultDetourFactor,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills in derived values.
func (c *Config) Validate() error {
	s := &c.Server
	if s.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if s.ReadTimeout <= 0 || s.RequestTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = s.RequestTimeout + 5*time.Second
	}
	if s.WriteTimeout < s.RequestTimeout {
		return fmt.Errorf("server.write_timeout %v is shorter than server.request_timeout %v", s.WriteTimeout, s.RequestTimeout)
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("server.max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	if c.Graph.MaxSnapMeters < 0 {
		return fmt.Errorf("graph.max_snap_meters must not be negative")
	}
	if c.Matrix.Workers < 0 {
		return fmt.Errorf("matrix.workers must not be negative")
	}
	if c.Matrix.MaxLocations < 1 {
		return fmt.Errorf("matrix.max_locations must be at least 1, got %d", c.Matrix.MaxLocations)
	}

	o := &c.Oracle
	if o.CacheTTL < 0 || o.RateLimit < 0 || o.RateBurst < 0 {
		return fmt.Errorf("oracle cache_ttl, rate_limit and rate_burst must not be negative")
	}
	if o.StraightSpeedKmh <= 0 || o.DetourFactor < 1 {
		return fmt.Errorf("oracle.straight_speed_kmh must be positive and oracle.detour_factor at least 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q unknown: want text|json", c.Log.Format)
	}
	return nil
}
