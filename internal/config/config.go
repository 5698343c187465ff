package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds the birdmatch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int  `yaml:"port"`
	ReadTimeoutSec  int  `yaml:"read_timeout_sec"`
	WriteTimeoutSec int  `yaml:"write_timeout_sec"`
	ShutdownSec     int  `yaml:"shutdown_timeout_sec"`
	TrustProxy      bool `yaml:"trust_proxy"`
}

// DatabaseConfig holds species store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DSN              string   `yaml:"dsn"`
	MaxConns         int      `yaml:"max_conns"`
	MinConns         int      `yaml:"min_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider   string      `yaml:"provider"`
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	Model      string      `yaml:"model"`
	Dimensions int         `yaml:"dimensions"`
	TimeoutSec int         `yaml:"timeout_sec"`
	Cache      CacheConfig `yaml:"cache"`
}

// CacheConfig holds embedding cache settings. MemorySize < 0 disables the in-process tier.
type CacheConfig struct {
	Enabled       bool `yaml:"enabled"`
	MemorySize    int  `yaml:"memory_size"`
	MemoryTTLSec  int  `yaml:"memory_ttl_sec"`
	StoreTTLHours int  `yaml:"store_ttl_hours"`
}

// SearchConfig holds product tuning for search.
type SearchConfig struct {
	MinQueryLength    int      `yaml:"min_query_length"`
	MaxQueryLength    int      `yaml:"max_query_length"`
	DefaultLimit      int      `yaml:"default_limit"`
	MinScore          *float64 `yaml:"min_score"` // nil = default; 0 is a valid threshold
	MaxFieldMarks     int      `yaml:"max_field_marks"`
	FieldMarkPatterns []string `yaml:"field_mark_patterns"`
	ParallelThreshold int      `yaml:"parallel_threshold"`
	Workers           int      `yaml:"workers"`
}

// RateLimitConfig holds per-IP rate limits. 0 disables a limiter.
type RateLimitConfig struct {
	RequestsPerMinute       int `yaml:"requests_per_minute"`
	Burst                   int `yaml:"burst"`
	SearchRequestsPerMinute int `yaml:"search_requests_per_minute"`
	SearchBurst             int `yaml:"search_burst"`
}

// AuditConfig holds search audit settings.
type AuditConfig struct {
	Stream       bool   `yaml:"stream"`
	StreamKey    string `yaml:"stream_key"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file next to the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3001
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	vec := domain.DefaultVectorConfig()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vec.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = vec.Dimensions
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}

	def := domain.DefaultSearchConfig()
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = def.MinQueryLength
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = def.MaxQueryLength
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = def.DefaultLimit
	}
	if c.Search.MinScore == nil {
		ms := def.MinScore
		c.Search.MinScore = &ms
	}
	if c.Search.MaxFieldMarks <= 0 {
		c.Search.MaxFieldMarks = def.MaxFieldMarks
	}

	keys := c.Auth.APIKeys[:0]
	for _, k := range c.Auth.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Auth.APIKeys = keys

	if c.Audit.StreamKey == "" {
		c.Audit.StreamKey = domain.KeyPrefix + "audit"
	}
	if c.Audit.StreamMaxLen <= 0 {
		c.Audit.StreamMaxLen = 100_000
	}
}

// SearchDefaults converts the search section into domain settings.
func (c *Config) SearchDefaults() domain.SearchConfig {
	out := domain.SearchConfig{
		MinQueryLength: c.Search.MinQueryLength,
		MaxQueryLength: c.Search.MaxQueryLength,
		DefaultLimit:   c.Search.DefaultLimit,
		MinScore:       domain.DefaultSearchConfig().MinScore,
		MaxFieldMarks:  c.Search.MaxFieldMarks,
	}
	if c.Search.MinScore != nil {
		out.MinScore = *c.Search.MinScore
	}
	return out
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or postgres, got %q", c.Database.Driver)
	}

	if c.Search.MinQueryLength > c.Search.MaxQueryLength {
		return fmt.Errorf("search.min_query_length (%d) exceeds search.max_query_length (%d)",
			c.Search.MinQueryLength, c.Search.MaxQueryLength)
	}
	if c.Search.DefaultLimit > 100 {
		return fmt.Errorf("search.default_limit must be between 1 and 100, got %d", c.Search.DefaultLimit)
	}
	if ms := c.Search.MinScore; ms != nil && (*ms < -1 || *ms > 1) {
		return fmt.Errorf("search.min_score must be between -1 and 1, got %v", *ms)
	}
	if c.Search.Workers < 0 || c.Search.ParallelThreshold < 0 {
		return errors.New("search.workers and search.parallel_threshold must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.SearchRequestsPerMinute < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
