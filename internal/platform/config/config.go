package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile             = ".env"
	defaultAPIBaseURL          = "http://localhost:8000/api"
	defaultAPITimeout          = 10 * time.Second
	defaultSessionStore        = StoreFile
	defaultSessionFile         = ".retail-console/session"
	defaultSessionRedisPrefix  = "retail-console:"
	defaultServerAddress       = "127.0.0.1:8090"
	defaultServerReadTimeout   = 15 * time.Second
	defaultServerWriteTimeout  = 30 * time.Second
	defaultServerIdleTimeout   = 120 * time.Second
	defaultDashboardLowStock   = 5
	defaultDashboardTopSpender = 5
	defaultOrdersPageSize      = 50
	defaultLogLevel            = "info"
	defaultCurrencySymbol      = "₺"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	Server    ServerConfig
	Dashboard DashboardConfig
	Orders    OrdersConfig
	Display   DisplayConfig
	Logging   LoggingConfig
}

// APIConfig points the client at the remote retail API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects and configures the durable session store.
type SessionConfig struct {
	Store       string
	FilePath    string
	HashKey     string
	BlockKey    string
	MaxAge      time.Duration
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// ServerConfig configures the loopback console server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DashboardConfig tunes the dashboard feeds.
type DashboardConfig struct {
	LowStockLimit   int
	TopSpenderLimit int
}

// OrdersConfig tunes the orders listing.
type OrdersConfig struct {
	PageSize int
}

// DisplayConfig controls how amounts are rendered.
type DisplayConfig struct {
	CurrencySymbol string
	Language       string
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithConfigFile sets a YAML file providing the lowest-precedence values.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, an optional YAML file, .env overrides,
// environment variables and explicit maps, in increasing order of precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	configFile := options.configFile
	if configFile == "" {
		if v, ok := options.envMap["RETAIL_CONFIG_FILE"]; ok {
			configFile = v
		} else if options.useSystemEnv {
			configFile = os.Getenv("RETAIL_CONFIG_FILE")
		}
	}
	fileValues, err := loadYAML(configFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		if value, ok := fileValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, "RETAIL_API_BASE_URL", defaultAPIBaseURL), "/"),
			Timeout: durationWithDefault(lookup, "RETAIL_API_TIMEOUT", defaultAPITimeout),
		},
		Session: SessionConfig{
			Store:       strings.ToLower(stringWithDefault(lookup, "RETAIL_SESSION_STORE", defaultSessionStore)),
			FilePath:    stringWithDefault(lookup, "RETAIL_SESSION_FILE", defaultSessionPath()),
			HashKey:     stringWithDefault(lookup, "RETAIL_SESSION_HASH_KEY", ""),
			BlockKey:    stringWithDefault(lookup, "RETAIL_SESSION_BLOCK_KEY", ""),
			MaxAge:      durationWithDefault(lookup, "RETAIL_SESSION_MAX_AGE", 0),
			RedisAddr:   stringWithDefault(lookup, "RETAIL_SESSION_REDIS_ADDR", ""),
			RedisDB:     intWithDefault(lookup, "RETAIL_SESSION_REDIS_DB", 0),
			RedisPrefix: stringWithDefault(lookup, "RETAIL_SESSION_REDIS_PREFIX", defaultSessionRedisPrefix),
		},
		Server: ServerConfig{
			Address:      stringWithDefault(lookup, "RETAIL_SERVER_ADDR", defaultServerAddress),
			ReadTimeout:  durationWithDefault(lookup, "RETAIL_SERVER_READ_TIMEOUT", defaultServerReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "RETAIL_SERVER_WRITE_TIMEOUT", defaultServerWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "RETAIL_SERVER_IDLE_TIMEOUT", defaultServerIdleTimeout),
		},
		Dashboard: DashboardConfig{
			LowStockLimit:   intWithDefault(lookup, "RETAIL_DASHBOARD_LOW_STOCK_LIMIT", defaultDashboardLowStock),
			TopSpenderLimit: intWithDefault(lookup, "RETAIL_DASHBOARD_TOP_SPENDERS", defaultDashboardTopSpender),
		},
		Orders: OrdersConfig{
			PageSize: intWithDefault(lookup, "RETAIL_ORDERS_PAGE_SIZE", defaultOrdersPageSize),
		},
		Display: DisplayConfig{
			CurrencySymbol: stringWithDefault(lookup, "RETAIL_CURRENCY_SYMBOL", defaultCurrencySymbol),
			Language:       stringWithDefault(lookup, "RETAIL_LANGUAGE", "en"),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if parsed, err := url.Parse(cfg.API.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		missing = append(missing, "API.BaseURL")
	}
	if cfg.API.Timeout <= 0 {
		missing = append(missing, "API.Timeout")
	}

	switch cfg.Session.Store {
	case StoreFile:
		if strings.TrimSpace(cfg.Session.FilePath) == "" {
			missing = append(missing, "Session.FilePath")
		}
		if strings.TrimSpace(cfg.Session.HashKey) == "" {
			missing = append(missing, "Session.HashKey")
		}
		if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
			missing = append(missing, "Session.BlockKey")
		}
	case StoreRedis:
		if strings.TrimSpace(cfg.Session.RedisAddr) == "" {
			missing = append(missing, "Session.RedisAddr")
		}
	case StoreMemory:
	default:
		missing = append(missing, "Session.Store")
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		missing = append(missing, "Server.Address")
	}
	if cfg.Dashboard.LowStockLimit <= 0 {
		missing = append(missing, "Dashboard.LowStockLimit")
	}
	if cfg.Dashboard.TopSpenderLimit <= 0 {
		missing = append(missing, "Dashboard.TopSpenderLimit")
	}
	if cfg.Orders.PageSize <= 0 {
		missing = append(missing, "Orders.PageSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return defaultSessionFile
	}
	return filepath.Join(dir, "retail-console", "session")
}

// fileConfig mirrors the YAML layout accepted by WithConfigFile.
type fileConfig struct {
	API struct {
		BaseURL string `yaml:"baseURL"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Session struct {
		Store       string `yaml:"store"`
		File        string `yaml:"file"`
		HashKey     string `yaml:"hashKey"`
		BlockKey    string `yaml:"blockKey"`
		MaxAge      string `yaml:"maxAge"`
		RedisAddr   string `yaml:"redisAddr"`
		RedisDB     string `yaml:"redisDB"`
		RedisPrefix string `yaml:"redisPrefix"`
	} `yaml:"session"`
	Server struct {
		Address      string `yaml:"address"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
		IdleTimeout  string `yaml:"idleTimeout"`
	} `yaml:"server"`
	Dashboard struct {
		LowStockLimit   string `yaml:"lowStockLimit"`
		TopSpenderLimit string `yaml:"topSpenderLimit"`
	} `yaml:"dashboard"`
	Orders struct {
		PageSize string `yaml:"pageSize"`
	} `yaml:"orders"`
	Display struct {
		CurrencySymbol string `yaml:"currencySymbol"`
		Language       string `yaml:"language"`
	} `yaml:"display"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func (f fileConfig) values() map[string]string {
	pairs := map[string]string{
		"RETAIL_API_BASE_URL":              f.API.BaseURL,
		"RETAIL_API_TIMEOUT":               f.API.Timeout,
		"RETAIL_SESSION_STORE":             f.Session.Store,
		"RETAIL_SESSION_FILE":              f.Session.File,
		"RETAIL_SESSION_HASH_KEY":          f.Session.HashKey,
		"RETAIL_SESSION_BLOCK_KEY":         f.Session.BlockKey,
		"RETAIL_SESSION_MAX_AGE":           f.Session.MaxAge,
		"RETAIL_SESSION_REDIS_ADDR":        f.Session.RedisAddr,
		"RETAIL_SESSION_REDIS_DB":          f.Session.RedisDB,
		"RETAIL_SESSION_REDIS_PREFIX":      f.Session.RedisPrefix,
		"RETAIL_SERVER_ADDR":               f.Server.Address,
		"RETAIL_SERVER_READ_TIMEOUT":       f.Server.ReadTimeout,
		"RETAIL_SERVER_WRITE_TIMEOUT":      f.Server.WriteTimeout,
		"RETAIL_SERVER_IDLE_TIMEOUT":       f.Server.IdleTimeout,
		"RETAIL_DASHBOARD_LOW_STOCK_LIMIT": f.Dashboard.LowStockLimit,
		"RETAIL_DASHBOARD_TOP_SPENDERS":    f.Dashboard.TopSpenderLimit,
		"RETAIL_ORDERS_PAGE_SIZE":          f.Orders.PageSize,
		"RETAIL_CURRENCY_SYMBOL":           f.Display.CurrencySymbol,
		"RETAIL_LANGUAGE":                  f.Display.Language,
		"LOG_LEVEL":                        f.Logging.Level,
	}
	out := make(map[string]string, len(pairs))
	for key, value := range pairs {
		if strings.TrimSpace(value) != "" {
			out[key] = strings.TrimSpace(value)
		}
	}
	return out
}

func loadYAML(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	var parsed fileConfig
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return parsed.values(), nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
