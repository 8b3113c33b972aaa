package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"RETAIL_SESSION_HASH_KEY": "0123456789abcdef0123456789abcdef",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)
	require.Equal(t, StoreFile, cfg.Session.Store)
	require.NotEmpty(t, cfg.Session.FilePath)
	require.Equal(t, "retail-console:", cfg.Session.RedisPrefix)
	require.Equal(t, "127.0.0.1:8090", cfg.Server.Address)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, 5, cfg.Dashboard.LowStockLimit)
	require.Equal(t, 5, cfg.Dashboard.TopSpenderLimit)
	require.Equal(t, 50, cfg.Orders.PageSize)
	require.Equal(t, "₺", cfg.Display.CurrencySymbol)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"RETAIL_API_BASE_URL":              "https://shop.example.com/api/",
		"RETAIL_API_TIMEOUT":               "3s",
		"RETAIL_SESSION_STORE":             "REDIS",
		"RETAIL_SESSION_REDIS_ADDR":        "127.0.0.1:6379",
		"RETAIL_SESSION_REDIS_DB":          "2",
		"RETAIL_SERVER_ADDR":               ":9000",
		"RETAIL_DASHBOARD_LOW_STOCK_LIMIT": "8",
		"RETAIL_ORDERS_PAGE_SIZE":          "25",
		"LOG_LEVEL":                        "DEBUG",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, StoreRedis, cfg.Session.Store)
	require.Equal(t, "127.0.0.1:6379", cfg.Session.RedisAddr)
	require.Equal(t, 2, cfg.Session.RedisDB)
	require.Equal(t, ":9000", cfg.Server.Address)
	require.Equal(t, 8, cfg.Dashboard.LowStockLimit)
	require.Equal(t, 25, cfg.Orders.PageSize)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"RETAIL_SESSION_STORE":    "memory",
		"RETAIL_API_TIMEOUT":      "soon",
		"RETAIL_ORDERS_PAGE_SIZE": "many",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)
	require.Equal(t, 50, cfg.Orders.PageSize)
}

func TestLoadValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		env    map[string]string
		fields []string
	}{
		{
			name:   "file store requires hash key",
			env:    map[string]string{},
			fields: []string{"Session.HashKey"},
		},
		{
			name: "redis store requires address",
			env: map[string]string{
				"RETAIL_SESSION_STORE": "redis",
			},
			fields: []string{"Session.RedisAddr"},
		},
		{
			name: "unknown store and bad url",
			env: map[string]string{
				"RETAIL_SESSION_STORE": "cookie",
				"RETAIL_API_BASE_URL":  "not a url",
			},
			fields: []string{"API.BaseURL", "Session.Store"},
		},
		{
			name: "block key length",
			env: map[string]string{
				"RETAIL_SESSION_HASH_KEY":  "hash",
				"RETAIL_SESSION_BLOCK_KEY": "short",
			},
			fields: []string{"Session.BlockKey"},
		},
		{
			name: "non positive limits",
			env: map[string]string{
				"RETAIL_SESSION_STORE":             "memory",
				"RETAIL_DASHBOARD_LOW_STOCK_LIMIT": "0",
				"RETAIL_ORDERS_PAGE_SIZE":          "-1",
			},
			fields: []string{"Dashboard.LowStockLimit", "Orders.PageSize"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(context.Background(), WithEnvMap(tc.env), WithoutSystemEnv(), WithEnvFile(""))
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			require.Equal(t, tc.fields, vErr.Fields())
		})
	}
}

func TestLoadLayering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "console.yaml")
	yamlBody := []byte(`api:
  baseURL: http://yaml.example/api
  timeout: 4s
session:
  store: memory
server:
  address: 127.0.0.1:7000
orders:
  pageSize: "30"
logging:
  level: warn
`)
	require.NoError(t, os.WriteFile(yamlPath, yamlBody, 0o600))

	envPath := filepath.Join(dir, ".env")
	envBody := []byte("# local overrides\nexport RETAIL_SERVER_ADDR=\"127.0.0.1:7100\"\nRETAIL_ORDERS_PAGE_SIZE=40\n")
	require.NoError(t, os.WriteFile(envPath, envBody, 0o600))

	env := map[string]string{
		"RETAIL_ORDERS_PAGE_SIZE": "45",
	}

	cfg, err := Load(context.Background(),
		WithConfigFile(yamlPath),
		WithEnvFile(envPath),
		WithEnvMap(env),
		WithoutSystemEnv(),
	)
	require.NoError(t, err)

	require.Equal(t, "http://yaml.example/api", cfg.API.BaseURL)
	require.Equal(t, 4*time.Second, cfg.API.Timeout)
	require.Equal(t, StoreMemory, cfg.Session.Store)
	require.Equal(t, "127.0.0.1:7100", cfg.Server.Address)
	require.Equal(t, 45, cfg.Orders.PageSize)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  store: memory\ndashboard:\n  lowStockLimit: \"3\"\n"), 0o600))

	cfg, err := Load(context.Background(),
		WithEnvMap(map[string]string{"RETAIL_CONFIG_FILE": path}),
		WithoutSystemEnv(),
		WithEnvFile(""),
	)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Dashboard.LowStockLimit)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(),
		WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")),
		WithoutSystemEnv(),
		WithEnvFile(""),
	)
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
