package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// allConfigKeys lists every DEVISIBLE_ env var that Load() reads.
var allConfigKeys = []string{
	"DEVISIBLE_LISTEN_ADDR",
	"DEVISIBLE_DB_PATH",
	"DEVISIBLE_BACKEND_URL",
	"DEVISIBLE_SECRET_KEY",
	"DEVISIBLE_SECURE_COOKIES",
	"DEVISIBLE_BACKEND_TIMEOUT",
	"DEVISIBLE_BACKEND_RETRIES",
	"DEVISIBLE_SESSION_TTL",
	"DEVISIBLE_SWEEP_INTERVAL",
	"DEVISIBLE_LOGIN_RATE_PER_MINUTE",
	"DEVISIBLE_LOGIN_BURST",
	"DEVISIBLE_LOG_FORMAT",
	"DEVISIBLE_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all DEVISIBLE_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "devisible.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 3, cfg.BackendRetries)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SecureCookies)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)
	t.Setenv("DEVISIBLE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("DEVISIBLE_DB_PATH", "/tmp/test.db")
	t.Setenv("DEVISIBLE_BACKEND_URL", "https://api.devisible.example/")
	t.Setenv("DEVISIBLE_SESSION_TTL", "2h")
	t.Setenv("DEVISIBLE_SECURE_COOKIES", "true")
	t.Setenv("DEVISIBLE_LOG_FORMAT", "JSON")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "https://api.devisible.example", cfg.BackendURL)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "devisible.yaml")
	content := `
listen_addr: 127.0.0.1:7000
backend_url: http://backend:3000
sweep_interval: 1m
secret_key: ` + testSecret + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DEVISIBLE_LISTEN_ADDR", "127.0.0.1:7001")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7001", cfg.ListenAddr, "env overrides file")
	assert.Equal(t, "http://backend:3000", cfg.BackendURL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"DEVISIBLE_SESSION_TTL", "DEVISIBLE_SWEEP_INTERVAL", "DEVISIBLE_BACKEND_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)
			t.Setenv(key, "not-a-duration")

			cfg, err := Load("")

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_NonPositiveDuration(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)
	t.Setenv("DEVISIBLE_SESSION_TTL", "0s")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVISIBLE_SESSION_TTL")
}

func TestLoad_SecretKey(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "absent", value: ""},
		{name: "too short", value: "deadbeef"},
		// 64 chars but not valid hex
		{name: "not hex", value: "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			if tt.value != "" {
				t.Setenv("DEVISIBLE_SECRET_KEY", tt.value)
			}

			cfg, err := Load("")

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "DEVISIBLE_SECRET_KEY")
		})
	}
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	for _, raw := range []string{"localhost:3000", "ftp://backend", "http://"} {
		t.Run(raw, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)
			t.Setenv("DEVISIBLE_BACKEND_URL", raw)

			_, err := Load("")

			require.Error(t, err)
			assert.Contains(t, err.Error(), "DEVISIBLE_BACKEND_URL")
		})
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DEVISIBLE_SECRET_KEY", testSecret)
	t.Setenv("DEVISIBLE_LOG_FORMAT", "xml")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVISIBLE_LOG_FORMAT")
}

func TestListenAddr(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		isolateConfigEnv(t)

		addr, err := ListenAddr("")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", addr)
	})

	t.Run("env without secret key", func(t *testing.T) {
		isolateConfigEnv(t)
		t.Setenv("DEVISIBLE_LISTEN_ADDR", "0.0.0.0:9090")

		addr, err := ListenAddr("")
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9090", addr)
	})

	t.Run("config file", func(t *testing.T) {
		isolateConfigEnv(t)
		path := filepath.Join(t.TempDir(), "devisible.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen_addr: \"10.0.0.5:7000\"\n"), 0o600))

		addr, err := ListenAddr(path)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5:7000", addr)
	})

	t.Run("missing config file", func(t *testing.T) {
		isolateConfigEnv(t)

		_, err := ListenAddr(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
