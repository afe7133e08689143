package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	t.Run("set variables override, absent keep", func(t *testing.T) {
		cfg := defaultConfig()
		parseEnv(cfg, envconfig.MapLookuper(map[string]string{
			"DIAGNEXUS_DATABASE_DSN":            "postgres://env",
			"DIAGNEXUS_TOKEN_VALIDITY_DURATION": "30m",
			"DIAGNEXUS_S3_USE_SSE":              "true",
			"DIAGNEXUS_DB_MAX_OPEN_CONNS":       "7",
			"DATABASE_DSN":                      "unprefixed is ignored",
		}))

		assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
		assert.Equal(t, 30*time.Minute, cfg.TokenValidityDuration)
		assert.True(t, cfg.S3UseSSE)
		assert.Equal(t, 7, cfg.DBMaxOpenConns)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.True(t, cfg.SeedDemoData)
	})

	t.Run("bad value panics", func(t *testing.T) {
		cfg := defaultConfig()
		require.Panics(t, func() {
			parseEnv(cfg, envconfig.MapLookuper(map[string]string{"DIAGNEXUS_DB_MAX_OPEN_CONNS": "many"}))
		})
	})

	t.Run("dotenv file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("DIAGNEXUS_LOG_LEVEL=debug\n"), 0o600))
		t.Setenv("DIAGNEXUS_LOG_LEVEL", "")
		require.NoError(t, os.Unsetenv("DIAGNEXUS_LOG_LEVEL"))

		os.Args = []string{"testbin", "-env-file", path}

		cfg := defaultConfig()
		parseEnv(cfg, nil)

		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("missing dotenv file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env-file", filepath.Join(t.TempDir(), "absent.env")}
		require.Panics(t, func() { parseEnv(defaultConfig(), nil) })
	})
}
