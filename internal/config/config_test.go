package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "REQUEST_TIMEOUT", "CORS_ORIGINS_OFFLINE", "ENABLE_LOCAL_AUTH"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 60*time.Second, c.RequestTimeout)
	assert.True(t, c.EnableLocalAuth)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, c.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("ENABLE_LOCAL_AUTH", "no")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	c := FromEnv()
	assert.Equal(t, ModeOnline, c.Mode)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
	assert.False(t, c.EnableLocalAuth)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins())
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("SEED_FILE", "")
	os.Unsetenv("SEED_FILE")
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte("SEED_FILE=seed.yaml\n"), 0o600))
	c := Load(p)
	assert.Equal(t, "seed.yaml", c.SeedFile)
}
