package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qms/guest-queue-service/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DB_DSN", "TIMEZONE", "AUTO_MIGRATE", "RATE_LIMIT_PER_MIN", "RECONCILE_INTERVAL_SECONDS", "STATS_CACHE_TTL_SECONDS", "ALL_DEPARTMENT_VIEWERS", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Empty(t, cfg.Departments)
	prefix, err := store.NewDepartments(cfg.Departments).Prefix("Admissions")
	require.NoError(t, err)
	assert.Equal(t, "AD", prefix, "empty table falls back to the built-in departments")
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, time.Local, cfg.Location)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.CanViewAllDepartments("it"))
	assert.False(t, cfg.CanViewAllDepartments("Registrar"))
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "queue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  timezone: UTC
  rate_limit_per_min: 60
  trusted_proxies: ["10.0.0.0/8"]
database:
  dsn: postgres://file/queue
  auto_migrate: false
queue:
  departments:
    Guidance: GD
    Admissions: AD
  reconcile_interval_seconds: 30
cache:
  stats_ttl_seconds: 120
`), 0o600))

	t.Setenv("DB_DSN", "postgres://env/queue")
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "0")
	t.Setenv("ALL_DEPARTMENT_VIEWERS", "IT, Registrar ,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://env/queue", cfg.DatabaseURL)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, map[string]string{"Guidance": "GD", "Admissions": "AD"}, cfg.Departments)
	assert.Zero(t, cfg.ReconcileInterval, "zero from env disables the sweep")
	assert.Equal(t, 2*time.Minute, cfg.StatsCacheTTL)
	assert.Equal(t, []string{"IT", "Registrar"}, cfg.AllDepartmentViewers)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
	}, cfg.TrustedProxies)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("TIMEZONE", "")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/33")
	_, err = Load("")
	assert.Error(t, err)
}
