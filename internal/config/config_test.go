package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads; an empty value counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_URL", "REDIS_ADDR", "GEOCODER", "GEOCODER_BASE_URL",
		"GEOCODER_USER_AGENT", "GEOCODER_MIN_INTERVAL", "GEOCODER_SUGGESTIONS",
		"ROUTER", "ROUTER_BASE_URL", "ROUTER_PROFILE", "ROUTER_WORKERS",
		"CALL_TIMEOUT", "ORS_API_KEY", "FAILURE_POLICY", "SENTINEL",
		"GEOCODE_CACHE_TTL", "HTTP_WRITE_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "empty.yaml"))
	require.NoError(t, os.WriteFile(os.Getenv("CONFIG_PATH"), []byte("{}\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTP.Port)
	require.Equal(t, "nominatim", cfg.Geocoder.Provider)
	require.Equal(t, time.Second, cfg.Geocoder.MinInterval)
	require.Equal(t, "osrm", cfg.Router.Provider)
	require.Equal(t, 4, cfg.Router.Workers)
	require.Equal(t, "fail_fast", cfg.Aggregation.FailurePolicy)
	require.Equal(t, 9999.0, cfg.Aggregation.Sentinel)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: "9090"
geocoder:
  minInterval: 2s
  suggestions: 5
router:
  provider: osrm
  profile: cycling
  workers: 2
aggregation:
  failurePolicy: substitute
  sentinel: 500
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ROUTER_WORKERS", "6")
	t.Setenv("CALL_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.HTTP.Port)
	require.Equal(t, 2*time.Second, cfg.Geocoder.MinInterval)
	require.Equal(t, 5, cfg.Geocoder.Suggestions)
	require.Equal(t, "cycling", cfg.Router.Profile)
	require.Equal(t, 6, cfg.Router.Workers)
	require.Equal(t, 3*time.Second, cfg.Aggregation.CallTimeout)
	require.Equal(t, "substitute", cfg.Aggregation.FailurePolicy)
	require.Equal(t, 500.0, cfg.Aggregation.Sentinel)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "c.yaml"))
	require.NoError(t, os.WriteFile(os.Getenv("CONFIG_PATH"), []byte("{}\n"), 0o600))

	t.Setenv("GEOCODER_MIN_INTERVAL", "200ms")
	_, err := Load()
	require.ErrorContains(t, err, "min interval")

	t.Setenv("GEOCODER_MIN_INTERVAL", "1s")
	t.Setenv("ROUTER", "ors")
	_, err = Load()
	require.ErrorContains(t, err, "ORS_API_KEY")

	t.Setenv("ROUTER", "osrm")
	t.Setenv("ROUTER_WORKERS", "many")
	_, err = Load()
	require.ErrorContains(t, err, "ROUTER_WORKERS")
}

func TestGet(t *testing.T) {
	t.Setenv("COMMUTE_TEST_KEY", "value")
	require.Equal(t, "value", Get("COMMUTE_TEST_KEY", "fallback"))
	require.Equal(t, "fallback", Get("COMMUTE_TEST_MISSING", "fallback"))
}
