package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "registrar.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadFromDefaultsOnly(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, "/softwareregistry", cfg.HTTP.BasePath)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "pending", cfg.Registrar.Status)
	assert.Equal(t, "30 days", cfg.Registrar.Term)
	assert.Equal(t, "1 year", cfg.Registrar.Fullterm)
	assert.Equal(t, 604800, cfg.Registrar.CacheTime)
	assert.Equal(t, AllActions, cfg.Registrar.Endpoints)
	assert.Equal(t, "registry.lifecycle", cfg.Kafka.Topic)
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	root := writeYAML(t, `
registrar:
  name: Acme Registry
  timezone: America/New_York
  term: 14 days
  options:
    allow_set_status: true
  endpoints: [create, verify]
license:
  tiers:
    - { code: L1, limits: { count: 1 } }
`)
	t.Setenv("REGISTRAR_REGISTRAR__TERM", "7 days")

	cfg, err := LoadFrom(root)
	require.NoError(t, err)

	assert.Equal(t, "Acme Registry", cfg.Registrar.Name)
	assert.Equal(t, "America/New_York", cfg.Registrar.Timezone)
	assert.Equal(t, "7 days", cfg.Registrar.Term, "env wins over YAML")
	assert.True(t, cfg.Registrar.Options.AllowSetStatus)
	assert.Equal(t, []string{"create", "verify"}, cfg.Registrar.Endpoints)
	require.Len(t, cfg.License.Tiers, 1)
	assert.Equal(t, 1, cfg.License.Tiers[0].Limits.Count)
	assert.Equal(t, root, cfg.Paths.Root)
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"timezone": "registrar:\n  timezone: Mars/Olympus\n",
		"interval": "registrar:\n  refresh_time: fortnightly\n",
		"endpoint": "registrar:\n  endpoints: [create, purge]\n",
		"mysql":    "database:\n  driver: mysql\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestParseInterval(t *testing.T) {
	sec, name, ok := ParseInterval("Twice Daily")
	require.True(t, ok)
	assert.Equal(t, 43200, sec)
	assert.Equal(t, "twicedaily", name)

	sec, name, ok = ParseInterval("604800")
	require.True(t, ok)
	assert.Equal(t, 604800, sec)
	assert.Equal(t, "weekly", name)

	_, name, ok = ParseInterval("90")
	require.True(t, ok)
	assert.Equal(t, "other", name)

	_, _, ok = ParseInterval("-5")
	assert.False(t, ok)
}
