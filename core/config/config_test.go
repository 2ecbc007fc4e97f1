package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-analytics/strata/core/config"
	apperrors "github.com/strata-analytics/strata/core/shared/errors"
)

const validYAML = `
adapters:
  dwh:
    driver: oracle
    host: dwh.example.com
    port: 1521
    service: DWH
    user: analyst
    pass: "{{ env.DWH_PASS }}"
cache:
  backend: memory
  ttl: 30m
  max_bytes: 1048576
log:
  level: debug
  tags: "cli,query"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	t.Setenv("DWH_PASS", "s3cret")
	path := writeConfig(t, "strata.yaml", validYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	name, adapter, err := cfg.Adapter("")
	require.NoError(t, err)
	assert.Equal(t, "dwh", name)
	assert.Equal(t, "oracle", adapter.Driver)
	assert.Equal(t, "s3cret", adapter.Pass, "env placeholder substituted")

	assert.Equal(t, 30*time.Minute, cfg.Cache.TTLOrDefault())
	assert.Equal(t, "debug", cfg.Log.Level)

	params := cfg.AdapterParams()
	require.Contains(t, params, "dwh")
	assert.Equal(t, 1521, params["dwh"].Port)
}

func TestLoadMissingEnvVar(t *testing.T) {
	path := writeConfig(t, "strata.yaml", `
adapters:
  dwh:
    driver: postgres
    host: localhost
    port: 5432
    service: analytics
    pass: "{{ env.STRATA_TEST_UNSET_VAR }}"
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Contains(t, err.Error(), "STRATA_TEST_UNSET_VAR")
}

func TestLoadDefaultAndFallbackNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".strata.yaml"), []byte(`
adapters:
  local:
    driver: mysql
    host: localhost
    port: 3306
    service: test
`), 0o644))
	t.Chdir(dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	_, adapter, err := cfg.Adapter("local")
	require.NoError(t, err)
	assert.Equal(t, "mysql", adapter.Driver)
}

func TestLoadExplicitPathRetriesBaseName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(`
adapters:
  local:
    driver: postgres
    dsn: "postgres://localhost/analytics"
    host: localhost
    port: 5432
    service: analytics
`), 0o644))
	t.Chdir(dir)

	// The directory part is stale; the base name resolves in the cwd.
	cfg, err := config.Load(filepath.Join("no", "such", "dir", "custom.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Adapters, 1)
}

func TestLoadNotFound(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := config.Load("")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = config.Load("nowhere.yaml")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", `
adapters:
  dwh:
    driver: sqlite
    host: localhost
    port: 1521
    service: DWH
`},
		{"missing connection details", `
adapters:
  dwh:
    driver: oracle
`},
		{"no adapters", `
cache:
  backend: memory
`},
		{"bad cache backend", `
adapters:
  dwh:
    driver: oracle
    host: localhost
    port: 1521
    service: DWH
cache:
  backend: memcached
`},
		{"redis backend without url", `
adapters:
  dwh:
    driver: oracle
    host: localhost
    port: 1521
    service: DWH
cache:
  backend: redis
`},
		{"bad ttl", `
adapters:
  dwh:
    driver: oracle
    host: localhost
    port: 1521
    service: DWH
cache:
  ttl: soon
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "strata.yaml", tt.yaml)
			_, err := config.Load(path)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}
}

func TestAdapterSelection(t *testing.T) {
	path := writeConfig(t, "strata.yaml", `
adapters:
  dwh:
    driver: oracle
    host: dwh.example.com
    port: 1521
    service: DWH
  reporting:
    driver: postgres
    host: rpt.example.com
    port: 5432
    service: reporting
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	_, _, err = cfg.Adapter("")
	require.Error(t, err, "ambiguous with two adapters")

	name, adapter, err := cfg.Adapter("reporting")
	require.NoError(t, err)
	assert.Equal(t, "reporting", name)
	assert.Equal(t, "postgres", adapter.Driver)

	_, _, err = cfg.Adapter("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
