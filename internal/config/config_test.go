package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "audit:events:session", cfg.Redis.EventChannel)
	assert.Equal(t, "system_admin", cfg.Roles.SystemAdmin)
	assert.Equal(t, "inventory_auditor", cfg.Roles.AuditAuditor)
	assert.Equal(t, "inventory_audit_supervisor", cfg.Roles.AuditSupervisor)
	assert.Equal(t, 300, cfg.RateLimit.MaxCallsPerMinute)
	assert.Equal(t, 600, cfg.RateLimit.BurstSize)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Server.Port)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9100"
database:
  url: postgres://localhost/audit
services:
  inventory_url: http://inventory:8000
roles:
  audit_auditor: custom_auditor
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/audit", cfg.Database.URL)
	assert.Equal(t, "http://inventory:8000", cfg.Services.InventoryURL)
	assert.Equal(t, "custom_auditor", cfg.Roles.AuditAuditor)
	// Untouched sections still get defaults.
	assert.Equal(t, "inventory_audit_supervisor", cfg.Roles.AuditSupervisor)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9100\"\n"), 0o600))

	t.Setenv("PORT", "9200")
	t.Setenv("AUDIT_SUPERVISOR_ROLE", "head_counter")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Server.Port)
	assert.Equal(t, "head_counter", cfg.Roles.AuditSupervisor)
	assert.Equal(t, 10, cfg.RateLimit.MaxCallsPerMinute)
	assert.Equal(t, 20, cfg.RateLimit.BurstSize)
}
