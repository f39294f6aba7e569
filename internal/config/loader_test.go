package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabbitops/rmqcheck/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rmqcheck.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
host: rabbit.internal
port: 15673
vhost: prod
username: monitor
password: s3cret
timeout_seconds: 10
output_format: plain
queues:
  Orders_Incoming:
    warning: 100
    critical: 1000
    policy:
      max-length: 500
queue_prefixes:
  local_:
    warning: 10
    critical: 20
`)

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "rabbit.internal", cfg.Host)
	assert.Equal(t, 15673, cfg.Port)
	assert.Equal(t, "prod", cfg.VHost)
	assert.Equal(t, "monitor", cfg.Username)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.Equal(t, OutputPlain, cfg.OutputFormat)
	assert.Equal(t, "http://rabbit.internal:15673", cfg.BaseURL())

	rules := cfg.RuleSet()
	require.Contains(t, rules.Queues, "Orders_Incoming")
	assert.Equal(t, models.ThresholdRule{
		Warning:  100,
		Critical: 1000,
		Policy:   map[string]any{"max-length": 500},
	}, rules.Queues["Orders_Incoming"])
	assert.Equal(t, models.ThresholdRule{Warning: 10, Critical: 20}, rules.Prefixes["local_"])
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "queues: {}\n")

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultVHost, cfg.VHost)
	assert.Equal(t, DefaultUsername, cfg.Username)
	assert.Equal(t, DefaultPassword, cfg.Password)
	assert.Equal(t, OutputLegacy, cfg.OutputFormat)
	assert.Zero(t, cfg.TimeoutSeconds)
}

func TestLoad_EnvCredentialOverrides(t *testing.T) {
	t.Setenv(EnvUsername, "ops")
	t.Setenv(EnvPassword, "hunter2")
	path := writeConfig(t, `
username: monitor
password: s3cret
`)

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"), testLogger())
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "queues: [not: a: map\n")

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigMissing)
}

func TestLoad_RuleMissingWarning(t *testing.T) {
	path := writeConfig(t, `
queues:
  foo:
    critical: 1000
`)

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warning")
}

func TestLoad_RuleMissingCritical(t *testing.T) {
	path := writeConfig(t, `
queue_prefixes:
  local_:
    warning: 100
`)

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical")
}

func TestLoad_NegativeThreshold(t *testing.T) {
	path := writeConfig(t, `
queues:
  foo:
    warning: -1
    critical: 1000
`)

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestLoad_ZeroThresholdsAreValid(t *testing.T) {
	// 0 is a legitimate "any backlog is a problem" threshold and must be
	// distinguishable from an absent key.
	path := writeConfig(t, `
queues:
  foo:
    warning: 0
    critical: 0
`)

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, models.ThresholdRule{}, cfg.RuleSet().Queues["foo"])
}

func TestLoad_CriticalBelowWarningIsAccepted(t *testing.T) {
	path := writeConfig(t, `
queues:
  foo:
    warning: 1000
    critical: 100
`)

	_, err := Load(path, testLogger())
	assert.NoError(t, err)
}

func TestLoad_UnknownOutputFormat(t *testing.T) {
	path := writeConfig(t, "output_format: xml\n")

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_format")
}

func TestLoad_CaseSensitiveRuleKeys(t *testing.T) {
	path := writeConfig(t, `
queues:
  Foo:
    warning: 1
    critical: 2
  foo:
    warning: 3
    critical: 4
`)

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	rules := cfg.RuleSet()
	assert.Equal(t, 1, rules.Queues["Foo"].Warning)
	assert.Equal(t, 3, rules.Queues["foo"].Warning)
}
