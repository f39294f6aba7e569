package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rabbitops/rmqcheck/internal/models"
)

// Default connection settings, applied when the config file omits a key.
const (
	DefaultConfigPath = "/usr/local/etc/rmqcheck.yml"
	DefaultHost       = "localhost"
	DefaultPort       = 15672
	DefaultVHost      = "/"
	DefaultUsername   = "guest"
	DefaultPassword   = "guest"
)

// Environment variables that override the configured credentials. They are
// read before falling back to the config file values.
const (
	EnvUsername = "CHECK_RABBITMQ_QUEUES_USERNAME"
	EnvPassword = "CHECK_RABBITMQ_QUEUES_PASSWORD"
)

// OutputFormat selects how the status line renders reason sequences.
type OutputFormat string

const (
	// OutputLegacy preserves the historical python-list rendering
	// (e.g. foo([150]) and bar(['Wrong queue policy'])) byte-for-byte,
	// for scrapers that parse the line text.
	OutputLegacy OutputFormat = "legacy"

	// OutputPlain renders reasons comma-joined without brackets or quotes,
	// for installations that only read the exit code.
	OutputPlain OutputFormat = "plain"
)

// Config is the full check configuration loaded from one YAML file.
// It must never be committed with real credentials.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	VHost    string `yaml:"vhost"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TimeoutSeconds bounds the single management-API call. Zero means the
	// transport default (no explicit timeout).
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// OutputFormat defaults to OutputLegacy. See the constants for the
	// compatibility trade-off.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Queues maps exact queue names to rules; QueuePrefixes maps name
	// prefixes to fallback rules used when no exact rule matches.
	Queues        map[string]RuleConfig `yaml:"queues"`
	QueuePrefixes map[string]RuleConfig `yaml:"queue_prefixes"`
}

// RuleConfig is the YAML shape of one threshold rule. Warning and Critical
// are pointers so that an absent key is distinguishable from an explicit 0.
type RuleConfig struct {
	Warning  *int           `yaml:"warning"`
	Critical *int           `yaml:"critical"`
	Policy   map[string]any `yaml:"policy"`
}

// BaseURL returns the management API root for the configured broker.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// RuleSet converts the validated configuration into the immutable rule set
// consumed by the evaluator.
func (c *Config) RuleSet() models.RuleSet {
	rs := models.RuleSet{
		Queues:   make(map[string]models.ThresholdRule, len(c.Queues)),
		Prefixes: make(map[string]models.ThresholdRule, len(c.QueuePrefixes)),
	}
	for name, rc := range c.Queues {
		rs.Queues[name] = rc.rule()
	}
	for prefix, rc := range c.QueuePrefixes {
		rs.Prefixes[prefix] = rc.rule()
	}
	return rs
}

func (rc RuleConfig) rule() models.ThresholdRule {
	return models.ThresholdRule{
		Warning:  *rc.Warning,
		Critical: *rc.Critical,
		Policy:   rc.Policy,
	}
}

// applyDefaults fills unset connection settings and resolves the credential
// environment overrides.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.VHost == "" {
		c.VHost = DefaultVHost
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Password == "" {
		c.Password = DefaultPassword
	}
	if env := os.Getenv(EnvUsername); env != "" {
		c.Username = env
	}
	if env := os.Getenv(EnvPassword); env != "" {
		c.Password = env
	}
	if c.OutputFormat == "" {
		c.OutputFormat = OutputLegacy
	}
}

// validate rejects malformed rules and out-of-range settings. It does not
// reject critical < warning (the historical format allows it) but logs it,
// since such a rule can only ever fire its warning threshold.
func (c *Config) validate(logger *slog.Logger) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	switch c.OutputFormat {
	case OutputLegacy, OutputPlain:
	default:
		return fmt.Errorf("unknown output_format %q", c.OutputFormat)
	}
	for name, rc := range c.Queues {
		if err := rc.validate(logger, "queue", name); err != nil {
			return err
		}
	}
	for prefix, rc := range c.QueuePrefixes {
		if err := rc.validate(logger, "queue prefix", prefix); err != nil {
			return err
		}
	}
	return nil
}

func (rc RuleConfig) validate(logger *slog.Logger, kind, key string) error {
	if rc.Warning == nil {
		return fmt.Errorf("%s %q: missing required field 'warning'", kind, key)
	}
	if rc.Critical == nil {
		return fmt.Errorf("%s %q: missing required field 'critical'", kind, key)
	}
	if *rc.Warning < 0 {
		return fmt.Errorf("%s %q: 'warning' must not be negative, got %d", kind, key, *rc.Warning)
	}
	if *rc.Critical < 0 {
		return fmt.Errorf("%s %q: 'critical' must not be negative, got %d", kind, key, *rc.Critical)
	}
	if *rc.Critical < *rc.Warning {
		logger.Warn("critical threshold below warning threshold",
			"kind", kind,
			"key", key,
			"warning", *rc.Warning,
			"critical", *rc.Critical,
		)
	}
	return nil
}
