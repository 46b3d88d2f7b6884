// Package config loads and validates the YAML configuration for the agent
// framework. Values support ${ENV_VAR} expansion so credentials and
// endpoints stay out of config files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/valpere/AgentScrapexter/internal/agent"
	"github.com/valpere/AgentScrapexter/internal/browser"
	"github.com/valpere/AgentScrapexter/internal/output"
	"github.com/valpere/AgentScrapexter/internal/region"
)

// Config is the root configuration document.
type Config struct {
	Name string `yaml:"name"`

	Regions    region.Config          `yaml:"region_manager"`
	Agent      agent.Config           `yaml:"agent"`
	LinkFinder agent.LinkFinderConfig `yaml:"link_finder"`
	Browser    *browser.Config        `yaml:"browser,omitempty"`
	Outputs    []output.SinkConfig    `yaml:"outputs,omitempty"`

	Monitoring MonitoringConfig `yaml:"monitoring"`
	LogLevel   string           `yaml:"log_level"`
}

// MonitoringConfig controls the health/metrics HTTP server.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoadFromFile reads and parses a configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration data with environment-variable
// expansion, applies defaults, and validates.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills in missing values so a minimal config file works.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "agentscrapexter"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Monitoring.Address == "" {
		c.Monitoring.Address = ":9090"
	}

	defaults := region.DefaultConfig()
	if len(c.Regions.Regions) == 0 {
		c.Regions.Regions = defaults.Regions
	}
	if c.Regions.DefaultSelection == "" {
		c.Regions.DefaultSelection = defaults.DefaultSelection
	}
	if c.Regions.DefaultRotation == "" {
		c.Regions.DefaultRotation = defaults.DefaultRotation
	}
	if c.Regions.CooldownTime <= 0 {
		c.Regions.CooldownTime = defaults.CooldownTime
	}
	if c.Regions.FailureThreshold <= 0 {
		c.Regions.FailureThreshold = defaults.FailureThreshold
	}
	if c.Regions.RecoveryTime <= 0 {
		c.Regions.RecoveryTime = defaults.RecoveryTime
	}
	if c.Regions.SessionMaxAge <= 0 {
		c.Regions.SessionMaxAge = defaults.SessionMaxAge
	}
	if c.Regions.SessionMaxRequests <= 0 {
		c.Regions.SessionMaxRequests = defaults.SessionMaxRequests
	}
	if c.Regions.SessionQuota <= 0 {
		c.Regions.SessionQuota = defaults.SessionQuota
	}
	if c.Regions.HTTPTimeout <= 0 {
		c.Regions.HTTPTimeout = defaults.HTTPTimeout
	}
	if c.Browser != nil {
		c.Regions.Browser = c.Browser
	}
}

// validSelections and validRotations enumerate the accepted strategy names.
var validSelections = map[region.SelectionStrategy]bool{
	region.SelectRoundRobin:   true,
	region.SelectLoadBalanced: true,
	region.SelectRandom:       true,
	region.SelectIntelligent:  true,
}

var validRotations = map[region.RotationStrategy]bool{
	region.RotateSequential:     true,
	region.RotateWeightedRandom: true,
	region.RotateRandom:         true,
}

var validEvasionLevels = map[string]bool{
	"": true, "basic": true, "standard": true, "advanced": true, "stealth": true,
}

// Validate checks strategy names, locales, and output sink settings.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Regions.Regions))
	for i, spec := range c.Regions.Regions {
		if spec.ID == "" {
			return fmt.Errorf("region %d has no id", i)
		}
		if seen[spec.ID] {
			return fmt.Errorf("duplicate region id %q", spec.ID)
		}
		seen[spec.ID] = true

		if spec.Endpoint != "" {
			u, err := url.Parse(spec.Endpoint)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("region %q has invalid endpoint %q", spec.ID, spec.Endpoint)
			}
		}
		if spec.Locale != "" {
			if _, err := language.Parse(spec.Locale); err != nil {
				return fmt.Errorf("region %q has invalid locale %q: %w", spec.ID, spec.Locale, err)
			}
		}
		if spec.Timezone != "" {
			if _, err := time.LoadLocation(spec.Timezone); err != nil {
				return fmt.Errorf("region %q has invalid timezone %q: %w", spec.ID, spec.Timezone, err)
			}
		}
	}

	if !validSelections[c.Regions.DefaultSelection] {
		return fmt.Errorf("unknown selection strategy %q", c.Regions.DefaultSelection)
	}
	for taskType, s := range c.Regions.Selection {
		if !validSelections[s] {
			return fmt.Errorf("unknown selection strategy %q for task type %q", s, taskType)
		}
	}
	if !validRotations[c.Regions.DefaultRotation] {
		return fmt.Errorf("unknown rotation strategy %q", c.Regions.DefaultRotation)
	}
	for taskType, s := range c.Regions.Rotation {
		if !validRotations[s] {
			return fmt.Errorf("unknown rotation strategy %q for task type %q", s, taskType)
		}
	}

	if !validEvasionLevels[c.LinkFinder.EvasionLevel] {
		return fmt.Errorf("unknown evasion level %q", c.LinkFinder.EvasionLevel)
	}

	for i, sink := range c.Outputs {
		if err := sink.Validate(); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	return nil
}

// Template returns a commented starter configuration.
func Template() string {
	return `# AgentScrapexter configuration
name: example

log_level: info

region_manager:
  regions:
    - id: us-east
      endpoint: http://us-east.proxy.example.com:3128
      locale: en-US
      timezone: America/New_York
    - id: eu-west
      endpoint: http://eu-west.proxy.example.com:3128
      locale: en-GB
      timezone: Europe/London
  default_selection: intelligent
  default_rotation: weighted_random
  selection:
    link_finder: load_balanced
  cooldown_time: 5m
  failure_threshold: 5
  recovery_time: 10m
  session_max_age: 30m
  session_max_requests: 100

agent:
  rate_limit:
    quota: 30
    window: 60s

link_finder:
  evasion_level: standard
  stability_threshold: 8
  max_scroll_attempts: 30
  scroll_wait: 500ms

browser:
  headless: true
  timeout: 30s
  disable_images: true

monitoring:
  enabled: true
  address: ":9090"

outputs:
  - type: json
    path: links.json
  - type: sql
    driver: sqlite3
    dsn: links.db
    table: links
`
}
