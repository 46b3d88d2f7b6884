// internal/region/types.go
package region

import (
	"time"

	"github.com/valpere/AgentScrapexter/internal/browser"
)

// SelectionStrategy decides which region a new task is placed on.
type SelectionStrategy string

const (
	SelectRoundRobin   SelectionStrategy = "round_robin"
	SelectLoadBalanced SelectionStrategy = "load_balanced"
	SelectRandom       SelectionStrategy = "random"
	SelectIntelligent  SelectionStrategy = "intelligent"
)

// RotationStrategy decides where a task moves after a failure. Rotation
// deliberately uses different policies than initial selection so retry
// traffic does not repeat the selection pattern.
type RotationStrategy string

const (
	RotateSequential     RotationStrategy = "sequential"
	RotateWeightedRandom RotationStrategy = "weighted_random"
	RotateRandom         RotationStrategy = "random"
)

// Spec describes one regional execution pool.
type Spec struct {
	ID       string            `yaml:"id" json:"id"`
	Endpoint string            `yaml:"endpoint" json:"endpoint"`
	Locale   string            `yaml:"locale" json:"locale"`
	Timezone string            `yaml:"timezone" json:"timezone"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Weight   int               `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// Config defines the region pool and its rotation policies.
type Config struct {
	Regions []Spec `yaml:"regions" json:"regions"`

	// Selection maps a task type to its placement strategy. Task types not
	// listed use DefaultSelection.
	Selection        map[string]SelectionStrategy `yaml:"selection,omitempty" json:"selection,omitempty"`
	DefaultSelection SelectionStrategy            `yaml:"default_selection" json:"default_selection"`

	// Rotation maps a task type to its retry-rotation strategy.
	Rotation        map[string]RotationStrategy `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	DefaultRotation RotationStrategy            `yaml:"default_rotation" json:"default_rotation"`

	// CooldownTime is how long a region stays out of selection after a
	// rate-limit signal.
	CooldownTime time.Duration `yaml:"cooldown_time" json:"cooldown_time"`

	// FailureThreshold consecutive failures mark a region unavailable until
	// RecoveryTime has passed.
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold"`
	RecoveryTime     time.Duration `yaml:"recovery_time" json:"recovery_time"`

	// Session recycling thresholds.
	SessionMaxAge      time.Duration `yaml:"session_max_age" json:"session_max_age"`
	SessionMaxRequests int           `yaml:"session_max_requests" json:"session_max_requests"`
	SessionQuota       int           `yaml:"session_quota" json:"session_quota"`

	// HTTPTimeout applies to each session's HTTP client.
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout"`

	// Browser is the base browser configuration; per-region identity fields
	// are overlaid on top of it.
	Browser *browser.Config `yaml:"browser,omitempty" json:"browser,omitempty"`
}

// DefaultConfig returns a single-region configuration with conservative
// recycling thresholds.
func DefaultConfig() *Config {
	return &Config{
		Regions: []Spec{
			{ID: "us-east", Locale: "en-US", Timezone: "America/New_York"},
		},
		DefaultSelection:   SelectRoundRobin,
		DefaultRotation:    RotateSequential,
		CooldownTime:       5 * time.Minute,
		FailureThreshold:   5,
		RecoveryTime:       10 * time.Minute,
		SessionMaxAge:      30 * time.Minute,
		SessionMaxRequests: 100,
		SessionQuota:       100,
		HTTPTimeout:        30 * time.Second,
	}
}

// selectionFor resolves the placement strategy for a task type.
func (c *Config) selectionFor(taskType string) SelectionStrategy {
	if s, ok := c.Selection[taskType]; ok {
		return s
	}
	if c.DefaultSelection != "" {
		return c.DefaultSelection
	}
	return SelectRoundRobin
}

// rotationFor resolves the retry-rotation strategy for a task type.
func (c *Config) rotationFor(taskType string) RotationStrategy {
	if s, ok := c.Rotation[taskType]; ok {
		return s
	}
	if c.DefaultRotation != "" {
		return c.DefaultRotation
	}
	return RotateSequential
}
