// internal/config/config_test.go
package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/valpere/AgentScrapexter/internal/region"
)

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("name: minimal\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if cfg.Name != "minimal" {
		t.Errorf("name = %q", cfg.Name)
	}
	if len(cfg.Regions.Regions) == 0 {
		t.Error("expected default regions")
	}
	if cfg.Regions.DefaultSelection != region.SelectRoundRobin {
		t.Errorf("default selection = %q", cfg.Regions.DefaultSelection)
	}
	if cfg.Regions.CooldownTime <= 0 {
		t.Error("expected default cooldown")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadFullConfig(t *testing.T) {
	doc := `
name: full
log_level: debug
region_manager:
  regions:
    - id: us-east
      locale: en-US
      timezone: America/New_York
    - id: eu-west
      locale: en-GB
      timezone: Europe/London
  default_selection: intelligent
  default_rotation: weighted_random
  selection:
    link_finder: load_balanced
  cooldown_time: 2m
  session_max_requests: 50
agent:
  rate_limit:
    quota: 10
    window: 30s
link_finder:
  evasion_level: stealth
  stability_threshold: 4
outputs:
  - type: json
    path: out.json
`
	cfg, err := LoadFromBytes([]byte(doc))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if len(cfg.Regions.Regions) != 2 {
		t.Fatalf("got %d regions", len(cfg.Regions.Regions))
	}
	if cfg.Regions.DefaultSelection != region.SelectIntelligent {
		t.Errorf("selection = %q", cfg.Regions.DefaultSelection)
	}
	if cfg.Regions.Selection["link_finder"] != region.SelectLoadBalanced {
		t.Errorf("per-type selection = %q", cfg.Regions.Selection["link_finder"])
	}
	if cfg.Regions.CooldownTime != 2*time.Minute {
		t.Errorf("cooldown = %v", cfg.Regions.CooldownTime)
	}
	if cfg.Agent.RateLimit.Quota != 10 || cfg.Agent.RateLimit.Window != 30*time.Second {
		t.Errorf("rate limit = %+v", cfg.Agent.RateLimit)
	}
	if cfg.LinkFinder.EvasionLevel != "stealth" {
		t.Errorf("evasion level = %q", cfg.LinkFinder.EvasionLevel)
	}
	if len(cfg.Outputs) != 1 {
		t.Errorf("outputs = %d", len(cfg.Outputs))
	}
}

func TestEnvironmentExpansion(t *testing.T) {
	os.Setenv("TEST_REGION_ID", "ap-south")
	defer os.Unsetenv("TEST_REGION_ID")

	doc := `
region_manager:
  regions:
    - id: ${TEST_REGION_ID}
`
	cfg, err := LoadFromBytes([]byte(doc))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if cfg.Regions.Regions[0].ID != "ap-south" {
		t.Errorf("region id = %q", cfg.Regions.Regions[0].ID)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown selection strategy",
			doc: `
region_manager:
  default_selection: fastest
`,
			want: "selection strategy",
		},
		{
			name: "unknown rotation strategy",
			doc: `
region_manager:
  rotation:
    link_finder: shuffle
`,
			want: "rotation strategy",
		},
		{
			name: "invalid endpoint",
			doc: `
region_manager:
  regions:
    - id: x
      endpoint: "not a proxy url"
`,
			want: "endpoint",
		},
		{
			name: "invalid locale",
			doc: `
region_manager:
  regions:
    - id: x
      locale: "not a locale"
`,
			want: "locale",
		},
		{
			name: "invalid timezone",
			doc: `
region_manager:
  regions:
    - id: x
      timezone: "Mars/Olympus"
`,
			want: "timezone",
		},
		{
			name: "duplicate region ids",
			doc: `
region_manager:
  regions:
    - id: x
    - id: x
`,
			want: "duplicate",
		},
		{
			name: "unknown evasion level",
			doc: `
link_finder:
  evasion_level: paranoid
`,
			want: "evasion level",
		},
		{
			name: "bad output sink",
			doc: `
outputs:
  - type: json
`,
			want: "path",
		},
		{
			name: "unknown log level",
			doc:  "log_level: loud\n",
			want: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestTemplateIsValid(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(Template()))
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if len(cfg.Regions.Regions) != 2 {
		t.Errorf("template regions = %d", len(cfg.Regions.Regions))
	}
	if len(cfg.Outputs) != 2 {
		t.Errorf("template outputs = %d", len(cfg.Outputs))
	}
}
