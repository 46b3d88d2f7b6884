// internal/evasion/manager_test.go
package evasion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/valpere/AgentScrapexter/internal/browser"
	"github.com/valpere/AgentScrapexter/internal/fingerprint"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

type fakeBrowser struct {
	initScripts []string
	injectErr   error

	ua       string
	language string
	platform string
	uaErr    error
}

func (f *fakeBrowser) AddInitScript(ctx context.Context, script string) error {
	if f.injectErr != nil {
		return f.injectErr
	}
	f.initScripts = append(f.initScripts, script)
	return nil
}

func (f *fakeBrowser) SetUserAgent(ctx context.Context, userAgent, acceptLanguage, platform string) error {
	if f.uaErr != nil {
		return f.uaErr
	}
	f.ua = userAgent
	f.language = acceptLanguage
	f.platform = platform
	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) (*browser.NavigationResult, error) {
	return &browser.NavigationResult{StatusCode: 200, FinalURL: url}, nil
}

func (f *fakeBrowser) HTML(ctx context.Context) (string, error) { return "", nil }

func (f *fakeBrowser) Evaluate(ctx context.Context, script string, out interface{}) error {
	return nil
}

func (f *fakeBrowser) ScrollToBottom(ctx context.Context) error { return nil }

func (f *fakeBrowser) PageHeight(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeBrowser) Close() error { return nil }

func TestCreateEvasiveSession(t *testing.T) {
	manager := NewManager(nil)

	session, err := manager.CreateEvasiveSession("https://example.com/events", LevelStandard)
	if err != nil {
		t.Fatalf("CreateEvasiveSession failed: %v", err)
	}

	if session.ID == "" {
		t.Error("expected non-empty session id")
	}
	if session.TargetURL != "https://example.com/events" {
		t.Errorf("unexpected target URL: %s", session.TargetURL)
	}
	if session.Profile.UserAgent == "" {
		t.Error("expected a bound profile")
	}
	if session.Behavior.Name == "" {
		t.Error("expected a bound behavior pattern")
	}
}

func TestCreateEvasiveSessionEmptyCatalog(t *testing.T) {
	manager := NewManager(fingerprint.NewCatalog(nil, nil))

	_, err := manager.CreateEvasiveSession("https://example.com", LevelBasic)
	if !errors.Is(err, utils.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestSessionBindingStable(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.CreateEvasiveSession("https://example.com", LevelStealth)
	if err != nil {
		t.Fatalf("CreateEvasiveSession failed: %v", err)
	}

	profileID := session.Profile.ID
	behaviorName := session.Behavior.Name

	fake := &fakeBrowser{}
	for i := 0; i < 5; i++ {
		if ok := manager.ApplyEvasionToBrowser(context.Background(), session, fake); !ok {
			t.Fatalf("apply %d failed", i)
		}
		if session.Profile.ID != profileID {
			t.Fatalf("profile changed after apply %d: %s", i, session.Profile.ID)
		}
		if session.Behavior.Name != behaviorName {
			t.Fatalf("behavior changed after apply %d: %s", i, session.Behavior.Name)
		}
	}

	// Every rendered script must describe the same profile.
	first := fake.initScripts[0]
	for i, script := range fake.initScripts {
		if script != first {
			t.Errorf("script %d differs from first render", i)
		}
	}
}

func TestApplyEvasionFailureDegrades(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.CreateEvasiveSession("https://example.com", LevelStandard)
	if err != nil {
		t.Fatalf("CreateEvasiveSession failed: %v", err)
	}

	fake := &fakeBrowser{injectErr: errors.New("devtools connection lost")}
	if ok := manager.ApplyEvasionToBrowser(context.Background(), session, fake); ok {
		t.Error("expected false on injection failure")
	}

	if ok := manager.ApplyEvasionToBrowser(context.Background(), nil, fake); ok {
		t.Error("expected false for nil session")
	}
	if ok := manager.ApplyEvasionToBrowser(context.Background(), session, nil); ok {
		t.Error("expected false for nil browser")
	}
}

func TestScriptBuilderLevels(t *testing.T) {
	profile := fingerprint.DefaultCatalog().Profiles()[0]

	tests := []struct {
		level    Level
		contains []string
		excludes []string
	}{
		{
			level:    LevelBasic,
			contains: []string{"webdriver", "navigator, 'platform'"},
			excludes: []string{"plugins", "WebGLRenderingContext", "AnalyserNode"},
		},
		{
			level:    LevelStandard,
			contains: []string{"webdriver", "plugins", "chrome.runtime"},
			excludes: []string{"WebGLRenderingContext", "AnalyserNode"},
		},
		{
			level:    LevelAdvanced,
			contains: []string{"WebGLRenderingContext", "getImageData"},
			excludes: []string{"AnalyserNode"},
		},
		{
			level:    LevelStealth,
			contains: []string{"AnalyserNode", "hardwareConcurrency"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			script := NewScriptBuilder(tt.level).Build(profile)
			for _, want := range tt.contains {
				if !strings.Contains(script, want) {
					t.Errorf("level %s script missing %q", tt.level, want)
				}
			}
			for _, banned := range tt.excludes {
				if strings.Contains(script, banned) {
					t.Errorf("level %s script unexpectedly contains %q", tt.level, banned)
				}
			}
		})
	}
}

func TestScriptReflectsProfile(t *testing.T) {
	profile := fingerprint.DefaultCatalog().Profiles()[0]
	script := NewScriptBuilder(LevelStealth).Build(profile)

	for _, want := range []string{
		profile.Platform,
		profile.Language,
		profile.WebGLVendor,
		profile.CanvasHash,
		profile.AudioHash,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing profile value %q", want)
		}
	}

	if !strings.Contains(script, "__maskApplied") {
		t.Error("script missing idempotence guard")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"basic", LevelBasic},
		{"standard", LevelStandard},
		{"advanced", LevelAdvanced},
		{"stealth", LevelStealth},
		{"", LevelStandard},
		{"bogus", LevelStandard},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestApplyEvasionOverridesIdentity(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.CreateEvasiveSession("https://example.com", LevelStandard)
	if err != nil {
		t.Fatalf("CreateEvasiveSession failed: %v", err)
	}

	fake := &fakeBrowser{}
	if ok := manager.ApplyEvasionToBrowser(context.Background(), session, fake); !ok {
		t.Fatal("apply failed")
	}

	p := session.Profile
	if fake.ua != p.UserAgent {
		t.Errorf("user agent = %q, want %q", fake.ua, p.UserAgent)
	}
	if fake.language != p.Language {
		t.Errorf("accept-language = %q, want %q", fake.language, p.Language)
	}
	if fake.platform != p.Platform {
		t.Errorf("platform = %q, want %q", fake.platform, p.Platform)
	}
}

func TestApplyEvasionIdentityFailureDegrades(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.CreateEvasiveSession("https://example.com", LevelStandard)
	if err != nil {
		t.Fatalf("CreateEvasiveSession failed: %v", err)
	}

	fake := &fakeBrowser{uaErr: errors.New("override rejected")}
	if ok := manager.ApplyEvasionToBrowser(context.Background(), session, fake); ok {
		t.Error("expected false when the identity override fails")
	}
}

func TestSessionRiskScore(t *testing.T) {
	session := &Session{}

	session.RecordDetection()
	session.RecordDetection()
	if got := session.RiskScore(); got <= 0.5 {
		t.Errorf("expected elevated risk after detections, got %f", got)
	}

	for i := 0; i < 10; i++ {
		session.RecordSuccess()
	}
	if got := session.RiskScore(); got > 0.1 {
		t.Errorf("expected decayed risk after successes, got %f", got)
	}
	if session.SuccessCount() != 10 {
		t.Errorf("success count = %d, want 10", session.SuccessCount())
	}
}
