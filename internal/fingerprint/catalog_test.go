// internal/fingerprint/catalog_test.go
package fingerprint

import (
	"math/rand"
	"strings"
	"testing"
)

func TestDefaultCatalogSize(t *testing.T) {
	catalog := DefaultCatalog()
	if catalog.Size() < 40 {
		t.Errorf("catalog has %d profiles, want at least 40", catalog.Size())
	}
	if len(catalog.Behaviors()) != 4 {
		t.Errorf("catalog has %d behavior patterns, want 4", len(catalog.Behaviors()))
	}
}

func TestProfileIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range DefaultCatalog().Profiles() {
		if seen[p.ID] {
			t.Errorf("duplicate profile id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestProfileInternalConsistency(t *testing.T) {
	for _, p := range DefaultCatalog().Profiles() {
		if p.UserAgent == "" || p.Platform == "" || p.Timezone == "" {
			t.Errorf("profile %s has empty identity fields", p.ID)
		}
		if p.Headers["User-Agent"] != p.UserAgent {
			t.Errorf("profile %s header user agent disagrees with profile user agent", p.ID)
		}
		if !strings.HasPrefix(p.Headers["Accept-Language"], p.Language) {
			t.Errorf("profile %s Accept-Language %q disagrees with language %q",
				p.ID, p.Headers["Accept-Language"], p.Language)
		}
		if len(p.Fonts) == 0 || len(p.Plugins) == 0 {
			t.Errorf("profile %s missing fonts or plugins", p.ID)
		}
		if p.CanvasHash == "" || p.AudioHash == "" || p.CanvasHash == p.AudioHash {
			t.Errorf("profile %s has degenerate surface hashes", p.ID)
		}
		if p.HardwareConcurrency <= 0 || p.DeviceMemory <= 0 {
			t.Errorf("profile %s has invalid hardware fields", p.ID)
		}

		switch p.Family() {
		case "safari":
			if p.Platform != "MacIntel" {
				t.Errorf("safari profile %s on platform %s", p.ID, p.Platform)
			}
			if !strings.Contains(p.UserAgent, "Version/") {
				t.Errorf("safari profile %s has non-safari user agent", p.ID)
			}
		case "firefox":
			if !strings.Contains(p.UserAgent, "Firefox/") {
				t.Errorf("firefox profile %s has non-firefox user agent", p.ID)
			}
		case "edge":
			if !strings.Contains(p.UserAgent, "Edg/") {
				t.Errorf("edge profile %s has non-edge user agent", p.ID)
			}
		case "chrome":
			if !strings.Contains(p.UserAgent, "Chrome/") || strings.Contains(p.UserAgent, "Edg/") {
				t.Errorf("chrome profile %s has wrong user agent", p.ID)
			}
		default:
			t.Errorf("profile %s has unknown family", p.ID)
		}

		if p.Platform == "Win32" {
			if !containsFont(p.Fonts, "Segoe UI") {
				t.Errorf("windows profile %s missing platform fonts", p.ID)
			}
		}
		if p.Platform == "MacIntel" {
			if !containsFont(p.Fonts, "Helvetica") {
				t.Errorf("macos profile %s missing platform fonts", p.ID)
			}
		}
	}
}

func containsFont(fonts []string, name string) bool {
	for _, f := range fonts {
		if f == name {
			return true
		}
	}
	return false
}

func TestProfilesDeterministic(t *testing.T) {
	a := buildProfiles()
	b := buildProfiles()
	if len(a) != len(b) {
		t.Fatalf("profile counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].CanvasHash != b[i].CanvasHash {
			t.Errorf("profile %d not deterministic", i)
		}
	}
}

func TestRandomSelection(t *testing.T) {
	catalog := DefaultCatalog()
	rng := rand.New(rand.NewSource(42))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		p, ok := catalog.RandomProfile(rng)
		if !ok {
			t.Fatal("RandomProfile failed on non-empty catalog")
		}
		seen[p.ID] = true
	}
	// 200 draws over ~43 profiles should touch a wide spread.
	if len(seen) < catalog.Size()/2 {
		t.Errorf("random selection touched only %d of %d profiles", len(seen), catalog.Size())
	}

	empty := NewCatalog(nil, nil)
	if _, ok := empty.RandomProfile(rng); ok {
		t.Error("RandomProfile on empty catalog must report failure")
	}
	if _, ok := empty.RandomBehavior(rng); ok {
		t.Error("RandomBehavior on empty catalog must report failure")
	}
}

func TestBehaviorPatternRanges(t *testing.T) {
	for _, b := range getBehaviorPatterns() {
		if b.TypingSpeedMin >= b.TypingSpeedMax {
			t.Errorf("pattern %s has inverted typing range", b.Name)
		}
		if b.ClickDelayMin >= b.ClickDelayMax {
			t.Errorf("pattern %s has inverted click delay range", b.Name)
		}
		if b.PageDwell <= 0 || b.InteractionFrequency <= 0 {
			t.Errorf("pattern %s has non-positive timing fields", b.Name)
		}
	}
}
