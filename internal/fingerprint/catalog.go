// Package fingerprint provides the static catalog of simulated device and
// browser profiles, plus the human behavior patterns, used to build evasion
// sessions. Profiles are immutable: derived fields (fonts, plugins, headers)
// are keyed by the same user-agent family so a profile never contradicts
// itself.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
)

// Viewport represents screen dimensions reported by a profile.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Profile is a static description of a simulated device/browser.
type Profile struct {
	ID                  string            `json:"id"`
	UserAgent           string            `json:"user_agent"`
	Viewport            Viewport          `json:"viewport"`
	Platform            string            `json:"platform"` // navigator.platform value
	Language            string            `json:"language"`
	Languages           []string          `json:"languages"`
	Timezone            string            `json:"timezone"`
	WebGLVendor         string            `json:"webgl_vendor"`
	WebGLRenderer       string            `json:"webgl_renderer"`
	CanvasHash          string            `json:"canvas_hash"`
	AudioHash           string            `json:"audio_hash"`
	Fonts               []string          `json:"fonts"`
	Plugins             []string          `json:"plugins"`
	Headers             map[string]string `json:"headers"`
	HardwareConcurrency int               `json:"hardware_concurrency"`
	DeviceMemory        int               `json:"device_memory"`
}

// Family returns the browser family encoded in the profile id.
func (p Profile) Family() string {
	for _, f := range []string{"chrome", "firefox", "safari", "edge"} {
		if len(p.ID) >= len(f) && p.ID[:len(f)] == f {
			return f
		}
	}
	return "unknown"
}

// Catalog holds the fixed profile and behavior tables.
type Catalog struct {
	profiles  []Profile
	behaviors []BehaviorPattern
}

// DefaultCatalog builds the built-in catalog. The profile table is expanded
// from per-platform and per-browser component tables so every derived field
// stays consistent with its user-agent family.
func DefaultCatalog() *Catalog {
	return &Catalog{
		profiles:  buildProfiles(),
		behaviors: getBehaviorPatterns(),
	}
}

// NewCatalog creates a catalog from explicit tables, used by tests and by
// deployments that ship their own profile set.
func NewCatalog(profiles []Profile, behaviors []BehaviorPattern) *Catalog {
	return &Catalog{profiles: profiles, behaviors: behaviors}
}

// Profiles returns the full profile table.
func (c *Catalog) Profiles() []Profile {
	return c.profiles
}

// Behaviors returns the behavior pattern table.
func (c *Catalog) Behaviors() []BehaviorPattern {
	return c.behaviors
}

// Size returns the number of profiles in the catalog.
func (c *Catalog) Size() int {
	return len(c.profiles)
}

// RandomProfile picks a profile uniformly at random.
func (c *Catalog) RandomProfile(rng *rand.Rand) (Profile, bool) {
	if len(c.profiles) == 0 {
		return Profile{}, false
	}
	return c.profiles[rng.Intn(len(c.profiles))], true
}

// RandomBehavior picks a behavior pattern uniformly at random.
func (c *Catalog) RandomBehavior(rng *rand.Rand) (BehaviorPattern, bool) {
	if len(c.behaviors) == 0 {
		return BehaviorPattern{}, false
	}
	return c.behaviors[rng.Intn(len(c.behaviors))], true
}

// platformSpec describes an operating system family and the fields derived
// from it.
type platformSpec struct {
	key           string
	uaToken       string // token substituted into the UA template
	platform      string // navigator.platform
	webglVendor   string
	webglRenderer string
	concurrency   int
	memory        int
}

// browserSpec describes a browser family and the fields derived from it.
type browserSpec struct {
	key      string
	versions []string
	// uaFor renders the full user agent for a platform token and version.
	uaFor   func(uaToken, version string) string
	plugins []string
	accept  string
}

func getPlatforms() []platformSpec {
	return []platformSpec{
		{
			key:           "win10",
			uaToken:       "Windows NT 10.0; Win64; x64",
			platform:      "Win32",
			webglVendor:   "Google Inc. (Intel)",
			webglRenderer: "ANGLE (Intel, Intel(R) UHD Graphics 620 Direct3D11 vs_5_0 ps_5_0, D3D11)",
			concurrency:   8,
			memory:        8,
		},
		{
			key:           "win11",
			uaToken:       "Windows NT 10.0; Win64; x64",
			platform:      "Win32",
			webglVendor:   "Google Inc. (NVIDIA)",
			webglRenderer: "ANGLE (NVIDIA, NVIDIA GeForce GTX 1660 Ti Direct3D11 vs_5_0 ps_5_0, D3D11)",
			concurrency:   12,
			memory:        16,
		},
		{
			key:           "macos",
			uaToken:       "Macintosh; Intel Mac OS X 10_15_7",
			platform:      "MacIntel",
			webglVendor:   "Apple Inc.",
			webglRenderer: "Apple M1",
			concurrency:   8,
			memory:        8,
		},
		{
			key:           "linux",
			uaToken:       "X11; Linux x86_64",
			platform:      "Linux x86_64",
			webglVendor:   "Mesa",
			webglRenderer: "Mesa Intel(R) UHD Graphics 620 (KBL GT2)",
			concurrency:   4,
			memory:        8,
		},
	}
}

func getBrowsers() []browserSpec {
	chromeUA := func(token, version string) string {
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s.0.0.0 Safari/537.36", token, version)
	}
	return []browserSpec{
		{
			key:      "chrome",
			versions: []string{"119", "120", "121", "122", "123"},
			uaFor:    chromeUA,
			plugins:  []string{"Chrome PDF Plugin", "Chrome PDF Viewer", "Native Client"},
			accept:   "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		},
		{
			key:      "firefox",
			versions: []string{"121", "122", "123"},
			uaFor: func(token, version string) string {
				return fmt.Sprintf("Mozilla/5.0 (%s; rv:%s.0) Gecko/20100101 Firefox/%s.0", token, version, version)
			},
			plugins: []string{"PDF Viewer", "OpenH264 Video Codec"},
			accept:  "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		},
		{
			key:      "safari",
			versions: []string{"17.0", "17.1", "17.2"},
			uaFor: func(token, version string) string {
				return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/%s Safari/605.1.15", token, version)
			},
			plugins: []string{"WebKit built-in PDF"},
			accept:  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		},
		{
			key:      "edge",
			versions: []string{"120", "121"},
			uaFor: func(token, version string) string {
				return chromeUA(token, version) + fmt.Sprintf(" Edg/%s.0.0.0", version)
			},
			plugins: []string{"Chrome PDF Plugin", "Chrome PDF Viewer", "Microsoft Edge PDF Viewer"},
			accept:  "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		},
	}
}

// safariPlatforms limits Safari profiles to macOS; the other browsers span
// every platform.
func platformsFor(browser string) []platformSpec {
	all := getPlatforms()
	if browser != "safari" {
		return all
	}
	var mac []platformSpec
	for _, p := range all {
		if p.key == "macos" {
			mac = append(mac, p)
		}
	}
	return mac
}

func getViewports() []Viewport {
	return []Viewport{
		{1920, 1080}, {1366, 768}, {1536, 864}, {1440, 900}, {2560, 1440},
	}
}

func getLocales() []struct {
	language  string
	languages []string
	timezone  string
} {
	return []struct {
		language  string
		languages []string
		timezone  string
	}{
		{"en-US", []string{"en-US", "en"}, "America/New_York"},
		{"en-GB", []string{"en-GB", "en"}, "Europe/London"},
		{"de-DE", []string{"de-DE", "de", "en"}, "Europe/Berlin"},
		{"fr-FR", []string{"fr-FR", "fr", "en"}, "Europe/Paris"},
		{"en-AU", []string{"en-AU", "en"}, "Australia/Sydney"},
	}
}

func getFonts(platformKey string) []string {
	base := []string{
		"Arial", "Arial Black", "Courier New", "Georgia", "Impact",
		"Tahoma", "Times New Roman", "Trebuchet MS", "Verdana",
	}
	switch platformKey {
	case "win10", "win11":
		return append(base, "Calibri", "Cambria", "Consolas", "Segoe UI", "Franklin Gothic Medium")
	case "macos":
		return append(base, "Helvetica", "Helvetica Neue", "Monaco", "Menlo", "San Francisco")
	default:
		return append(base, "DejaVu Sans", "Liberation Sans", "Ubuntu", "Noto Sans")
	}
}

// buildProfiles expands the component tables into the full catalog. The
// expansion is deterministic, so profile ids are stable across restarts.
func buildProfiles() []Profile {
	var profiles []Profile
	viewports := getViewports()
	locales := getLocales()

	for _, browser := range getBrowsers() {
		for _, platform := range platformsFor(browser.key) {
			for vi, version := range browser.versions {
				id := fmt.Sprintf("%s-%s-%s", browser.key, version, platform.key)
				ua := browser.uaFor(platform.uaToken, version)
				locale := locales[(vi+len(profiles))%len(locales)]

				profiles = append(profiles, Profile{
					ID:                  id,
					UserAgent:           ua,
					Viewport:            viewports[len(profiles)%len(viewports)],
					Platform:            platform.platform,
					Language:            locale.language,
					Languages:           locale.languages,
					Timezone:            locale.timezone,
					WebGLVendor:         platform.webglVendor,
					WebGLRenderer:       platform.webglRenderer,
					CanvasHash:          deriveHash("canvas", id),
					AudioHash:           deriveHash("audio", id),
					Fonts:               getFonts(platform.key),
					Plugins:             browser.plugins,
					Headers:             buildHeaders(ua, locale.language, browser.accept),
					HardwareConcurrency: platform.concurrency,
					DeviceMemory:        platform.memory,
				})
			}
		}
	}

	return profiles
}

func buildHeaders(userAgent, language, accept string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    accept,
		"Accept-Language":           language + ";q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// deriveHash produces a stable fingerprint-surface hash for a profile. The
// value only needs to be consistent per profile, not cryptographically
// meaningful.
func deriveHash(surface, id string) string {
	sum := sha256.Sum256([]byte(surface + ":" + id))
	return hex.EncodeToString(sum[:8])
}
