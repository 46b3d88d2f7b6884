// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Config defines how a browser context is launched for one regional session.
type Config struct {
	Headless       bool              `yaml:"headless" json:"headless"`
	Timeout        time.Duration     `yaml:"timeout" json:"timeout"`
	ProxyServer    string            `yaml:"proxy_server,omitempty" json:"proxy_server,omitempty"`
	UserAgent      string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewportWidth  int               `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int               `yaml:"viewport_height" json:"viewport_height"`
	Locale         string            `yaml:"locale,omitempty" json:"locale,omitempty"`
	TimezoneID     string            `yaml:"timezone_id,omitempty" json:"timezone_id,omitempty"`
	ExtraHeaders   map[string]string `yaml:"extra_headers,omitempty" json:"extra_headers,omitempty"`
	DisableImages  bool              `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns a safe headless configuration.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true,
	}
}

// NavigationResult describes the outcome of a page navigation.
type NavigationResult struct {
	StatusCode int
	FinalURL   string
	LoadTime   time.Duration
}

// Client is the browser automation surface agents depend on. Concrete agents
// are written against this interface so their logic can be exercised with
// fakes in tests.
type Client interface {
	// AddInitScript registers a script evaluated before any page script on
	// every subsequent navigation. Must be called before Navigate to be
	// effective against load-time detection.
	AddInitScript(ctx context.Context, script string) error

	// SetUserAgent overrides the user agent, Accept-Language, and
	// navigator.platform the browser reports, so the network identity
	// matches an injected fingerprint.
	SetUserAgent(ctx context.Context, userAgent, acceptLanguage, platform string) error

	// Navigate loads a URL and waits for the document to become ready.
	Navigate(ctx context.Context, url string) (*NavigationResult, error)

	// HTML returns the current serialized DOM.
	HTML(ctx context.Context) (string, error)

	// Evaluate runs a script and unmarshals its result into out. Pass nil
	// to discard the result.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// ScrollToBottom scrolls the window to the current document bottom.
	ScrollToBottom(ctx context.Context) error

	// PageHeight reports the current document scroll height in pixels.
	PageHeight(ctx context.Context) (int64, error)

	// Close releases the browser context. Safe to call more than once.
	Close() error
}

// Stats counts browser-level events for diagnostics.
type Stats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	ScriptsInjected  int           `json:"scripts_injected"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
}
