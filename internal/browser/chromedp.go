// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeClient implements Client using chromedp. Each client owns one
// browser context; callers must not drive the same client from two
// goroutines concurrently.
type ChromeClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	allocStop context.CancelFunc
	config    *Config
	stats     Stats
	statsMu   sync.Mutex
	closeOnce sync.Once
}

// NewChromeClient launches a Chrome context configured for one session.
func NewChromeClient(config *Config) (*ChromeClient, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyServer))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", config.Locale))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:       ctx,
		cancel:    cancel,
		allocStop: allocStop,
		config:    config,
	}

	if err := client.initialize(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return client, nil
}

// initialize applies viewport, timezone, and header configuration before the
// context is handed out.
func (c *ChromeClient) initialize() error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
	}

	if c.config.TimezoneID != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(c.config.TimezoneID))
	}

	if len(c.config.ExtraHeaders) > 0 {
		headers := make(network.Headers, len(c.config.ExtraHeaders))
		for k, v := range c.config.ExtraHeaders {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	return chromedp.Run(c.ctx, tasks...)
}

// AddInitScript registers a run-before-page-script hook. Scripts registered
// here execute ahead of any document script on every navigation, which is
// the only point where fingerprint masking is effective.
func (c *ChromeClient) AddInitScript(ctx context.Context, script string) error {
	err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
	if err != nil {
		c.recordError()
		return fmt.Errorf("init script registration failed: %w", err)
	}

	c.statsMu.Lock()
	c.stats.ScriptsInjected++
	c.statsMu.Unlock()
	return nil
}

// SetUserAgent overrides the reported user agent, Accept-Language, and
// navigator.platform for all subsequent requests in this context.
func (c *ChromeClient) SetUserAgent(ctx context.Context, userAgent, acceptLanguage, platform string) error {
	override := emulation.SetUserAgentOverride(userAgent)
	if acceptLanguage != "" {
		override = override.WithAcceptLanguage(acceptLanguage)
	}
	if platform != "" {
		override = override.WithPlatform(platform)
	}

	if err := chromedp.Run(c.ctx, override); err != nil {
		c.recordError()
		return fmt.Errorf("user agent override failed: %w", err)
	}
	return nil
}

// Navigate loads a URL, waits for the body, and reports the response status.
func (c *ChromeClient) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	timeout := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	navCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	// Actions must run on the chromedp context, so caller cancellation is
	// propagated by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body"))
	loadTime := time.Since(start)

	if err != nil {
		c.statsMu.Lock()
		c.stats.Errors++
		if navCtx.Err() == context.DeadlineExceeded {
			c.stats.TimeoutsOccurred++
		}
		c.statsMu.Unlock()
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	result := &NavigationResult{FinalURL: url, LoadTime: loadTime}
	if resp != nil {
		result.StatusCode = int(resp.Status)
		if resp.URL != "" {
			result.FinalURL = resp.URL
		}
	}

	c.recordLoad(loadTime)

	return result, nil
}

// recordLoad folds one page load into the running load-time average.
func (c *ChromeClient) recordLoad(loadTime time.Duration) {
	c.statsMu.Lock()
	c.stats.PagesLoaded++
	c.stats.AverageLoadTime += (loadTime - c.stats.AverageLoadTime) / time.Duration(c.stats.PagesLoaded)
	c.statsMu.Unlock()
}

// HTML returns the serialized DOM of the current page.
func (c *ChromeClient) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(c.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		c.recordError()
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Evaluate runs JavaScript in the page context.
func (c *ChromeClient) Evaluate(ctx context.Context, script string, out interface{}) error {
	var action chromedp.Action
	if out == nil {
		var discard interface{}
		action = chromedp.Evaluate(script, &discard)
	} else {
		action = chromedp.Evaluate(script, out)
	}

	if err := chromedp.Run(c.ctx, action); err != nil {
		c.recordError()
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// ScrollToBottom scrolls the window to the document bottom.
func (c *ChromeClient) ScrollToBottom(ctx context.Context) error {
	return c.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil)
}

// PageHeight reports the document scroll height.
func (c *ChromeClient) PageHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := c.Evaluate(ctx, "document.body.scrollHeight", &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetStats returns a snapshot of browser statistics.
func (c *ChromeClient) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Close releases the browser context and its allocator.
func (c *ChromeClient) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.allocStop != nil {
			c.allocStop()
		}
	})
	return nil
}

func (c *ChromeClient) recordError() {
	c.statsMu.Lock()
	c.stats.Errors++
	c.statsMu.Unlock()
}
