// internal/agent/linkfinder.go
package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/AgentScrapexter/internal/evasion"
	"github.com/valpere/AgentScrapexter/internal/fingerprint"
	"github.com/valpere/AgentScrapexter/internal/monitoring"
	"github.com/valpere/AgentScrapexter/internal/region"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// Scroll loop defaults.
const (
	DefaultStabilityThreshold = 8
	DefaultMaxScrollAttempts  = 30
	DefaultScrollWait         = 500 * time.Millisecond
	DefaultNavigationTimeout  = 60 * time.Second
)

// Challenge-page title substrings checked case-insensitively.
var challengeTitles = []string{
	"just a moment",
	"checking your browser",
	"ddos-guard",
	"please wait",
	"attention required",
}

// Challenge-page CSS selectors.
var challengeSelectors = []string{
	"#cf-challenge-running",
	".ray_id",
	"#turnstile-wrapper",
	"#cf-wrapper",
	"#challenge-running",
	"#challenge-stage",
	"#cf-spinner-please-wait",
	"#cf-spinner-redirecting",
}

// LinkFinderConfig tunes the scroll-and-collect loop.
type LinkFinderConfig struct {
	EvasionLevel string `yaml:"evasion_level" json:"evasion_level"`

	// StabilityThreshold is how many consecutive unchanged height checks
	// mean the page has stopped growing.
	StabilityThreshold int           `yaml:"stability_threshold" json:"stability_threshold"`
	MaxScrollAttempts  int           `yaml:"max_scroll_attempts" json:"max_scroll_attempts"`
	ScrollWait         time.Duration `yaml:"scroll_wait" json:"scroll_wait"`
	NavigationTimeout  time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

func (c *LinkFinderConfig) applyDefaults() {
	if c.EvasionLevel == "" {
		c.EvasionLevel = "standard"
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = DefaultStabilityThreshold
	}
	if c.MaxScrollAttempts <= 0 {
		c.MaxScrollAttempts = DefaultMaxScrollAttempts
	}
	if c.ScrollWait <= 0 {
		c.ScrollWait = DefaultScrollWait
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
}

// LinkFinderAgent discovers same-origin links on dynamically loaded pages by
// scrolling until the page height stabilizes.
type LinkFinderAgent struct {
	base    *BaseAgent
	evasion *evasion.Manager
	config  LinkFinderConfig
	logger  utils.Logger
	metrics *monitoring.Metrics
}

// NewLinkFinderAgent creates a link finder over the given region and
// evasion managers.
func NewLinkFinderAgent(regions *region.Manager, evasionMgr *evasion.Manager, agentConfig *Config, config *LinkFinderConfig) *LinkFinderAgent {
	cfg := LinkFinderConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()

	if evasionMgr == nil {
		evasionMgr = evasion.NewManager(nil)
	}

	return &LinkFinderAgent{
		base:    NewBaseAgent("link_finder", regions, agentConfig),
		evasion: evasionMgr,
		config:  cfg,
		logger:  utils.NewComponentLogger("agent.link_finder"),
		metrics: monitoring.Default(),
	}
}

// Run executes a link-finder task through the retrying executor.
func (lf *LinkFinderAgent) Run(ctx context.Context, task *Task) (*Result, error) {
	return lf.base.ExecuteWithRotation(ctx, task, lf)
}

// FindLinks is the convenience entry point: it builds a task for the URL
// and returns the discovered links. Bot detection yields an empty list
// rather than an error.
func (lf *LinkFinderAgent) FindLinks(ctx context.Context, targetURL string) ([]Link, error) {
	task := NewTask(TaskLinkFinder, targetURL)
	result, err := lf.Run(ctx, task)
	if err != nil {
		return nil, err
	}

	links, _ := result.Data.([]Link)
	if links == nil {
		links = []Link{}
	}
	return links, nil
}

// ExecuteCore implements the Executor interface: one navigation, hard
// failure checks, then the scroll-and-collect loop.
func (lf *LinkFinderAgent) ExecuteCore(ctx context.Context, task *Task, session *region.Session) (interface{}, error) {
	evSession, err := lf.evasion.CreateEvasiveSession(task.TargetURL, evasion.ParseLevel(lf.config.EvasionLevel))
	if err != nil {
		return nil, err
	}

	applied := lf.evasion.ApplyEvasionToBrowser(ctx, evSession, session.Browser)
	lf.metrics.RecordInjection(evSession.Level.String(), applied)

	navCtx, cancel := context.WithTimeout(ctx, lf.config.NavigationTimeout)
	defer cancel()

	nav, err := session.Browser.Navigate(navCtx, task.TargetURL)
	if err != nil {
		return nil, &utils.TransientNetworkError{Op: "navigate", URL: task.TargetURL, Err: err}
	}
	session.RecordRequest()

	if nav.StatusCode == http.StatusTooManyRequests {
		evSession.RecordDetection()
		return []Link{}, &utils.BotDetectionSignal{
			URL:        task.TargetURL,
			StatusCode: nav.StatusCode,
			Detected:   time.Now(),
		}
	}

	html, err := session.Browser.HTML(ctx)
	if err != nil {
		return nil, &utils.TransientNetworkError{Op: "snapshot", URL: task.TargetURL, Err: err}
	}

	if marker, detected := detectChallenge(html); detected {
		evSession.RecordDetection()
		lf.logger.WithFields(map[string]interface{}{
			"url":    task.TargetURL,
			"marker": marker,
		}).Warn("challenge page detected")
		return []Link{}, &utils.BotDetectionSignal{
			URL:      task.TargetURL,
			Marker:   marker,
			Detected: time.Now(),
		}
	}

	base, err := url.Parse(nav.FinalURL)
	if err != nil || base.Host == "" {
		base, err = url.Parse(task.TargetURL)
		if err != nil {
			return nil, fmt.Errorf("unusable target URL %q: %w", task.TargetURL, err)
		}
	}

	found := make(map[string]Link)
	lf.extractInto(found, html, base, session.Region)

	wait := behaviorScrollWait(lf.config.ScrollWait, evSession.Behavior)
	if err := lf.scrollUntilStable(ctx, session, found, base, wait); err != nil {
		return nil, err
	}

	// One final pass after stabilization picks up content rendered during
	// the last scroll wait.
	if finalHTML, err := session.Browser.HTML(ctx); err == nil {
		lf.extractInto(found, finalHTML, base, session.Region)
	}

	links := make([]Link, 0, len(found))
	for _, link := range found {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].URL < links[j].URL })

	evSession.RecordSuccess()
	lf.metrics.RecordLinks(session.Region, len(links))
	return links, nil
}

// behaviorScrollWait paces the scroll loop by the session's behavior
// pattern: a smooth scroller lingers between scrolls, a flick scroller
// moves on quickly.
func behaviorScrollWait(base time.Duration, b fingerprint.BehaviorPattern) time.Duration {
	switch b.Scroll {
	case fingerprint.ScrollSmooth:
		return base * 3 / 2
	case fingerprint.ScrollFlick:
		return base / 2
	default:
		return base
	}
}

// scrollUntilStable scrolls to the bottom until the page height is
// unchanged for StabilityThreshold consecutive checks or the attempt budget
// runs out, extracting newly revealed anchors whenever the height grows.
func (lf *LinkFinderAgent) scrollUntilStable(ctx context.Context, session *region.Session, found map[string]Link, base *url.URL, wait time.Duration) error {
	prevHeight, err := session.Browser.PageHeight(ctx)
	if err != nil {
		return nil // static page handles without scrolling
	}

	stable := 0
	for attempt := 0; attempt < lf.config.MaxScrollAttempts && stable < lf.config.StabilityThreshold; attempt++ {
		if err := session.Browser.ScrollToBottom(ctx); err != nil {
			return nil
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		height, err := session.Browser.PageHeight(ctx)
		if err != nil {
			return nil
		}

		if height == prevHeight {
			stable++
			continue
		}

		stable = 0
		prevHeight = height
		if html, err := session.Browser.HTML(ctx); err == nil {
			lf.extractInto(found, html, base, session.Region)
		}
	}
	return nil
}

// extractInto collects same-origin anchors from an HTML snapshot,
// de-duplicated by normalized URL.
func (lf *LinkFinderAgent) extractInto(found map[string]Link, html string, base *url.URL, regionID string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	pageContext := strings.TrimSpace(doc.Find("title").First().Text())
	if pageContext == "" {
		pageContext = base.Host
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		if !utils.SameOrigin(resolved, base) {
			return
		}

		normalized, err := utils.NormalizeURL(resolved.String())
		if err != nil {
			return
		}
		if _, dup := found[normalized]; dup {
			return
		}

		found[normalized] = Link{
			URL:          normalized,
			Name:         deriveName(sel, resolved, pageContext),
			SourceURL:    base.String(),
			Region:       regionID,
			DiscoveredAt: time.Now(),
		}
	})
}

// deriveName resolves a human-readable name for an anchor through an
// ordered fallback chain: aria-label, visible text, title attribute, a
// nearby heading, then a synthesized name.
func deriveName(sel *goquery.Selection, resolved *url.URL, pageContext string) string {
	if label := strings.TrimSpace(sel.AttrOr("aria-label", "")); label != "" {
		return label
	}
	if text := collapseWhitespace(sel.Text()); text != "" {
		return text
	}
	if title := strings.TrimSpace(sel.AttrOr("title", "")); title != "" {
		return title
	}
	if heading := nearbyHeading(sel); heading != "" {
		return heading
	}
	return fmt.Sprintf("%s Event %s", pageContext, pathIdentifier(resolved))
}

// nearbyHeading looks for a heading in the anchor's enclosing block.
func nearbyHeading(sel *goquery.Selection) string {
	container := sel.Closest("article, section, li, div")
	if container.Length() == 0 {
		return ""
	}
	return collapseWhitespace(container.Find("h1, h2, h3, h4").First().Text())
}

// pathIdentifier extracts the last meaningful path segment as a stand-in
// identifier.
func pathIdentifier(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return u.Host
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// detectChallenge reports whether an HTML snapshot is a bot-challenge page
// rather than real content.
func detectChallenge(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	title := strings.ToLower(doc.Find("title").First().Text())
	for _, marker := range challengeTitles {
		if strings.Contains(title, marker) {
			return marker, true
		}
	}

	for _, selector := range challengeSelectors {
		if doc.Find(selector).Length() > 0 {
			return selector, true
		}
	}
	return "", false
}
