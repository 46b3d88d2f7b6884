// internal/browser/chromedp_test.go
package browser

import (
	"testing"
	"time"
)

func TestRecordLoadRunningAverage(t *testing.T) {
	c := &ChromeClient{}

	for _, sample := range []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	} {
		c.recordLoad(sample)
	}

	stats := c.GetStats()
	if stats.PagesLoaded != 3 {
		t.Errorf("pages loaded = %d, want 3", stats.PagesLoaded)
	}
	if stats.AverageLoadTime != 200*time.Millisecond {
		t.Errorf("average = %v, want 200ms", stats.AverageLoadTime)
	}
}

func TestRecordLoadSkewedSamples(t *testing.T) {
	c := &ChromeClient{}

	c.recordLoad(100 * time.Millisecond)
	c.recordLoad(100 * time.Millisecond)
	c.recordLoad(400 * time.Millisecond)

	if avg := c.GetStats().AverageLoadTime; avg != 200*time.Millisecond {
		t.Errorf("average = %v, want 200ms", avg)
	}
}
