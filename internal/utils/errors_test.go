// internal/utils/errors_test.go
package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient network", &TransientNetworkError{Op: "navigate", URL: "https://x", Err: errors.New("timeout")}, true},
		{"wrapped transient", fmt.Errorf("attempt failed: %w", &TransientNetworkError{Op: "navigate", Err: errors.New("reset")}), true},
		{"bot detection", &BotDetectionSignal{URL: "https://x", StatusCode: 429}, false},
		{"challenge marker", &BotDetectionSignal{URL: "https://x", Marker: "just a moment"}, false},
		{"wrapped bot detection", fmt.Errorf("core: %w", &BotDetectionSignal{StatusCode: 403}), false},
		{"empty catalog", ErrEmptyCatalog, false},
		{"wrapped empty catalog", fmt.Errorf("session: %w", ErrEmptyCatalog), false},
		{"pool closed", ErrSessionPoolClosed, false},
		{"region unavailable", &RegionUnavailableError{Region: "us-east", Err: errors.New("browser launch")}, false},
		{"plain error", errors.New("parse failure"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsBotDetection(t *testing.T) {
	sig := &BotDetectionSignal{URL: "https://x", StatusCode: 429, Detected: time.Now()}

	if !IsBotDetection(sig) {
		t.Error("direct signal not recognized")
	}
	if !IsBotDetection(fmt.Errorf("wrapped: %w", sig)) {
		t.Error("wrapped signal not recognized")
	}
	if IsBotDetection(errors.New("not a signal")) {
		t.Error("plain error misclassified")
	}
}

func TestErrorMessages(t *testing.T) {
	statusSig := &BotDetectionSignal{URL: "https://x", StatusCode: 429}
	if msg := statusSig.Error(); msg != "bot detection signal from https://x: HTTP 429" {
		t.Errorf("status message = %q", msg)
	}

	markerSig := &BotDetectionSignal{URL: "https://x", Marker: "#cf-challenge-running"}
	if msg := markerSig.Error(); msg != `bot detection signal from https://x: challenge marker "#cf-challenge-running"` {
		t.Errorf("marker message = %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection refused")

	var netErr error = &TransientNetworkError{Op: "navigate", Err: inner}
	if !errors.Is(netErr, inner) {
		t.Error("TransientNetworkError does not unwrap")
	}

	var regionErr error = &RegionUnavailableError{Region: "eu-west", Err: inner}
	if !errors.Is(regionErr, inner) {
		t.Error("RegionUnavailableError does not unwrap")
	}
}
