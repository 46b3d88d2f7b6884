// Package utils provides logging and error classification shared by the
// agent, region, and evasion subsystems.
package utils

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrEmptyCatalog is returned when an evasive session is requested but
	// no fingerprint profiles are configured.
	ErrEmptyCatalog = errors.New("fingerprint catalog is empty")

	// ErrNoRegionsAvailable is returned when every configured region is
	// cooling down or no region is configured at all.
	ErrNoRegionsAvailable = errors.New("no regions available")

	// ErrSessionPoolClosed is returned when a session is requested from a
	// manager that has been shut down.
	ErrSessionPoolClosed = errors.New("session pool is closed")
)

// TransientNetworkError wraps a navigation or request failure that is worth
// retrying against a different region.
type TransientNetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error during %s of %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// BotDetectionSignal indicates the target has identified automated access.
// It is terminal for the current attempt: the remedy is a cool-down, not an
// immediate resubmission.
type BotDetectionSignal struct {
	URL        string
	StatusCode int
	Marker     string
	Detected   time.Time
}

func (e *BotDetectionSignal) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bot detection signal from %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("bot detection signal from %s: challenge marker %q", e.URL, e.Marker)
}

// RegionUnavailableError indicates that no session could be constructed for
// a region at all. This is an infrastructure fault and propagates to the
// caller instead of being folded into a task result.
type RegionUnavailableError struct {
	Region string
	Err    error
}

func (e *RegionUnavailableError) Error() string {
	return fmt.Sprintf("region %s unavailable: %v", e.Region, e.Err)
}

func (e *RegionUnavailableError) Unwrap() error { return e.Err }

// IsRetryable reports whether an error should send the task through the
// retry-with-rotation path.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsBotDetection(err) {
		return false
	}
	if errors.Is(err, ErrEmptyCatalog) || errors.Is(err, ErrSessionPoolClosed) {
		return false
	}
	var regionErr *RegionUnavailableError
	if errors.As(err, &regionErr) {
		return false
	}
	return true
}

// IsBotDetection reports whether an error carries a bot-detection signal.
func IsBotDetection(err error) bool {
	var sig *BotDetectionSignal
	return errors.As(err, &sig)
}
