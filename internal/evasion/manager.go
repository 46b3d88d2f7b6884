// Package evasion binds fingerprint profiles and behavior patterns into
// per-target sessions and applies the resulting masking script to browser
// contexts before navigation.
package evasion

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/AgentScrapexter/internal/browser"
	"github.com/valpere/AgentScrapexter/internal/fingerprint"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// Level controls how many masking fragments are applied. Higher levels
// cover more fingerprint surfaces at the cost of heavier injected scripts.
type Level int

const (
	LevelBasic Level = iota
	LevelStandard
	LevelAdvanced
	LevelStealth
)

// ParseLevel maps a configuration string to a Level. Unknown values fall
// back to standard.
func ParseLevel(s string) Level {
	switch s {
	case "basic":
		return LevelBasic
	case "advanced":
		return LevelAdvanced
	case "stealth":
		return LevelStealth
	default:
		return LevelStandard
	}
}

// String returns the configuration name of the level.
func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelAdvanced:
		return "advanced"
	case LevelStealth:
		return "stealth"
	default:
		return "standard"
	}
}

// Session binds one fingerprint profile and one behavior pattern to a
// target for the session's whole lifetime. Profile and Behavior are never
// reassigned after creation.
type Session struct {
	ID        string
	TargetURL string
	Level     Level
	Profile   fingerprint.Profile
	Behavior  fingerprint.BehaviorPattern

	mu           sync.Mutex
	createdAt    time.Time
	lastUsedAt   time.Time
	successCount int
	riskScore    float64
}

// Touch updates the last-used timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// RecordSuccess increments the success counter and decays the risk score.
func (s *Session) RecordSuccess() {
	s.mu.Lock()
	s.successCount++
	s.riskScore *= 0.8
	s.mu.Unlock()
}

// RecordDetection raises the risk score after a bot-detection signal.
func (s *Session) RecordDetection() {
	s.mu.Lock()
	s.riskScore += 0.3
	if s.riskScore > 1.0 {
		s.riskScore = 1.0
	}
	s.mu.Unlock()
}

// RiskScore returns the current risk estimate in [0, 1].
func (s *Session) RiskScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.riskScore
}

// SuccessCount returns the number of successful uses of this session.
func (s *Session) SuccessCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successCount
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.createdAt)
}

// Manager creates evasive sessions from the fingerprint catalog and applies
// their masking scripts to browser contexts.
type Manager struct {
	catalog *fingerprint.Catalog
	logger  utils.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewManager creates a manager over the given catalog. A nil catalog uses
// the built-in one.
func NewManager(catalog *fingerprint.Catalog) *Manager {
	if catalog == nil {
		catalog = fingerprint.DefaultCatalog()
	}
	return &Manager{
		catalog: catalog,
		logger:  utils.NewComponentLogger("evasion"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateEvasiveSession binds a randomly selected profile and behavior
// pattern to a target URL. It fails only when the catalog holds no
// profiles.
func (m *Manager) CreateEvasiveSession(targetURL string, level Level) (*Session, error) {
	m.mu.Lock()
	profile, ok := m.catalog.RandomProfile(m.rng)
	if !ok {
		m.mu.Unlock()
		return nil, utils.ErrEmptyCatalog
	}
	behavior, ok := m.catalog.RandomBehavior(m.rng)
	m.mu.Unlock()
	if !ok {
		// No behavior table configured; fall back to the built-in default
		// so the session is still usable.
		behavior = fingerprint.DefaultCatalog().Behaviors()[0]
	}

	now := time.Now()
	session := &Session{
		ID:         uuid.NewString(),
		TargetURL:  targetURL,
		Level:      level,
		Profile:    profile,
		Behavior:   behavior,
		createdAt:  now,
		lastUsedAt: now,
	}

	m.logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"profile":    profile.ID,
		"behavior":   behavior.Name,
		"level":      level.String(),
	}).Debug("created evasive session")

	return session, nil
}

// ApplyEvasionToBrowser builds the masking script for the session's profile,
// registers it to run before any page script, and overrides the browser's
// reported user agent, language, and platform so the network identity and
// the script-level identity agree. It never returns an error: on failure
// the session continues unmasked and the caller sees false.
func (m *Manager) ApplyEvasionToBrowser(ctx context.Context, session *Session, client browser.Client) bool {
	if session == nil || client == nil {
		return false
	}

	script := NewScriptBuilder(session.Level).Build(session.Profile)
	if err := client.AddInitScript(ctx, script); err != nil {
		m.logger.WithFields(map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("evasion script injection failed, continuing unmasked")
		return false
	}

	p := session.Profile
	if err := client.SetUserAgent(ctx, p.UserAgent, p.Language, p.Platform); err != nil {
		m.logger.WithFields(map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("user agent override failed, continuing unmasked")
		return false
	}

	session.Touch()
	return true
}
