// internal/fingerprint/behavior.go
package fingerprint

import "time"

// MouseStyle describes how simulated cursor movement is shaped.
type MouseStyle string

const (
	MouseNatural  MouseStyle = "natural"  // curved paths, variable speed
	MouseDirect   MouseStyle = "direct"   // near-straight paths
	MouseHesitant MouseStyle = "hesitant" // pauses before clicks
)

// ScrollStyle describes simulated scrolling behavior.
type ScrollStyle string

const (
	ScrollSmooth  ScrollStyle = "smooth"
	ScrollStepped ScrollStyle = "stepped"
	ScrollFlick   ScrollStyle = "flick"
)

// BehaviorPattern is an immutable description of human-like interaction
// timing bound to an evasion session for its whole lifetime.
type BehaviorPattern struct {
	Name                 string        `json:"name"`
	Mouse                MouseStyle    `json:"mouse"`
	TypingSpeedMin       int           `json:"typing_speed_min"` // characters per minute
	TypingSpeedMax       int           `json:"typing_speed_max"`
	Scroll               ScrollStyle   `json:"scroll"`
	ClickDelayMin        time.Duration `json:"click_delay_min"`
	ClickDelayMax        time.Duration `json:"click_delay_max"`
	PageDwell            time.Duration `json:"page_dwell"`
	InteractionFrequency float64       `json:"interaction_frequency"` // interactions per minute
}

// getBehaviorPatterns returns the fixed behavior table. Four patterns cover
// the spread from a careful reader to an impatient skimmer.
func getBehaviorPatterns() []BehaviorPattern {
	return []BehaviorPattern{
		{
			Name:                 "careful_reader",
			Mouse:                MouseNatural,
			TypingSpeedMin:       180,
			TypingSpeedMax:       260,
			Scroll:               ScrollSmooth,
			ClickDelayMin:        400 * time.Millisecond,
			ClickDelayMax:        1200 * time.Millisecond,
			PageDwell:            25 * time.Second,
			InteractionFrequency: 4,
		},
		{
			Name:                 "average_visitor",
			Mouse:                MouseNatural,
			TypingSpeedMin:       220,
			TypingSpeedMax:       320,
			Scroll:               ScrollStepped,
			ClickDelayMin:        250 * time.Millisecond,
			ClickDelayMax:        800 * time.Millisecond,
			PageDwell:            12 * time.Second,
			InteractionFrequency: 8,
		},
		{
			Name:                 "fast_skimmer",
			Mouse:                MouseDirect,
			TypingSpeedMin:       300,
			TypingSpeedMax:       420,
			Scroll:               ScrollFlick,
			ClickDelayMin:        120 * time.Millisecond,
			ClickDelayMax:        400 * time.Millisecond,
			PageDwell:            5 * time.Second,
			InteractionFrequency: 14,
		},
		{
			Name:                 "hesitant_browser",
			Mouse:                MouseHesitant,
			TypingSpeedMin:       140,
			TypingSpeedMax:       220,
			Scroll:               ScrollStepped,
			ClickDelayMin:        600 * time.Millisecond,
			ClickDelayMax:        2 * time.Second,
			PageDwell:            18 * time.Second,
			InteractionFrequency: 3,
		},
	}
}
