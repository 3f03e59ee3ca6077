package config

import "time"

// escalateEvery is how much pursuit time passes between level bumps.
const escalateEvery = 2 * time.Minute

// lethalForceFloor is the minimum level once lethal force is in play.
const lethalForceFloor = 3

// LevelManager picks a roadblock level from the live pursuit state.
// The level starts at the initial value and escalates as the pursuit
// drags on; lethal force raises the floor.
type LevelManager struct {
	maxLevel     int
	initialLevel int
	escalation   bool
}

// NewLevelManager creates a level manager over the configured levels.
func NewLevelManager(cfg Config) *LevelManager {
	return &LevelManager{
		maxLevel:     cfg.MaxLevel(),
		initialLevel: 1,
		escalation:   true,
	}
}

// SetInitialLevel overrides the starting level, clamped to the
// configured range.
func (m *LevelManager) SetInitialLevel(level int) {
	m.initialLevel = clampI(level, 1, m.maxLevel)
}

// SetEscalation enables or disables duration-based escalation.
func (m *LevelManager) SetEscalation(enabled bool) {
	m.escalation = enabled
}

// IsEscalating returns whether duration-based escalation is active.
func (m *LevelManager) IsEscalating() bool {
	return m.escalation
}

// Level returns the level for a pursuit that has run for elapsed time.
func (m *LevelManager) Level(elapsed time.Duration, lethalForce bool) int {
	level := m.initialLevel
	if m.escalation && elapsed > 0 {
		level += int(elapsed / escalateEvery)
	}
	if lethalForce && level < lethalForceFloor {
		level = lethalForceFloor
	}
	return clampI(level, 1, m.maxLevel)
}

// clampI restricts an int to [min, max].
func clampI(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
