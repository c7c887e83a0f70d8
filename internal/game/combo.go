package game

import "river-strike/internal/config"

// ComboState tracks the kill chain. Timers are in seconds of simulated time.
type ComboState struct {
	Count  int     // Kills in the current chain
	Window float64 // Seconds left to extend the chain
}

// Reset clears the chain (called on run start).
func (c *ComboState) Reset() {
	c.Count = 0
	c.Window = 0
}

// UpdateTimers decays the window. Called once per tick.
func (c *ComboState) UpdateTimers(dt float64) {
	if c.Window > 0 {
		c.Window -= dt
		if c.Window <= 0 {
			c.Window = 0
			c.Count = 0 // Chain broken
		}
	}
}

// RegisterKill extends (or starts) the chain and returns the multiplier to
// apply to this kill's reward.
func (c *ComboState) RegisterKill(t config.ComboTuning) int {
	c.Count++
	c.Window = t.Window
	return c.Multiplier(t)
}

// Multiplier is 1 + Count/Step, capped at MaxMultiplier.
func (c *ComboState) Multiplier(t config.ComboTuning) int {
	step := t.Step
	if step <= 0 {
		step = 1
	}
	m := 1 + c.Count/step
	if m > t.MaxMultiplier {
		m = t.MaxMultiplier
	}
	if m < 1 {
		m = 1
	}
	return m
}
