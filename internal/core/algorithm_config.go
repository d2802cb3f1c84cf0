package core

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ConfigSnapshot is an immutable copy of the algorithm tunables, taken at the
// start of a recommendation run so the run is reproducible given fixed inputs.
type ConfigSnapshot struct {
	TargetOccupancy decimal.Decimal `json:"target_occupancy"`
	Sensitivity     decimal.Decimal `json:"sensitivity"`
	WindowDays      int             `json:"window_days"`
}

// AlgorithmConfig holds the three process-wide pricing tunables.
// Reads and partial updates are safe under concurrent access; concurrent
// updates are last-writer-wins per field.
type AlgorithmConfig struct {
	mu              sync.RWMutex
	targetOccupancy decimal.Decimal
	sensitivity     decimal.Decimal
	windowDays      int
}

// NewAlgorithmConfig returns a config with the defaults:
// target occupancy 0.8, sensitivity 0.25, window 30 days.
func NewAlgorithmConfig() *AlgorithmConfig {
	return &AlgorithmConfig{
		targetOccupancy: decimal.NewFromFloat(0.8),
		sensitivity:     decimal.NewFromFloat(0.25),
		windowDays:      30,
	}
}

// Update overwrites only the fields whose argument is non-nil.
func (c *AlgorithmConfig) Update(targetOccupancy, sensitivity *decimal.Decimal, windowDays *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if targetOccupancy != nil {
		c.targetOccupancy = *targetOccupancy
	}
	if sensitivity != nil {
		c.sensitivity = *sensitivity
	}
	if windowDays != nil {
		c.windowDays = *windowDays
	}
}

// Snapshot returns a consistent copy of all three tunables.
func (c *AlgorithmConfig) Snapshot() ConfigSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConfigSnapshot{
		TargetOccupancy: c.targetOccupancy,
		Sensitivity:     c.sensitivity,
		WindowDays:      c.windowDays,
	}
}

func (c *AlgorithmConfig) TargetOccupancy() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targetOccupancy
}

func (c *AlgorithmConfig) Sensitivity() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sensitivity
}

func (c *AlgorithmConfig) WindowDays() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.windowDays
}
