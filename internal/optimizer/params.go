package optimizer

import (
	"fmt"
	"math"
)

// Params holds the scaling constants of the allocation engine.
type Params struct {
	// Granularity is the number of effort units per hour.
	Granularity int
	// Alpha is the value bonus per priority point.
	Alpha             float64
	DefaultDailyHours float64
	BetaMin           float64
	BetaMax           float64
	// MaxDailyHours bounds the daily budget so capacity stays small.
	MaxDailyHours float64
}

// DefaultParams returns the standard parameterization: tenth-of-an-hour units,
// a 0.1 priority bonus, an 8 hour day and a commission multiplier in [1, 2].
func DefaultParams() Params {
	return Params{
		Granularity:       10,
		Alpha:             0.1,
		DefaultDailyHours: 8.0,
		BetaMin:           1.0,
		BetaMax:           2.0,
		MaxDailyHours:     24.0,
	}
}

// Validate checks that the parameters describe a usable engine.
func (p Params) Validate() error {
	if p.Granularity <= 0 {
		return fmt.Errorf("granularity must be positive, got %d", p.Granularity)
	}
	if p.Alpha < 0 || math.IsNaN(p.Alpha) {
		return fmt.Errorf("alpha must be non-negative, got %f", p.Alpha)
	}
	if p.BetaMin <= 0 || p.BetaMin > p.BetaMax {
		return fmt.Errorf("beta bounds must satisfy 0 < min <= max, got [%f, %f]", p.BetaMin, p.BetaMax)
	}
	if p.MaxDailyHours <= 0 {
		return fmt.Errorf("max daily hours must be positive, got %f", p.MaxDailyHours)
	}
	if p.DefaultDailyHours <= 0 || p.DefaultDailyHours > p.MaxDailyHours {
		return fmt.Errorf("default daily hours must be within (0, %.1f], got %f", p.MaxDailyHours, p.DefaultDailyHours)
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
