// Package rates defines the multiplier rate table and session duration options.
package rates

import (
	"fmt"
	"strconv"
)

const (
	MinMultiplier = 1
	MaxMultiplier = 6

	// rateScale divides a multiplier into its per-second rate
	rateScale = 100
)

// Level is the accrual definition of one multiplier level
type Level struct {
	Rate         float64 `json:"rate"`
	HourlyReward float64 `json:"hourlyReward"`
}

// Table maps multiplier level to its accrual definition
type Table map[int]Level

// DefaultLevel returns the built-in definition for a multiplier level
func DefaultLevel(multiplier int) Level {
	return Level{
		Rate:         float64(multiplier) / rateScale,
		HourlyReward: float64(multiplier) * 3600 / rateScale,
	}
}

// Default returns the built-in table. It is both the fallback for missing
// entries and the seed for the config store.
func Default() Table {
	t := make(Table, MaxMultiplier)
	for m := MinMultiplier; m <= MaxMultiplier; m++ {
		t[m] = DefaultLevel(m)
	}
	return t
}

// Level returns the configured entry for a multiplier, falling back to the default
func (t Table) Level(multiplier int) Level {
	if l, ok := t[multiplier]; ok {
		return l
	}
	return DefaultLevel(multiplier)
}

// Validate checks that every level is present with a non-negative rate
func Validate(t Table) error {
	for m := MinMultiplier; m <= MaxMultiplier; m++ {
		l, ok := t[m]
		if !ok {
			return fmt.Errorf("rate table missing level %d", m)
		}
		if l.Rate < 0 || l.HourlyReward < 0 {
			return fmt.Errorf("rate table level %d has a negative rate", m)
		}
	}
	for m := range t {
		if m < MinMultiplier || m > MaxMultiplier {
			return fmt.Errorf("rate table level %d out of range %d..%d", m, MinMultiplier, MaxMultiplier)
		}
	}
	return nil
}

// DurationOption is a session length the user may pick
type DurationOption struct {
	Hours int    `json:"value"`
	Label string `json:"label"`
}

// DefaultDurations returns the built-in duration options
func DefaultDurations() []DurationOption {
	hours := []int{1, 2, 4, 12, 24}
	opts := make([]DurationOption, len(hours))
	for i, h := range hours {
		opts[i] = DurationOption{Hours: h, Label: durationLabel(h)}
	}
	return opts
}

func durationLabel(hours int) string {
	if hours == 1 {
		return "1 Hour"
	}
	return strconv.Itoa(hours) + " Hours"
}

// ValidateDurations checks that options are non-empty, positive and unique
func ValidateDurations(opts []DurationOption) error {
	if len(opts) == 0 {
		return fmt.Errorf("duration options must not be empty")
	}
	seen := make(map[int]bool, len(opts))
	for _, o := range opts {
		if o.Hours <= 0 {
			return fmt.Errorf("duration option %d must be positive", o.Hours)
		}
		if seen[o.Hours] {
			return fmt.Errorf("duration option %d is duplicated", o.Hours)
		}
		seen[o.Hours] = true
	}
	return nil
}

// Allows reports whether hours is one of the options
func Allows(opts []DurationOption, hours int) bool {
	for _, o := range opts {
		if o.Hours == hours {
			return true
		}
	}
	return false
}
