package domain

import (
	"fmt"
	"strings"
)

// Params are the registry-wide separation constants. Every copy of the
// registry must run with identical values.
type Params struct {
	// MaxSpeedMPS is the adversary's maximum speed over ground.
	MaxSpeedMPS int64
	// MinSolarTripTime is the minimum admissible solar trip time in seconds.
	MinSolarTripTime int64
	// DatelineDistance is the minimum distance in meters to the dateline
	// and to either pole.
	DatelineDistance uint32
}

// DefaultParams returns the reference constants.
func DefaultParams() Params {
	return Params{
		MaxSpeedMPS:      83,
		MinSolarTripTime: 1,
		DatelineDistance: 1_000_000,
	}
}

// Validate checks the constants are usable.
func (p Params) Validate() error {
	var errs []string
	if p.MaxSpeedMPS <= 0 {
		errs = append(errs, fmt.Sprintf("max speed must be positive, got %d", p.MaxSpeedMPS))
	}
	if p.DatelineDistance == 0 {
		errs = append(errs, "dateline distance must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid registry params: %s", strings.Join(errs, "; "))
	}
	return nil
}
