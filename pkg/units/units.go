// Package units converts dimensional values to canonical SI base units.
// Conversion tables are closed and immutable; kilograms and meters are the
// pivots so that any declared unit composes losslessly.
package units

import (
	"fmt"
	"strings"
)

// Dimension identifies a supported physical dimension.
type Dimension string

const (
	Mass   Dimension = "mass"
	Length Dimension = "length"
)

// lengthFactors maps a length unit to its factor into meters.
var lengthFactors = map[string]float64{
	"m":          1.0,
	"meter":      1.0,
	"meters":     1.0,
	"km":         1000.0,
	"kilometer":  1000.0,
	"kilometers": 1000.0,
	"ft":         0.3048,
	"feet":       0.3048,
	"inch":       0.0254,
	"in":         0.0254,
}

// massFactors maps a mass unit to its factor into kilograms.
var massFactors = map[string]float64{
	"kg":        1.0,
	"kilogram":  1.0,
	"kilograms": 1.0,
	"g":         0.001,
	"gram":      0.001,
	"grams":     0.001,
	"lb":        0.45359237,
	"lbs":       0.45359237,
	"pound":     0.45359237,
	"pounds":    0.45359237,
}

// NormalizeMass converts value expressed in unit to kilograms.
// Unknown units return an error of the form "unknown_mass_unit:<unit>".
func NormalizeMass(value float64, unit string) (float64, error) {
	f, ok := massFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("unknown_mass_unit:%s", unit)
	}
	return value * f, nil
}

// NormalizeLength converts value expressed in unit to meters.
// Unknown units return an error of the form "unknown_length_unit:<unit>".
func NormalizeLength(value float64, unit string) (float64, error) {
	f, ok := lengthFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("unknown_length_unit:%s", unit)
	}
	return value * f, nil
}

// FromSI converts a canonical SI value back into unit. It is the inverse of
// NormalizeMass/NormalizeLength and exists for round-trip verification.
func FromSI(dim Dimension, si float64, unit string) (float64, error) {
	var factors map[string]float64
	switch dim {
	case Mass:
		factors = massFactors
	case Length:
		factors = lengthFactors
	default:
		return 0, fmt.Errorf("unknown_dimension:%s", dim)
	}
	f, ok := factors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("unknown_%s_unit:%s", dim, unit)
	}
	return si / f, nil
}

// KnownUnits returns the declared unit names for a dimension.
func KnownUnits(dim Dimension) []string {
	var factors map[string]float64
	switch dim {
	case Mass:
		factors = massFactors
	case Length:
		factors = lengthFactors
	default:
		return nil
	}
	out := make([]string, 0, len(factors))
	for u := range factors {
		out = append(out, u)
	}
	return out
}
