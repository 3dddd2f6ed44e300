package reliability

import "strings"

// Climate tags recognised by the adjustment table.
const (
	ClimateTemperate = "temperate"
	ClimateHot       = "hot"
	ClimateVeryHot   = "very-hot"
	ClimateDesert    = "desert"
	ClimateCold      = "cold"
	ClimateVeryCold  = "very-cold"
)

// Lifetime reduction factors.
const (
	extremeClimateFactor = 0.85
	hotHoseFactor        = 0.90
)

// ClimateFactor returns the multiplier (≤ 1) applied to the calibrated scale
// of part under climate.
//
// The table is deliberately small: batteries and tires lose 15% of effective
// life under any extreme climate, coolant hoses lose 10% in heat, and every
// other part or unrecognised tag is neutral. Factors never stack.
func ClimateFactor(part, climate string) float64 {
	c := strings.ToLower(strings.TrimSpace(climate))
	if c == "" {
		return 1.0
	}
	switch part {
	case PartBattery, PartTires:
		switch c {
		case ClimateHot, ClimateVeryHot, ClimateDesert, ClimateCold, ClimateVeryCold:
			return extremeClimateFactor
		}
	case PartCoolantHoses:
		switch c {
		case ClimateHot, ClimateVeryHot:
			return hotHoseFactor
		}
	}
	return 1.0
}

// Climates returns the climate tags that can change a projection.
func Climates() []string {
	return []string{ClimateTemperate, ClimateHot, ClimateVeryHot, ClimateDesert, ClimateCold, ClimateVeryCold}
}
