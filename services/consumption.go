package services

import (
	"github.com/jpdeguzman/submeter-billing/backend/models"
)

// LPGMinimum is the fixed minimum billable consumption for LPG meters, in
// kilograms. Electric and water minimums come from building rate config.
const LPGMinimum = 1.0

// BillableConsumption converts two cumulative index readings into a billable
// quantity. A non-positive delta signals a rollover, meter replacement or
// data anomaly; the configured minimum is billed instead of a negative or
// zero amount. The result is unrounded; callers round at output.
func BillableConsumption(previous, current, multiplier, minimum float64) float64 {
	raw := (current - previous) * multiplier
	if raw > 0 {
		return raw
	}
	return minimum
}

// MinimumFor returns the minimum billable consumption for a utility type.
func MinimumFor(utilityType string, rates *models.BuildingRate) float64 {
	switch utilityType {
	case models.UtilityElectric:
		return rates.ElectricMinimum
	case models.UtilityWater:
		return rates.WaterMinimum
	default:
		return LPGMinimum
	}
}

// RateFor returns the per-unit rate for a utility type.
func RateFor(utilityType string, rates *models.BuildingRate) float64 {
	switch utilityType {
	case models.UtilityElectric:
		return rates.ElectricRate
	case models.UtilityWater:
		return rates.WaterRate
	default:
		return rates.LPGRate
	}
}
