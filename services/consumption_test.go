package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

func TestBillableConsumption(t *testing.T) {
	// 1.5 index units through an 80x CT meter
	assert.Equal(t, 120.0, Round2(BillableConsumption(100.00, 101.50, 80, 50)))

	assert.Equal(t, 7.5, BillableConsumption(10, 17.5, 1, 0))
}

func TestBillableConsumptionMinimumFallback(t *testing.T) {
	// Index went backwards: rollover or meter swap, bill the minimum
	assert.Equal(t, 50.0, BillableConsumption(9999, 5, 1, 50))

	// Zero delta also falls back
	assert.Equal(t, 50.0, BillableConsumption(200, 200, 1, 50))

	// The multiplier cannot rescue a non-positive delta
	assert.Equal(t, 50.0, BillableConsumption(300, 299, 80, 50))
}

func TestMinimumFor(t *testing.T) {
	rates := &models.BuildingRate{
		ElectricMinimum: 30,
		WaterMinimum:    5,
	}

	assert.Equal(t, 30.0, MinimumFor(models.UtilityElectric, rates))
	assert.Equal(t, 5.0, MinimumFor(models.UtilityWater, rates))
	assert.Equal(t, LPGMinimum, MinimumFor(models.UtilityLPG, rates))
}

func TestRateFor(t *testing.T) {
	rates := &models.BuildingRate{
		ElectricRate: 11.5,
		WaterRate:    42.0,
		LPGRate:      95.0,
	}

	assert.Equal(t, 11.5, RateFor(models.UtilityElectric, rates))
	assert.Equal(t, 42.0, RateFor(models.UtilityWater, rates))
	assert.Equal(t, 95.0, RateFor(models.UtilityLPG, rates))
}
