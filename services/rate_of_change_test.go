package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRocFromTotals(t *testing.T) {
	roc := rocFromTotals(105, 100)
	require.NotNil(t, roc)
	assert.Equal(t, 5.0, *roc)

	// Ceiling: any increase reports as at least 1
	roc = rocFromTotals(1001, 1000)
	require.NotNil(t, roc)
	assert.Equal(t, 1.0, *roc)

	// Decreases round toward zero under ceiling
	roc = rocFromTotals(989, 1000)
	require.NotNil(t, roc)
	assert.Equal(t, -1.0, *roc)

	roc = rocFromTotals(80, 100)
	require.NotNil(t, roc)
	assert.Equal(t, -20.0, *roc)

	roc = rocFromTotals(100, 100)
	require.NotNil(t, roc)
	assert.Equal(t, 0.0, *roc)
}

func TestRocFromTotalsNoBaseline(t *testing.T) {
	assert.Nil(t, rocFromTotals(100, 0))
	assert.Nil(t, rocFromTotals(100, -5))
}

func TestForMeter(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-ROC", "electric", 1)
	f.addReading(t, meterID, "2024-12-20", 100)
	f.addReading(t, meterID, "2025-01-20", 200)
	f.addReading(t, meterID, "2025-02-10", 310.5)

	svc := NewRateOfChangeService(f.db, 31)
	r, err := svc.ForMeter(meterID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, 110.5, r.CurrentConsumption)
	require.NotNil(t, r.PreviousConsumption)
	assert.Equal(t, 100.0, *r.PreviousConsumption)

	// (110.5 - 100) / 100 * 100 = 10.5, ceiling 11
	require.NotNil(t, r.RateOfChange)
	assert.Equal(t, 11.0, *r.RateOfChange)

	assert.Equal(t, "2025-01-21", r.DisplayCurrentStart)
	assert.Equal(t, "2025-02-20", r.DisplayCurrentEnd)
	assert.Equal(t, "2024-12-21", r.DisplayPreviousStart)
	assert.Equal(t, "2025-01-20", r.DisplayPreviousEnd)
}

func TestForMeterNoBaseline(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-NB", "electric", 1)
	// No December reading, so there is no previous consumption
	f.addReading(t, meterID, "2025-01-20", 200)
	f.addReading(t, meterID, "2025-02-10", 260)

	svc := NewRateOfChangeService(f.db, 31)
	r, err := svc.ForMeter(meterID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, 60.0, r.CurrentConsumption)
	assert.Nil(t, r.PreviousConsumption)
	assert.Nil(t, r.RateOfChange)
}

func TestForMeterMissingCurrentReading(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-MC", "electric", 1)
	f.addReading(t, meterID, "2025-01-20", 200)

	svc := NewRateOfChangeService(f.db, 31)
	_, err := svc.ForMeter(meterID, "2025-02-20")
	assert.True(t, IsInsufficientData(err))
}

// The tenant figure must come from the summed consumption totals. Averaging
// the per-meter percentages here would give +25 (+100 and -50); the totals
// give (400 - 500) / 500 = -20.
func TestForTenantAggregatesTotalsNotPercentages(t *testing.T) {
	f := newFixture(t)

	meterA := f.addMeter(t, "EL-AGG-A", "electric", 1)
	f.addReading(t, meterA, "2024-12-20", 0)
	f.addReading(t, meterA, "2025-01-20", 100)
	f.addReading(t, meterA, "2025-02-10", 300)

	meterB := f.addMeter(t, "EL-AGG-B", "electric", 1)
	f.addReading(t, meterB, "2024-12-20", 0)
	f.addReading(t, meterB, "2025-01-20", 400)
	f.addReading(t, meterB, "2025-02-10", 600)

	svc := NewRateOfChangeService(f.db, 31)
	r, err := svc.ForTenant(f.tenantID, "2025-02-20", nil)
	require.NoError(t, err)

	require.Len(t, r.Meters, 2)
	assert.Equal(t, 400.0, r.CurrentConsumption)
	assert.Equal(t, 500.0, r.PreviousConsumption)

	require.NotNil(t, r.RateOfChange)
	assert.Equal(t, -20.0, *r.RateOfChange)
}

func TestForTenantPartialFailure(t *testing.T) {
	f := newFixture(t)

	ok := f.addMeter(t, "EL-OK", "electric", 1)
	f.addReading(t, ok, "2024-12-20", 0)
	f.addReading(t, ok, "2025-01-20", 100)
	f.addReading(t, ok, "2025-02-10", 150)

	// This meter has no readings at all
	f.addMeter(t, "EL-EMPTY", "electric", 1)

	svc := NewRateOfChangeService(f.db, 31)
	r, err := svc.ForTenant(f.tenantID, "2025-02-20", nil)
	require.NoError(t, err)

	require.Len(t, r.Meters, 2)

	var failed int
	for _, entry := range r.Meters {
		if entry.Error != "" {
			failed++
			assert.Nil(t, entry.Result)
		}
	}
	assert.Equal(t, 1, failed)

	assert.Equal(t, 50.0, r.CurrentConsumption)
	assert.Equal(t, 100.0, r.PreviousConsumption)
}

func TestForTenantUnknownTenant(t *testing.T) {
	f := newFixture(t)
	svc := NewRateOfChangeService(f.db, 31)

	_, err := svc.ForTenant(4242, "2025-02-20", nil)
	assert.True(t, IsNotFound(err))
}

func TestForBuilding(t *testing.T) {
	f := newFixture(t)

	meter := f.addMeter(t, "EL-BLDG", "electric", 1)
	f.addReading(t, meter, "2024-12-20", 0)
	f.addReading(t, meter, "2025-01-20", 100)
	f.addReading(t, meter, "2025-02-10", 150)

	svc := NewRateOfChangeService(f.db, 31)
	r, err := svc.ForBuilding(f.buildingID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, "Main Market", r.BuildingName)
	require.Len(t, r.Tenants, 1)
	assert.Equal(t, 50.0, r.CurrentConsumption)
	assert.Equal(t, 100.0, r.PreviousConsumption)

	require.NotNil(t, r.RateOfChange)
	assert.Equal(t, -50.0, *r.RateOfChange)
}

func TestForBuildingUnknownBuilding(t *testing.T) {
	f := newFixture(t)
	svc := NewRateOfChangeService(f.db, 31)

	_, err := svc.ForBuilding(4242, "2025-02-20")
	assert.True(t, IsNotFound(err))
}
