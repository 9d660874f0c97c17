package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdeguzman/submeter-billing/backend/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	db         *sql.DB
	buildingID int
	tenantID   int
	stallID    int
}

// newFixture seeds one building (electric 10.00/unit, minimum 50), a VAT code
// of 12%, a WT code of 5% and one tenant assigned both codes on one stall.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	res, err := db.Exec(`INSERT INTO buildings (name) VALUES ('Main Market')`)
	require.NoError(t, err)
	buildingID64, _ := res.LastInsertId()
	buildingID := int(buildingID64)

	_, err = db.Exec(`
		INSERT INTO building_rates (building_id, electric_rate, electric_minimum, water_rate, water_minimum, lpg_rate)
		VALUES (?, 10.0, 50, 42.0, 3, 95.0)
	`, buildingID)
	require.NoError(t, err)

	res, err = db.Exec(`INSERT INTO vat_codes (name, electric, water, lpg) VALUES ('VAT12', 12, 12, 12)`)
	require.NoError(t, err)
	vatID, _ := res.LastInsertId()

	res, err = db.Exec(`INSERT INTO wt_codes (name, electric, water, lpg) VALUES ('WT5', 5, 5, 5)`)
	require.NoError(t, err)
	wtID, _ := res.LastInsertId()

	res, err = db.Exec(`
		INSERT INTO tenants (first_name, last_name, vat_code_id, wt_code_id, penalty)
		VALUES ('Maria', 'Santos', ?, ?, 0)
	`, vatID, wtID)
	require.NoError(t, err)
	tenantID64, _ := res.LastInsertId()
	tenantID := int(tenantID64)

	res, err = db.Exec(`INSERT INTO stalls (name, building_id, tenant_id) VALUES ('S-101', ?, ?)`, buildingID, tenantID)
	require.NoError(t, err)
	stallID64, _ := res.LastInsertId()

	return &fixture{db: db, buildingID: buildingID, tenantID: tenantID, stallID: int(stallID64)}
}

func (f *fixture) addMeter(t *testing.T, serial, utility string, multiplier float64) int {
	t.Helper()
	res, err := f.db.Exec(`
		INSERT INTO meters (serial_number, utility_type, stall_id, multiplier)
		VALUES (?, ?, ?, ?)
	`, serial, utility, f.stallID, multiplier)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return int(id)
}

func (f *fixture) addReading(t *testing.T, meterID int, date string, index float64) {
	t.Helper()
	_, err := f.db.Exec(`
		INSERT INTO meter_readings (meter_id, reading_date, index_value, recorded_by)
		VALUES (?, ?, ?, 'test')
	`, meterID, date, index)
	require.NoError(t, err)
}

func TestComputeMeterBilling(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-001", "electric", 80)
	f.addReading(t, meterID, "2025-01-15", 100.00)
	f.addReading(t, meterID, "2025-02-10", 101.50)

	svc := NewBillingService(f.db)
	b, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, "2025-02-01", b.CurrentPeriodStart)
	assert.Equal(t, "2025-02-20", b.CurrentPeriodEnd)
	assert.Equal(t, "2025-01-01", b.PreviousPeriodStart)
	assert.Equal(t, "2025-01-31", b.PreviousPeriodEnd)

	assert.Equal(t, 100.00, b.PreviousIndex)
	assert.Equal(t, 101.50, b.CurrentIndex)
	assert.Equal(t, 120.0, b.Consumption)
	assert.Equal(t, 10.0, b.UnitRate)

	// 120 units * 10.00 = 1200; VAT 12% = 144; WT 5% of VAT = 7.20
	assert.Equal(t, 1200.0, b.Breakdown.Base)
	assert.Equal(t, 144.0, b.Breakdown.Vat)
	assert.Equal(t, 7.2, b.Breakdown.Wt)
	assert.Equal(t, 0.0, b.Breakdown.Penalty)
	assert.Equal(t, 1336.8, b.Breakdown.Total)

	assert.Equal(t, "Maria Santos", b.TenantName)
	assert.Equal(t, "Main Market", b.BuildingName)
}

func TestComputeMeterBillingPicksLatestReadingInWindow(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-002", "electric", 1)
	f.addReading(t, meterID, "2025-01-05", 90)
	f.addReading(t, meterID, "2025-01-28", 100)
	f.addReading(t, meterID, "2025-02-03", 105)
	f.addReading(t, meterID, "2025-02-10", 110)

	svc := NewBillingService(f.db)
	b, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-28", b.PreviousIndexDate)
	assert.Equal(t, "2025-02-10", b.CurrentIndexDate)
	assert.Equal(t, 10.0, b.Consumption)
}

func TestComputeMeterBillingRolloverBillsMinimum(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-003", "electric", 1)
	f.addReading(t, meterID, "2025-01-20", 9999)
	f.addReading(t, meterID, "2025-02-10", 5)

	svc := NewBillingService(f.db)
	b, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.NoError(t, err)

	assert.Equal(t, 50.0, b.Consumption)
	assert.Equal(t, 500.0, b.Breakdown.Base)
}

func TestComputeMeterBillingMissingPreviousWindow(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-004", "electric", 1)
	f.addReading(t, meterID, "2025-02-10", 100)

	svc := NewBillingService(f.db)
	_, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.Error(t, err)
	assert.True(t, IsInsufficientData(err))
	assert.Contains(t, err.Error(), "previous period")
	assert.Contains(t, err.Error(), "2025-01-01")
	assert.Contains(t, err.Error(), "2025-01-31")
}

func TestComputeMeterBillingMissingCurrentWindow(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-005", "electric", 1)
	f.addReading(t, meterID, "2025-01-10", 100)

	svc := NewBillingService(f.db)
	_, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.Error(t, err)
	assert.True(t, IsInsufficientData(err))
	assert.Contains(t, err.Error(), "current period")
}

func TestComputeMeterBillingUnknownMeter(t *testing.T) {
	f := newFixture(t)
	svc := NewBillingService(f.db)

	_, err := svc.ComputeMeterBilling(9999, "2025-02-20")
	assert.True(t, IsNotFound(err))
}

func TestComputeMeterBillingInvalidEndDate(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-006", "electric", 1)

	svc := NewBillingService(f.db)
	_, err := svc.ComputeMeterBilling(meterID, "February 20")
	assert.True(t, IsValidation(err))
}

func TestComputeMeterBillingPenaltyTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.Exec(`UPDATE tenants SET penalty = 1 WHERE id = ?`, f.tenantID)
	require.NoError(t, err)

	meterID := f.addMeter(t, "EL-007", "electric", 1)
	f.addReading(t, meterID, "2025-01-20", 0)
	f.addReading(t, meterID, "2025-02-10", 100)

	svc := NewBillingService(f.db)
	b, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.NoError(t, err)

	// base 1000, VAT 120, WT 6, penalty 25% of base = 250
	assert.Equal(t, 250.0, b.Breakdown.Penalty)
	assert.Equal(t, 1364.0, b.Breakdown.Total)
}

func TestComputeMeterBillingNoTaxCodes(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.Exec(`UPDATE tenants SET vat_code_id = NULL, wt_code_id = NULL WHERE id = ?`, f.tenantID)
	require.NoError(t, err)

	meterID := f.addMeter(t, "WA-001", "water", 1)
	f.addReading(t, meterID, "2025-01-20", 10)
	f.addReading(t, meterID, "2025-02-10", 20)

	svc := NewBillingService(f.db)
	b, err := svc.ComputeMeterBilling(meterID, "2025-02-20")
	require.NoError(t, err)

	// 10 units * 42.00, no VAT or WT without assigned codes
	assert.Equal(t, 420.0, b.Breakdown.Base)
	assert.Equal(t, 0.0, b.Breakdown.Vat)
	assert.Equal(t, 0.0, b.Breakdown.Wt)
	assert.Equal(t, 420.0, b.Breakdown.Total)
}

func TestComputeTenantBillingPartialFailure(t *testing.T) {
	f := newFixture(t)

	// Meter A has no current-window reading; meter B bills normally
	meterA := f.addMeter(t, "EL-A", "electric", 1)
	f.addReading(t, meterA, "2025-01-15", 100)

	meterB := f.addMeter(t, "EL-B", "electric", 1)
	f.addReading(t, meterB, "2025-01-15", 0)
	f.addReading(t, meterB, "2025-02-10", 100)

	svc := NewBillingService(f.db)
	result, err := svc.ComputeTenantBilling(f.tenantID, "2025-02-20", nil)
	require.NoError(t, err)

	require.Len(t, result.Meters, 2)

	var failed, billed int
	for _, entry := range result.Meters {
		if entry.Error != "" {
			failed++
			assert.Nil(t, entry.Billing)
			assert.Contains(t, entry.Error, "current period")
		} else {
			billed++
			require.NotNil(t, entry.Billing)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, billed)

	// Totals cover the successful meter only
	require.Len(t, result.TotalsByType, 1)
	assert.Equal(t, "electric", result.TotalsByType[0].UtilityType)
	assert.Equal(t, 100.0, result.TotalsByType[0].Consumption)
	assert.Equal(t, 1000.0, result.GrandTotal.Base)
	assert.Equal(t, 1114.0, result.GrandTotal.Total)
}

func TestComputeTenantBillingOrdersUtilityTotals(t *testing.T) {
	f := newFixture(t)

	lpg := f.addMeter(t, "LPG-1", "lpg", 1)
	f.addReading(t, lpg, "2025-01-15", 0)
	f.addReading(t, lpg, "2025-02-10", 2)

	electric := f.addMeter(t, "EL-1", "electric", 1)
	f.addReading(t, electric, "2025-01-15", 0)
	f.addReading(t, electric, "2025-02-10", 10)

	svc := NewBillingService(f.db)
	result, err := svc.ComputeTenantBilling(f.tenantID, "2025-02-20", nil)
	require.NoError(t, err)

	require.Len(t, result.TotalsByType, 2)
	assert.Equal(t, "electric", result.TotalsByType[0].UtilityType)
	assert.Equal(t, "lpg", result.TotalsByType[1].UtilityType)
}

func TestComputeTenantBillingScopedToBuildings(t *testing.T) {
	f := newFixture(t)

	meter := f.addMeter(t, "EL-S", "electric", 1)
	f.addReading(t, meter, "2025-01-15", 0)
	f.addReading(t, meter, "2025-02-10", 10)

	svc := NewBillingService(f.db)

	// Scope excludes the tenant's building: no meters, empty result
	result, err := svc.ComputeTenantBilling(f.tenantID, "2025-02-20", []int{f.buildingID + 100})
	require.NoError(t, err)
	assert.Empty(t, result.Meters)

	result, err = svc.ComputeTenantBilling(f.tenantID, "2025-02-20", []int{f.buildingID})
	require.NoError(t, err)
	assert.Len(t, result.Meters, 1)
}

func TestComputeTenantBillingUnknownTenant(t *testing.T) {
	f := newFixture(t)
	svc := NewBillingService(f.db)

	_, err := svc.ComputeTenantBilling(4242, "2025-02-20", nil)
	assert.True(t, IsNotFound(err))
}
