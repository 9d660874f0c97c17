package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdeguzman/submeter-billing/backend/database"
	"github.com/jpdeguzman/submeter-billing/backend/models"
	"github.com/jpdeguzman/submeter-billing/backend/services"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// seedMeter creates building, rates, tenant, stall and one electric meter,
// returning the meter ID.
func seedMeter(t *testing.T, db *sql.DB) int {
	t.Helper()

	_, err := db.Exec(`INSERT INTO buildings (name) VALUES ('Annex')`)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO building_rates (building_id, electric_rate, electric_minimum)
		VALUES (1, 10.0, 50)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tenants (first_name, last_name) VALUES ('Jose', 'Reyes')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO stalls (name, building_id, tenant_id) VALUES ('S-1', 1, 1)`)
	require.NoError(t, err)

	res, err := db.Exec(`
		INSERT INTO meters (serial_number, utility_type, stall_id, multiplier)
		VALUES ('EL-H1', 'electric', 1, 1)
	`)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return int(id)
}

func getMeterBilling(h *BillingHandler, meterID, endDate string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/api/billing/meters/"+meterID+"?end_date="+endDate, nil)
	req = mux.SetURLVars(req, map[string]string{"id": meterID})
	rec := httptest.NewRecorder()
	h.GetMeterBilling(rec, req)
	return rec
}

func TestGetMeterBillingStatusMapping(t *testing.T) {
	db := newTestDB(t)
	seedMeter(t, db)

	h := NewBillingHandler(db, services.NewBillingService(db), services.NewStatementGenerator(t.TempDir()))

	// Malformed end date
	rec := getMeterBilling(h, "1", "not-a-date")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown meter
	rec = getMeterBilling(h, "999", "2025-02-20")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Known meter, no readings in the required windows
	rec = getMeterBilling(h, "1", "2025-02-20")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "previous period")
}

func TestGetMeterBillingSuccess(t *testing.T) {
	db := newTestDB(t)
	meterID := seedMeter(t, db)

	_, err := db.Exec(`
		INSERT INTO meter_readings (meter_id, reading_date, index_value) VALUES
		(?, '2025-01-15', 0), (?, '2025-02-10', 100)
	`, meterID, meterID)
	require.NoError(t, err)

	h := NewBillingHandler(db, services.NewBillingService(db), services.NewStatementGenerator(t.TempDir()))

	rec := getMeterBilling(h, "1", "2025-02-20")
	require.Equal(t, http.StatusOK, rec.Code)

	var b models.MeterBilling
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, 100.0, b.Consumption)
	assert.Equal(t, 1000.0, b.Breakdown.Base)
	// No tax codes assigned: base only
	assert.Equal(t, 1000.0, b.Breakdown.Total)
}

func TestGetTenantBillingPartialFailureIsOK(t *testing.T) {
	db := newTestDB(t)
	meterID := seedMeter(t, db)

	// Billable meter plus one with no readings at all
	_, err := db.Exec(`
		INSERT INTO meter_readings (meter_id, reading_date, index_value) VALUES
		(?, '2025-01-15', 0), (?, '2025-02-10', 100)
	`, meterID, meterID)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO meters (serial_number, utility_type, stall_id, multiplier)
		VALUES ('EL-H2', 'electric', 1, 1)
	`)
	require.NoError(t, err)

	h := NewBillingHandler(db, services.NewBillingService(db), services.NewStatementGenerator(t.TempDir()))

	req := httptest.NewRequest("GET", "/api/billing/tenants/1?end_date=2025-02-20", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.GetTenantBilling(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.TenantBilling
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Meters, 2)
	assert.Equal(t, 1000.0, result.GrandTotal.Total)

	var failed int
	for _, entry := range result.Meters {
		if entry.Error != "" {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
