package services

import (
	"database/sql"
	"log"
	"math"
	"time"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type RateOfChangeService struct {
	db         *sql.DB
	windowDays int
}

func NewRateOfChangeService(db *sql.DB, windowDays int) *RateOfChangeService {
	if windowDays <= 0 {
		windowDays = 31
	}
	return &RateOfChangeService{db: db, windowDays: windowDays}
}

// rocFromTotals derives the percentage change between two consumption
// figures. Ceiling, not nearest: +0.1% reports as 1, and the asymmetry is
// deliberate. A missing or non-positive previous figure yields nil, never 0.
func rocFromTotals(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	v := math.Ceil(((current - previous) / previous) * 100)
	return &v
}

// ForMeter computes the period-over-period consumption change for one meter.
// Readings are selected from calendar-month windows; the rolling display
// windows only label the output periods. No tax applies -- this is a
// physical-usage metric.
func (rs *RateOfChangeService) ForMeter(meterID int, endDate string) (*models.MeterRateOfChange, error) {
	end, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}
	result, _, _, err := rs.meterRoc(meterID, end)
	return result, err
}

// meterRoc additionally returns the unrounded consumption figures so
// aggregates can sum them without compounding output rounding.
func (rs *RateOfChangeService) meterRoc(meterID int, end time.Time) (*models.MeterRateOfChange, float64, *float64, error) {
	mc, err := resolveMeterContext(rs.db, meterID)
	if err != nil {
		return nil, 0, nil, err
	}

	rates, err := lookupBuildingRates(rs.db, mc.BuildingID)
	if err != nil {
		return nil, 0, nil, err
	}

	current := CurrentBillingWindow(end)
	previous := PreviousBillingWindow(end)
	prePrevious := PrePreviousBillingWindow(end)

	prevReading, err := requireReadingInWindow(rs.db, meterID, previous, "previous period")
	if err != nil {
		return nil, 0, nil, err
	}
	curReading, err := requireReadingInWindow(rs.db, meterID, current, "current period")
	if err != nil {
		return nil, 0, nil, err
	}

	// Pre-previous is optional; without it there is no comparison baseline.
	prePrevReading, err := LatestReadingInWindow(rs.db, meterID, prePrevious.Start, prePrevious.End)
	if err != nil {
		return nil, 0, nil, err
	}

	minimum := MinimumFor(mc.Meter.UtilityType, rates)

	currentConsumption := BillableConsumption(prevReading.IndexValue, curReading.IndexValue, mc.Meter.Multiplier, minimum)

	var previousConsumption *float64
	if prePrevReading != nil {
		v := BillableConsumption(prePrevReading.IndexValue, prevReading.IndexValue, mc.Meter.Multiplier, minimum)
		previousConsumption = &v
	}

	var roc *float64
	if previousConsumption != nil {
		roc = rocFromTotals(currentConsumption, *previousConsumption)
	}

	displayCurrent := CurrentDisplayWindow(end, rs.windowDays)
	displayPrevious := PreviousDisplayWindow(end, rs.windowDays)

	result := &models.MeterRateOfChange{
		MeterID:      mc.Meter.ID,
		SerialNumber: mc.Meter.SerialNumber,
		UtilityType:  mc.Meter.UtilityType,
		StallID:      mc.StallID,
		StallName:    mc.StallName,
		BuildingID:   mc.BuildingID,
		BuildingName: mc.BuildingName,
		TenantID:     mc.TenantID,
		TenantName:   mc.TenantName,

		DisplayCurrentStart:  displayCurrent.StartDate(),
		DisplayCurrentEnd:    displayCurrent.EndDate(),
		DisplayPreviousStart: displayPrevious.StartDate(),
		DisplayPreviousEnd:   displayPrevious.EndDate(),

		CurrentConsumption: Round2(currentConsumption),
		RateOfChange:       roc,
	}
	if previousConsumption != nil {
		rounded := Round2(*previousConsumption)
		result.PreviousConsumption = &rounded
	}

	return result, currentConsumption, previousConsumption, nil
}

// ForTenant computes per-meter rate of change for every active meter under
// the tenant's stalls and one aggregate figure from the summed totals.
func (rs *RateOfChangeService) ForTenant(tenantID int, endDate string, allowedBuildings []int) (*models.TenantRateOfChange, error) {
	end, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}

	var firstName, lastName string
	err = rs.db.QueryRow(`SELECT first_name, last_name FROM tenants WHERE id = ?`, tenantID).
		Scan(&firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "tenant", ID: tenantID}
	}
	if err != nil {
		return nil, err
	}

	result, _, _, err := rs.tenantRoc(tenantID, firstName+" "+lastName, end, allowedBuildings)
	return result, err
}

func (rs *RateOfChangeService) tenantRoc(tenantID int, tenantName string, end time.Time, allowedBuildings []int) (*models.TenantRateOfChange, float64, float64, error) {
	meters, err := tenantMeters(rs.db, tenantID, allowedBuildings)
	if err != nil {
		return nil, 0, 0, err
	}

	displayCurrent := CurrentDisplayWindow(end, rs.windowDays)
	displayPrevious := PreviousDisplayWindow(end, rs.windowDays)

	result := &models.TenantRateOfChange{
		TenantID:   tenantID,
		TenantName: tenantName,
		Meters:     []models.MeterRocEntry{},

		DisplayCurrentStart:  displayCurrent.StartDate(),
		DisplayCurrentEnd:    displayCurrent.EndDate(),
		DisplayPreviousStart: displayPrevious.StartDate(),
		DisplayPreviousEnd:   displayPrevious.EndDate(),
	}

	currentTotal := 0.0
	previousTotal := 0.0

	for _, m := range meters {
		entry := models.MeterRocEntry{
			MeterID:      m.ID,
			SerialNumber: m.SerialNumber,
			UtilityType:  m.UtilityType,
		}

		meterResult, curRaw, prevRaw, err := rs.meterRoc(m.ID, end)
		if err != nil {
			log.Printf("[ROC] WARNING: Meter %d failed: %v", m.ID, err)
			entry.Error = err.Error()
			result.Meters = append(result.Meters, entry)
			continue
		}

		entry.Result = meterResult
		result.Meters = append(result.Meters, entry)

		currentTotal += curRaw
		if prevRaw != nil {
			previousTotal += *prevRaw
		}
	}

	// Aggregate-then-ratio: one percentage from the summed totals, never an
	// average of the per-meter percentages.
	result.CurrentConsumption = Round2(currentTotal)
	result.PreviousConsumption = Round2(previousTotal)
	result.RateOfChange = rocFromTotals(currentTotal, previousTotal)

	return result, currentTotal, previousTotal, nil
}

// ForBuilding groups the building's tenanted stalls by tenant, computes each
// group the same way as ForTenant scoped to this building, and derives the
// building figure from the summed group totals.
func (rs *RateOfChangeService) ForBuilding(buildingID int, endDate string) (*models.BuildingRateOfChange, error) {
	end, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}

	var buildingName string
	err = rs.db.QueryRow(`SELECT name FROM buildings WHERE id = ?`, buildingID).Scan(&buildingName)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "building", ID: buildingID}
	}
	if err != nil {
		return nil, err
	}

	rows, err := rs.db.Query(`
		SELECT DISTINCT t.id, t.first_name, t.last_name
		FROM tenants t
		JOIN stalls s ON s.tenant_id = t.id
		WHERE s.building_id = ?
		ORDER BY t.id
	`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type tenantRow struct {
		id   int
		name string
	}
	tenantRows := []tenantRow{}
	for rows.Next() {
		var tr tenantRow
		var firstName, lastName string
		if err := rows.Scan(&tr.id, &firstName, &lastName); err != nil {
			continue
		}
		tr.name = firstName + " " + lastName
		tenantRows = append(tenantRows, tr)
	}
	rows.Close()

	result := &models.BuildingRateOfChange{
		BuildingID:   buildingID,
		BuildingName: buildingName,
		Tenants:      []models.TenantRateOfChange{},
	}

	currentTotal := 0.0
	previousTotal := 0.0

	for _, tr := range tenantRows {
		group, curRaw, prevRaw, err := rs.tenantRoc(tr.id, tr.name, end, []int{buildingID})
		if err != nil {
			log.Printf("[ROC] WARNING: Tenant %d in building %d failed: %v", tr.id, buildingID, err)
			continue
		}
		result.Tenants = append(result.Tenants, *group)
		currentTotal += curRaw
		previousTotal += prevRaw
	}

	result.CurrentConsumption = Round2(currentTotal)
	result.PreviousConsumption = Round2(previousTotal)
	result.RateOfChange = rocFromTotals(currentTotal, previousTotal)

	return result, nil
}
