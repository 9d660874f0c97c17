package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type BillingService struct {
	db *sql.DB
}

func NewBillingService(db *sql.DB) *BillingService {
	return &BillingService{db: db}
}

// ComputeMeterBilling turns the latest readings of the current and previous
// calendar-month windows into a tax-adjusted charge for one meter. Both
// windows must hold a reading; nothing is substituted or estimated.
func (bs *BillingService) ComputeMeterBilling(meterID int, endDate string) (*models.MeterBilling, error) {
	end, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}

	mc, err := resolveMeterContext(bs.db, meterID)
	if err != nil {
		return nil, err
	}

	rates, err := lookupBuildingRates(bs.db, mc.BuildingID)
	if err != nil {
		return nil, err
	}

	current := CurrentBillingWindow(end)
	previous := PreviousBillingWindow(end)

	prevReading, err := requireReadingInWindow(bs.db, meterID, previous, "previous period")
	if err != nil {
		return nil, err
	}
	curReading, err := requireReadingInWindow(bs.db, meterID, current, "current period")
	if err != nil {
		return nil, err
	}

	vatRate, wtRate, err := lookupTaxRates(bs.db, mc.VatCodeID, mc.WtCodeID, mc.Meter.UtilityType)
	if err != nil {
		return nil, err
	}

	minimum := MinimumFor(mc.Meter.UtilityType, rates)
	unitRate := RateFor(mc.Meter.UtilityType, rates)

	consumption := BillableConsumption(prevReading.IndexValue, curReading.IndexValue, mc.Meter.Multiplier, minimum)
	breakdown := ComputeTax(consumption*unitRate, vatRate, wtRate, mc.Penalty, PenaltyRate)

	log.Printf("[BILLING] Meter %d (%s): %.2f -> %.2f, consumption %.2f, total %.2f",
		meterID, mc.Meter.UtilityType, prevReading.IndexValue, curReading.IndexValue,
		Round2(consumption), breakdown.Total)

	return &models.MeterBilling{
		MeterID:      mc.Meter.ID,
		SerialNumber: mc.Meter.SerialNumber,
		UtilityType:  mc.Meter.UtilityType,
		Multiplier:   mc.Meter.Multiplier,

		StallID:      mc.StallID,
		StallName:    mc.StallName,
		BuildingID:   mc.BuildingID,
		BuildingName: mc.BuildingName,
		TenantID:     mc.TenantID,
		TenantName:   mc.TenantName,

		CurrentPeriodStart:  current.StartDate(),
		CurrentPeriodEnd:    current.EndDate(),
		PreviousPeriodStart: previous.StartDate(),
		PreviousPeriodEnd:   previous.EndDate(),

		PreviousIndex:     prevReading.IndexValue,
		PreviousIndexDate: prevReading.ReadingDate,
		CurrentIndex:      curReading.IndexValue,
		CurrentIndexDate:  curReading.ReadingDate,

		Consumption: Round2(consumption),
		UnitRate:    unitRate,
		Breakdown:   breakdown,
	}, nil
}

// ComputeTenantBilling bills every active meter under the tenant's stalls,
// scope-filtered to the caller's allowed buildings (empty slice means no
// restriction). A failing meter becomes an inline error entry; totals cover
// successes only.
func (bs *BillingService) ComputeTenantBilling(tenantID int, endDate string, allowedBuildings []int) (*models.TenantBilling, error) {
	if _, err := ParseEndDate(endDate); err != nil {
		return nil, err
	}

	var firstName, lastName string
	err := bs.db.QueryRow(`SELECT first_name, last_name FROM tenants WHERE id = ?`, tenantID).
		Scan(&firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "tenant", ID: tenantID}
	}
	if err != nil {
		return nil, err
	}

	meters, err := tenantMeters(bs.db, tenantID, allowedBuildings)
	if err != nil {
		return nil, err
	}

	log.Printf("[BILLING] Tenant %d: billing %d meters up to %s", tenantID, len(meters), endDate)

	result := &models.TenantBilling{
		TenantID:   tenantID,
		TenantName: firstName + " " + lastName,
		PeriodEnd:  endDate,
		Meters:     []models.MeterBillingEntry{},
	}

	byType := map[string]*models.UtilityTotals{}

	for _, m := range meters {
		entry := models.MeterBillingEntry{
			MeterID:      m.ID,
			SerialNumber: m.SerialNumber,
			UtilityType:  m.UtilityType,
		}

		billing, err := bs.ComputeMeterBilling(m.ID, endDate)
		if err != nil {
			log.Printf("[BILLING] WARNING: Meter %d failed: %v", m.ID, err)
			entry.Error = err.Error()
			result.Meters = append(result.Meters, entry)
			continue
		}

		entry.Billing = billing
		result.Meters = append(result.Meters, entry)

		t, ok := byType[m.UtilityType]
		if !ok {
			t = &models.UtilityTotals{UtilityType: m.UtilityType}
			byType[m.UtilityType] = t
		}
		t.Consumption += billing.Consumption
		t.Base += billing.Breakdown.Base
		t.Vat += billing.Breakdown.Vat
		t.Wt += billing.Breakdown.Wt
		t.Penalty += billing.Breakdown.Penalty
		t.Total += billing.Breakdown.Total
	}

	// Fixed ordering so statements and JSON output are stable
	for _, utility := range []string{models.UtilityElectric, models.UtilityWater, models.UtilityLPG} {
		t, ok := byType[utility]
		if !ok {
			continue
		}
		t.Consumption = Round2(t.Consumption)
		t.Base = Round2(t.Base)
		t.Vat = Round2(t.Vat)
		t.Wt = Round2(t.Wt)
		t.Penalty = Round2(t.Penalty)
		t.Total = Round2(t.Total)
		result.TotalsByType = append(result.TotalsByType, *t)

		result.GrandTotal.Base += t.Base
		result.GrandTotal.Vat += t.Vat
		result.GrandTotal.Wt += t.Wt
		result.GrandTotal.Penalty += t.Penalty
		result.GrandTotal.Total += t.Total
	}

	result.GrandTotal.Base = Round2(result.GrandTotal.Base)
	result.GrandTotal.Vat = Round2(result.GrandTotal.Vat)
	result.GrandTotal.Wt = Round2(result.GrandTotal.Wt)
	result.GrandTotal.Penalty = Round2(result.GrandTotal.Penalty)
	result.GrandTotal.Total = Round2(result.GrandTotal.Total)

	return result, nil
}

// tenantMeters lists the active meters on the tenant's stalls, restricted to
// the allowed buildings when the caller manages a subset.
func tenantMeters(db *sql.DB, tenantID int, allowedBuildings []int) ([]models.Meter, error) {
	query := `
		SELECT m.id, m.serial_number, m.utility_type, m.stall_id, m.multiplier
		FROM meters m
		JOIN stalls s ON m.stall_id = s.id
		WHERE s.tenant_id = ? AND m.is_active = 1
	`
	args := []interface{}{tenantID}

	if len(allowedBuildings) > 0 {
		query += " AND s.building_id IN (?"
		args = append(args, allowedBuildings[0])
		for i := 1; i < len(allowedBuildings); i++ {
			query += ",?"
			args = append(args, allowedBuildings[i])
		}
		query += ")"
	}
	query += " ORDER BY m.id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant meters: %v", err)
	}
	defer rows.Close()

	meters := []models.Meter{}
	for rows.Next() {
		var m models.Meter
		if err := rows.Scan(&m.ID, &m.SerialNumber, &m.UtilityType, &m.StallID, &m.Multiplier); err != nil {
			continue
		}
		meters = append(meters, m)
	}
	return meters, rows.Err()
}
