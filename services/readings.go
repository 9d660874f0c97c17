package services

import (
	"database/sql"
	"time"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

// LatestReadingInWindow returns the reading with the maximum date for a meter
// inside the inclusive [start, end] window, or nil when the window holds no
// reading. Absence is not an error here; callers decide whether it is fatal.
func LatestReadingInWindow(db *sql.DB, meterID int, start, end time.Time) (*models.MeterReading, error) {
	var r models.MeterReading
	err := db.QueryRow(`
		SELECT id, meter_id, reading_date, index_value, recorded_by, created_at
		FROM meter_readings
		WHERE meter_id = ? AND reading_date >= ? AND reading_date <= ?
		ORDER BY reading_date DESC
		LIMIT 1
	`, meterID, start.Format(dateLayout), end.Format(dateLayout)).Scan(
		&r.ID, &r.MeterID, &r.ReadingDate, &r.IndexValue, &r.RecordedBy, &r.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// requireReadingInWindow is LatestReadingInWindow with absence promoted to an
// InsufficientDataError naming the empty window.
func requireReadingInWindow(db *sql.DB, meterID int, w BillingWindow, windowName string) (*models.MeterReading, error) {
	r, err := LatestReadingInWindow(db, meterID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &InsufficientDataError{
			MeterID: meterID,
			Window:  windowName,
			Start:   w.StartDate(),
			End:     w.EndDate(),
		}
	}
	return r, nil
}

// meterContext is a meter resolved through its stall to building and tenant.
type meterContext struct {
	Meter        models.Meter
	StallID      int
	StallName    string
	BuildingID   int
	BuildingName string
	TenantID     *int
	TenantName   string
	Penalty      bool
	VatCodeID    *int
	WtCodeID     *int
}

func resolveMeterContext(db *sql.DB, meterID int) (*meterContext, error) {
	var mc meterContext
	var tenantID, vatCodeID, wtCodeID sql.NullInt64
	var firstName, lastName sql.NullString
	var penalty sql.NullBool

	err := db.QueryRow(`
		SELECT m.id, m.serial_number, m.utility_type, m.multiplier, m.is_active,
		       s.id, s.name, b.id, b.name,
		       s.tenant_id, t.first_name, t.last_name, t.penalty, t.vat_code_id, t.wt_code_id
		FROM meters m
		JOIN stalls s ON m.stall_id = s.id
		JOIN buildings b ON s.building_id = b.id
		LEFT JOIN tenants t ON s.tenant_id = t.id
		WHERE m.id = ?
	`, meterID).Scan(
		&mc.Meter.ID, &mc.Meter.SerialNumber, &mc.Meter.UtilityType, &mc.Meter.Multiplier, &mc.Meter.IsActive,
		&mc.StallID, &mc.StallName, &mc.BuildingID, &mc.BuildingName,
		&tenantID, &firstName, &lastName, &penalty, &vatCodeID, &wtCodeID,
	)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "meter", ID: meterID}
	}
	if err != nil {
		return nil, err
	}

	if !models.ValidUtility(mc.Meter.UtilityType) {
		return nil, &ValidationError{Msg: "unsupported meter type " + mc.Meter.UtilityType}
	}

	mc.Meter.StallID = mc.StallID
	if tenantID.Valid {
		id := int(tenantID.Int64)
		mc.TenantID = &id
		mc.TenantName = firstName.String + " " + lastName.String
		mc.Penalty = penalty.Valid && penalty.Bool
	}
	if vatCodeID.Valid {
		id := int(vatCodeID.Int64)
		mc.VatCodeID = &id
	}
	if wtCodeID.Valid {
		id := int(wtCodeID.Int64)
		mc.WtCodeID = &id
	}

	return &mc, nil
}

func lookupBuildingRates(db *sql.DB, buildingID int) (*models.BuildingRate, error) {
	var r models.BuildingRate
	err := db.QueryRow(`
		SELECT id, building_id, electric_rate, electric_minimum,
		       water_rate, water_minimum, lpg_rate, created_at, updated_at
		FROM building_rates WHERE building_id = ?
	`, buildingID).Scan(
		&r.ID, &r.BuildingID, &r.ElectricRate, &r.ElectricMinimum,
		&r.WaterRate, &r.WaterMinimum, &r.LPGRate, &r.CreatedAt, &r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "building rates for building", ID: buildingID}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// lookupTaxRates resolves a tenant's VAT and WT percentages for one utility
// type. Null codes mean 0% for that component.
func lookupTaxRates(db *sql.DB, vatCodeID, wtCodeID *int, utilityType string) (vatRate, wtRate float64, err error) {
	column := utilityType
	if vatCodeID != nil {
		err = db.QueryRow(`SELECT `+column+` FROM vat_codes WHERE id = ?`, *vatCodeID).Scan(&vatRate)
		if err == sql.ErrNoRows {
			return 0, 0, &NotFoundError{Entity: "vat code", ID: *vatCodeID}
		}
		if err != nil {
			return 0, 0, err
		}
	}

	if wtCodeID != nil {
		err = db.QueryRow(`SELECT `+column+` FROM wt_codes WHERE id = ?`, *wtCodeID).Scan(&wtRate)
		if err == sql.ErrNoRows {
			return 0, 0, &NotFoundError{Entity: "wt code", ID: *wtCodeID}
		}
		if err != nil {
			return 0, 0, err
		}
	}

	return vatRate, wtRate, nil
}
