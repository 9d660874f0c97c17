package models

import "time"

const (
	UtilityElectric = "electric"
	UtilityWater    = "water"
	UtilityLPG      = "lpg"
)

// ValidUtility reports whether t is one of the supported meter types.
func ValidUtility(t string) bool {
	return t == UtilityElectric || t == UtilityWater || t == UtilityLPG
}

type AdminUser struct {
	ID               int       `json:"id"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	ManagedBuildings string    `json:"managed_buildings"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Building struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	AddressStreet string    `json:"address_street"`
	AddressCity   string    `json:"address_city"`
	AddressZip    string    `json:"address_zip"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BuildingRate holds the per-building unit rates and minimum billable
// consumption for electric and water. LPG is billed per kilogram and uses a
// fixed minimum, so it carries a rate only.
type BuildingRate struct {
	ID              int       `json:"id"`
	BuildingID      int       `json:"building_id"`
	ElectricRate    float64   `json:"electric_rate"`
	ElectricMinimum float64   `json:"electric_minimum"`
	WaterRate       float64   `json:"water_rate"`
	WaterMinimum    float64   `json:"water_minimum"`
	LPGRate         float64   `json:"lpg_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VatCode is a named VAT percentage bundle, one value per utility type.
// Values may be stored as whole-number percents (12) or fractions (0.12).
type VatCode struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Electric  float64   `json:"electric"`
	Water     float64   `json:"water"`
	LPG       float64   `json:"lpg"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WtCode is a named withholding-tax percentage bundle, one value per utility
// type, applied against the VAT amount.
type WtCode struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Electric  float64   `json:"electric"`
	Water     float64   `json:"water"`
	LPG       float64   `json:"lpg"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tenant struct {
	ID        int       `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	VatCodeID *int      `json:"vat_code_id"`
	WtCodeID  *int      `json:"wt_code_id"`
	Penalty   bool      `json:"penalty"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Stall struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	BuildingID int       `json:"building_id"`
	TenantID   *int      `json:"tenant_id"`
	Floor      string    `json:"floor"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Meter struct {
	ID               int       `json:"id"`
	SerialNumber     string    `json:"serial_number"`
	UtilityType      string    `json:"utility_type"`
	StallID          int       `json:"stall_id"`
	Multiplier       float64   `json:"multiplier"`
	ConnectionType   string    `json:"connection_type"`
	ConnectionConfig string    `json:"connection_config"`
	Notes            string    `json:"notes"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MeterReading is a cumulative index value recorded for a meter on a calendar
// date. At most one reading exists per (meter, date).
type MeterReading struct {
	ID          int       `json:"id"`
	MeterID     int       `json:"meter_id"`
	ReadingDate string    `json:"reading_date"`
	IndexValue  float64   `json:"index_value"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type AdminLog struct {
	ID        int       `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	UserID    *int      `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// TaxBreakdown is the monetary result of the tax cascade over a base amount.
type TaxBreakdown struct {
	Base    float64 `json:"base"`
	Vat     float64 `json:"vat"`
	Wt      float64 `json:"wt"`
	Penalty float64 `json:"penalty"`
	Total   float64 `json:"total"`
}

// MeterBilling is the full billing result for one meter and one end date.
type MeterBilling struct {
	MeterID      int     `json:"meter_id"`
	SerialNumber string  `json:"serial_number"`
	UtilityType  string  `json:"utility_type"`
	Multiplier   float64 `json:"multiplier"`

	StallID      int    `json:"stall_id"`
	StallName    string `json:"stall_name"`
	BuildingID   int    `json:"building_id"`
	BuildingName string `json:"building_name"`
	TenantID     *int   `json:"tenant_id"`
	TenantName   string `json:"tenant_name,omitempty"`

	CurrentPeriodStart  string `json:"current_period_start"`
	CurrentPeriodEnd    string `json:"current_period_end"`
	PreviousPeriodStart string `json:"previous_period_start"`
	PreviousPeriodEnd   string `json:"previous_period_end"`

	PreviousIndex     float64 `json:"previous_index"`
	PreviousIndexDate string  `json:"previous_index_date"`
	CurrentIndex      float64 `json:"current_index"`
	CurrentIndexDate  string  `json:"current_index_date"`

	Consumption float64      `json:"consumption"`
	UnitRate    float64      `json:"unit_rate"`
	Breakdown   TaxBreakdown `json:"breakdown"`
}

// MeterBillingEntry wraps a per-meter billing outcome inside a tenant
// aggregate: either a result or the reason it failed, never both.
type MeterBillingEntry struct {
	MeterID      int           `json:"meter_id"`
	SerialNumber string        `json:"serial_number"`
	UtilityType  string        `json:"utility_type"`
	Billing      *MeterBilling `json:"billing,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// UtilityTotals sums billing figures across one utility type.
type UtilityTotals struct {
	UtilityType string  `json:"utility_type"`
	Consumption float64 `json:"consumption"`
	Base        float64 `json:"base"`
	Vat         float64 `json:"vat"`
	Wt          float64 `json:"wt"`
	Penalty     float64 `json:"penalty"`
	Total       float64 `json:"total"`
}

type TenantBilling struct {
	TenantID     int                 `json:"tenant_id"`
	TenantName   string              `json:"tenant_name"`
	PeriodEnd    string              `json:"period_end"`
	Meters       []MeterBillingEntry `json:"meters"`
	TotalsByType []UtilityTotals     `json:"totals_by_type"`
	GrandTotal   TaxBreakdown        `json:"grand_total"`
}

// MeterRateOfChange reports period-over-period consumption movement for one
// meter. Display periods are rolling-window labels only; the consumption
// figures come from calendar-month reading selection.
type MeterRateOfChange struct {
	MeterID      int    `json:"meter_id"`
	SerialNumber string `json:"serial_number"`
	UtilityType  string `json:"utility_type"`
	StallID      int    `json:"stall_id"`
	StallName    string `json:"stall_name"`
	BuildingID   int    `json:"building_id"`
	BuildingName string `json:"building_name"`
	TenantID     *int   `json:"tenant_id"`
	TenantName   string `json:"tenant_name,omitempty"`

	DisplayCurrentStart  string `json:"display_current_start"`
	DisplayCurrentEnd    string `json:"display_current_end"`
	DisplayPreviousStart string `json:"display_previous_start"`
	DisplayPreviousEnd   string `json:"display_previous_end"`

	CurrentConsumption  float64  `json:"current_consumption"`
	PreviousConsumption *float64 `json:"previous_consumption"`
	RateOfChange        *float64 `json:"rate_of_change"`
}

type MeterRocEntry struct {
	MeterID      int                `json:"meter_id"`
	SerialNumber string             `json:"serial_number"`
	UtilityType  string             `json:"utility_type"`
	Result       *MeterRateOfChange `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// TenantRateOfChange aggregates meter ROC under one tenant. The aggregate
// percentage is derived from the summed consumption totals, not from
// averaging the per-meter percentages.
type TenantRateOfChange struct {
	TenantID            int             `json:"tenant_id"`
	TenantName          string          `json:"tenant_name"`
	Meters              []MeterRocEntry `json:"meters"`
	CurrentConsumption  float64         `json:"current_consumption"`
	PreviousConsumption float64         `json:"previous_consumption"`
	RateOfChange        *float64        `json:"rate_of_change"`

	DisplayCurrentStart  string `json:"display_current_start"`
	DisplayCurrentEnd    string `json:"display_current_end"`
	DisplayPreviousStart string `json:"display_previous_start"`
	DisplayPreviousEnd   string `json:"display_previous_end"`
}

type BuildingRateOfChange struct {
	BuildingID          int                  `json:"building_id"`
	BuildingName        string               `json:"building_name"`
	Tenants             []TenantRateOfChange `json:"tenants"`
	CurrentConsumption  float64              `json:"current_consumption"`
	PreviousConsumption float64              `json:"previous_consumption"`
	RateOfChange        *float64             `json:"rate_of_change"`
}

type DashboardStats struct {
	TotalBuildings    int     `json:"total_buildings"`
	TotalTenants      int     `json:"total_tenants"`
	TotalStalls       int     `json:"total_stalls"`
	TotalMeters       int     `json:"total_meters"`
	ActiveMeters      int     `json:"active_meters"`
	ReadingsToday     int     `json:"readings_today"`
	ReadingsThisMonth int     `json:"readings_this_month"`
	MonthConsumption  float64 `json:"month_consumption"`
}
