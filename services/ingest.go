package services

import (
	"database/sql"
	"time"
)

// recordDailyReading upserts the day's index reading for a meter. Collectors
// may report several times a day; the last value for the calendar date wins,
// keeping the one-reading-per-(meter, date) invariant.
func recordDailyReading(db *sql.DB, meterID int, indexValue float64, source string) error {
	_, err := db.Exec(`
		INSERT INTO meter_readings (meter_id, reading_date, index_value, recorded_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(meter_id, reading_date) DO UPDATE SET
			index_value = excluded.index_value,
			recorded_by = excluded.recorded_by
	`, meterID, time.Now().Format(dateLayout), indexValue, source)
	return err
}
