package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
)

type ExportHandler struct {
	db *sql.DB
}

func NewExportHandler(db *sql.DB) *ExportHandler {
	return &ExportHandler{db: db}
}

// ExportReadings streams index readings as CSV, optionally filtered to one
// meter, between start_date and end_date inclusive.
func (h *ExportHandler) ExportReadings(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	meterIDStr := r.URL.Query().Get("meter_id")

	if startDate == "" || endDate == "" {
		http.Error(w, "start_date and end_date are required", http.StatusBadRequest)
		return
	}
	if !validReadingDate(startDate) || !validReadingDate(endDate) {
		http.Error(w, "Dates must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	query := `
		SELECT m.id, m.serial_number, m.utility_type,
		       b.name, s.name,
		       COALESCE(t.first_name || ' ' || t.last_name, ''),
		       r.reading_date, r.index_value, COALESCE(r.recorded_by, '')
		FROM meter_readings r
		JOIN meters m ON r.meter_id = m.id
		JOIN stalls s ON m.stall_id = s.id
		JOIN buildings b ON s.building_id = b.id
		LEFT JOIN tenants t ON s.tenant_id = t.id
		WHERE r.reading_date >= ? AND r.reading_date <= ?
	`
	args := []interface{}{startDate, endDate}

	if meterIDStr != "" {
		meterID, err := strconv.Atoi(meterIDStr)
		if err != nil {
			http.Error(w, "Invalid meter_id", http.StatusBadRequest)
			return
		}
		query += " AND m.id = ?"
		args = append(args, meterID)
	}
	query += " ORDER BY m.id, r.reading_date"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Readings export query failed: %v", err)
		http.Error(w, "Failed to export readings", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	filename := fmt.Sprintf("readings-%s-to-%s.csv", startDate, endDate)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"meter_id", "serial_number", "utility_type", "building",
		"stall", "tenant", "reading_date", "index_value", "recorded_by"})

	for rows.Next() {
		var meterID int
		var serial, utility, building, stall, tenant, date, recordedBy string
		var index float64
		if err := rows.Scan(&meterID, &serial, &utility, &building, &stall,
			&tenant, &date, &index, &recordedBy); err != nil {
			continue
		}
		writer.Write([]string{
			strconv.Itoa(meterID), serial, utility, building, stall, tenant,
			date, strconv.FormatFloat(index, 'f', 2, 64), recordedBy,
		})
	}
}
