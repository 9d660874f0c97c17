package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type DashboardHandler struct {
	db *sql.DB
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats models.DashboardStats

	h.db.QueryRow("SELECT COUNT(*) FROM buildings").Scan(&stats.TotalBuildings)
	h.db.QueryRow("SELECT COUNT(*) FROM tenants").Scan(&stats.TotalTenants)
	h.db.QueryRow("SELECT COUNT(*) FROM stalls").Scan(&stats.TotalStalls)
	h.db.QueryRow("SELECT COUNT(*) FROM meters").Scan(&stats.TotalMeters)
	h.db.QueryRow("SELECT COUNT(*) FROM meters WHERE is_active = 1").Scan(&stats.ActiveMeters)

	today := time.Now().Format("2006-01-02")
	monthStart := time.Now().Format("2006-01") + "-01"

	h.db.QueryRow("SELECT COUNT(*) FROM meter_readings WHERE reading_date = ?", today).
		Scan(&stats.ReadingsToday)
	h.db.QueryRow("SELECT COUNT(*) FROM meter_readings WHERE reading_date >= ?", monthStart).
		Scan(&stats.ReadingsThisMonth)

	// Raw index delta per meter this month, multiplier applied. An overview
	// figure only; billing minimums do not apply here.
	err := h.db.QueryRow(`
		SELECT COALESCE(SUM((latest.index_value - earliest.index_value) * m.multiplier), 0)
		FROM meters m
		JOIN (
			SELECT meter_id, index_value
			FROM meter_readings r1
			WHERE reading_date = (
				SELECT MAX(reading_date) FROM meter_readings r2
				WHERE r2.meter_id = r1.meter_id AND r2.reading_date >= ?
			)
		) latest ON latest.meter_id = m.id
		JOIN (
			SELECT meter_id, index_value
			FROM meter_readings r1
			WHERE reading_date = (
				SELECT MIN(reading_date) FROM meter_readings r2
				WHERE r2.meter_id = r1.meter_id AND r2.reading_date >= ?
			)
		) earliest ON earliest.meter_id = m.id
		WHERE m.is_active = 1
	`, monthStart, monthStart).Scan(&stats.MonthConsumption)
	if err != nil {
		log.Printf("WARNING: Failed to compute month consumption: %v", err)
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, action, details, user_id, COALESCE(ip_address, ''), created_at
		FROM admin_logs ORDER BY created_at DESC LIMIT 100
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query admin logs: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	logs := []models.AdminLog{}
	for rows.Next() {
		var entry models.AdminLog
		var userID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Details, &userID,
			&entry.IPAddress, &entry.CreatedAt); err == nil {
			if userID.Valid {
				id := int(userID.Int64)
				entry.UserID = &id
			}
			logs = append(logs, entry)
		}
	}

	writeJSON(w, http.StatusOK, logs)
}
