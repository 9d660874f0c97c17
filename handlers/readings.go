package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jpdeguzman/submeter-billing/backend/middleware"
	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type ReadingHandler struct {
	db *sql.DB
}

func NewReadingHandler(db *sql.DB) *ReadingHandler {
	return &ReadingHandler{db: db}
}

type readingRequest struct {
	MeterID     int     `json:"meter_id"`
	ReadingDate string  `json:"reading_date"`
	IndexValue  float64 `json:"index_value"`
}

func validReadingDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// List returns readings for one meter, newest first, optionally bounded by
// from/to dates.
func (h *ReadingHandler) List(w http.ResponseWriter, r *http.Request) {
	meterID, err := strconv.Atoi(r.URL.Query().Get("meter_id"))
	if err != nil {
		http.Error(w, "meter_id is required", http.StatusBadRequest)
		return
	}

	query := `
		SELECT id, meter_id, reading_date, index_value, COALESCE(recorded_by, ''), created_at
		FROM meter_readings WHERE meter_id = ?
	`
	args := []interface{}{meterID}

	if from := r.URL.Query().Get("from"); from != "" {
		if !validReadingDate(from) {
			http.Error(w, "Invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		query += " AND reading_date >= ?"
		args = append(args, from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if !validReadingDate(to) {
			http.Error(w, "Invalid to date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		query += " AND reading_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY reading_date DESC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Failed to query readings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	readings := []models.MeterReading{}
	for rows.Next() {
		var rd models.MeterReading
		if err := rows.Scan(&rd.ID, &rd.MeterID, &rd.ReadingDate, &rd.IndexValue,
			&rd.RecordedBy, &rd.CreatedAt); err == nil {
			readings = append(readings, rd)
		}
	}

	writeJSON(w, http.StatusOK, readings)
}

// Create records a manual index reading. A second reading for the same meter
// and date is rejected; corrections go through PUT.
func (h *ReadingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.MeterID == 0 || req.ReadingDate == "" {
		http.Error(w, "meter_id and reading_date are required", http.StatusBadRequest)
		return
	}
	if !validReadingDate(req.ReadingDate) {
		http.Error(w, "Invalid reading_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if req.IndexValue < 0 {
		http.Error(w, "index_value must not be negative", http.StatusBadRequest)
		return
	}

	var exists int
	h.db.QueryRow("SELECT COUNT(*) FROM meters WHERE id = ?", req.MeterID).Scan(&exists)
	if exists == 0 {
		http.Error(w, "Meter not found", http.StatusBadRequest)
		return
	}

	recordedBy := "manual"
	if username, ok := r.Context().Value(middleware.UsernameKey).(string); ok && username != "" {
		recordedBy = username
	}

	result, err := h.db.Exec(`
		INSERT INTO meter_readings (meter_id, reading_date, index_value, recorded_by)
		VALUES (?, ?, ?, ?)
	`, req.MeterID, req.ReadingDate, req.IndexValue, recordedBy)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "A reading already exists for this meter and date", http.StatusConflict)
			return
		}
		log.Printf("ERROR: Failed to record reading: %v", err)
		http.Error(w, "Failed to record reading", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("SUCCESS: Recorded reading %.2f for meter %d on %s (%s)",
		req.IndexValue, req.MeterID, req.ReadingDate, recordedBy)
	logToDatabase(h.db, "reading_created",
		strconv.Itoa(req.MeterID)+"@"+req.ReadingDate, r.RemoteAddr)

	writeJSON(w, http.StatusCreated, models.MeterReading{
		ID:          int(id),
		MeterID:     req.MeterID,
		ReadingDate: req.ReadingDate,
		IndexValue:  req.IndexValue,
		RecordedBy:  recordedBy,
	})
}

// Update corrects an existing reading's index value in place.
func (h *ReadingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req struct {
		IndexValue float64 `json:"index_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.IndexValue < 0 {
		http.Error(w, "index_value must not be negative", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE meter_readings SET index_value = ? WHERE id = ?
	`, req.IndexValue, id)
	if err != nil {
		log.Printf("ERROR: Failed to update reading %d: %v", id, err)
		http.Error(w, "Failed to update reading", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	log.Printf("SUCCESS: Corrected reading %d to %.2f", id, req.IndexValue)
	logToDatabase(h.db, "reading_corrected", strconv.Itoa(id), r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reading updated"})
}

func (h *ReadingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec("DELETE FROM meter_readings WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete reading %d: %v", id, err)
		http.Error(w, "Failed to delete reading", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	log.Printf("SUCCESS: Deleted reading %d", id)
	logToDatabase(h.db, "reading_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
