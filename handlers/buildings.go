package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type BuildingHandler struct {
	db *sql.DB
}

func NewBuildingHandler(db *sql.DB) *BuildingHandler {
	return &BuildingHandler{db: db}
}

func (h *BuildingHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, address_street, address_city, address_zip, notes, created_at, updated_at
		FROM buildings ORDER BY name
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query buildings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	buildings := []models.Building{}
	for rows.Next() {
		var b models.Building
		if err := rows.Scan(&b.ID, &b.Name, &b.AddressStreet, &b.AddressCity,
			&b.AddressZip, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err == nil {
			buildings = append(buildings, b)
		}
	}

	writeJSON(w, http.StatusOK, buildings)
}

func (h *BuildingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var b models.Building
	err = h.db.QueryRow(`
		SELECT id, name, address_street, address_city, address_zip, notes, created_at, updated_at
		FROM buildings WHERE id = ?
	`, id).Scan(&b.ID, &b.Name, &b.AddressStreet, &b.AddressCity,
		&b.AddressZip, &b.Notes, &b.CreatedAt, &b.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Building not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

func (h *BuildingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b models.Building
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if b.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO buildings (name, address_street, address_city, address_zip, notes)
		VALUES (?, ?, ?, ?, ?)
	`, b.Name, b.AddressStreet, b.AddressCity, b.AddressZip, b.Notes)

	if err != nil {
		log.Printf("ERROR: Failed to create building: %v", err)
		http.Error(w, "Failed to create building", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	b.ID = int(id)

	// Empty rate row so billing lookups find a configured (zeroed) floor
	_, err = h.db.Exec(`INSERT INTO building_rates (building_id) VALUES (?)`, b.ID)
	if err != nil {
		log.Printf("WARNING: Failed to create default rates for building %d: %v", b.ID, err)
	}

	log.Printf("SUCCESS: Created building %d (%s)", b.ID, b.Name)
	logToDatabase(h.db, "building_created", b.Name, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, b)
}

func (h *BuildingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var b models.Building
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE buildings
		SET name = ?, address_street = ?, address_city = ?, address_zip = ?,
		    notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, b.Name, b.AddressStreet, b.AddressCity, b.AddressZip, b.Notes, id)

	if err != nil {
		log.Printf("ERROR: Failed to update building %d: %v", id, err)
		http.Error(w, "Failed to update building", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Building not found", http.StatusNotFound)
		return
	}

	b.ID = id
	log.Printf("SUCCESS: Updated building %d", id)
	writeJSON(w, http.StatusOK, b)
}

func (h *BuildingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var stallCount int
	h.db.QueryRow("SELECT COUNT(*) FROM stalls WHERE building_id = ?", id).Scan(&stallCount)
	if stallCount > 0 {
		http.Error(w, "Building has stalls, remove them first", http.StatusConflict)
		return
	}

	h.db.Exec("DELETE FROM building_rates WHERE building_id = ?", id)
	_, err = h.db.Exec("DELETE FROM buildings WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete building %d: %v", id, err)
		http.Error(w, "Failed to delete building", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted building %d", id)
	logToDatabase(h.db, "building_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BuildingHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var rates models.BuildingRate
	err = h.db.QueryRow(`
		SELECT id, building_id, electric_rate, electric_minimum,
		       water_rate, water_minimum, lpg_rate, created_at, updated_at
		FROM building_rates WHERE building_id = ?
	`, id).Scan(&rates.ID, &rates.BuildingID, &rates.ElectricRate, &rates.ElectricMinimum,
		&rates.WaterRate, &rates.WaterMinimum, &rates.LPGRate, &rates.CreatedAt, &rates.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Rates not configured for building", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rates)
}

func (h *BuildingHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var rates models.BuildingRate
	if err := json.NewDecoder(r.Body).Decode(&rates); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO building_rates (building_id, electric_rate, electric_minimum,
		                            water_rate, water_minimum, lpg_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(building_id) DO UPDATE SET
			electric_rate = excluded.electric_rate,
			electric_minimum = excluded.electric_minimum,
			water_rate = excluded.water_rate,
			water_minimum = excluded.water_minimum,
			lpg_rate = excluded.lpg_rate,
			updated_at = CURRENT_TIMESTAMP
	`, id, rates.ElectricRate, rates.ElectricMinimum,
		rates.WaterRate, rates.WaterMinimum, rates.LPGRate)

	if err != nil {
		log.Printf("ERROR: Failed to update rates for building %d: %v", id, err)
		http.Error(w, "Failed to update rates", http.StatusInternalServerError)
		return
	}

	rates.BuildingID = id
	log.Printf("SUCCESS: Updated rates for building %d", id)
	logToDatabase(h.db, "building_rates_updated", strconv.Itoa(id), r.RemoteAddr)
	writeJSON(w, http.StatusOK, rates)
}
