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

type StallHandler struct {
	db *sql.DB
}

func NewStallHandler(db *sql.DB) *StallHandler {
	return &StallHandler{db: db}
}

func scanStall(scanner interface {
	Scan(dest ...interface{}) error
}, s *models.Stall) error {
	var tenantID sql.NullInt64
	err := scanner.Scan(&s.ID, &s.Name, &s.BuildingID, &tenantID,
		&s.Floor, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return err
	}
	if tenantID.Valid {
		id := int(tenantID.Int64)
		s.TenantID = &id
	}
	return nil
}

const stallColumns = `id, name, building_id, tenant_id, COALESCE(floor, ''), COALESCE(notes, ''), created_at, updated_at`

func (h *StallHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `SELECT ` + stallColumns + ` FROM stalls`
	args := []interface{}{}

	if buildingID := r.URL.Query().Get("building_id"); buildingID != "" {
		id, err := strconv.Atoi(buildingID)
		if err != nil {
			http.Error(w, "Invalid building_id", http.StatusBadRequest)
			return
		}
		query += " WHERE building_id = ?"
		args = append(args, id)
	}
	query += " ORDER BY building_id, name"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Failed to query stalls: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	stalls := []models.Stall{}
	for rows.Next() {
		var s models.Stall
		if err := scanStall(rows, &s); err == nil {
			stalls = append(stalls, s)
		}
	}

	writeJSON(w, http.StatusOK, stalls)
}

func (h *StallHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var s models.Stall
	row := h.db.QueryRow(`SELECT `+stallColumns+` FROM stalls WHERE id = ?`, id)
	err = scanStall(row, &s)

	if err == sql.ErrNoRows {
		http.Error(w, "Stall not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *StallHandler) Create(w http.ResponseWriter, r *http.Request) {
	var s models.Stall
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if s.Name == "" || s.BuildingID == 0 {
		http.Error(w, "Name and building_id are required", http.StatusBadRequest)
		return
	}

	var exists int
	h.db.QueryRow("SELECT COUNT(*) FROM buildings WHERE id = ?", s.BuildingID).Scan(&exists)
	if exists == 0 {
		http.Error(w, "Building not found", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO stalls (name, building_id, tenant_id, floor, notes)
		VALUES (?, ?, ?, ?, ?)
	`, s.Name, s.BuildingID, s.TenantID, s.Floor, s.Notes)

	if err != nil {
		log.Printf("ERROR: Failed to create stall: %v", err)
		http.Error(w, "Failed to create stall", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	s.ID = int(id)

	log.Printf("SUCCESS: Created stall %d (%s) in building %d", s.ID, s.Name, s.BuildingID)
	logToDatabase(h.db, "stall_created", s.Name, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, s)
}

func (h *StallHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var s models.Stall
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE stalls
		SET name = ?, building_id = ?, tenant_id = ?, floor = ?, notes = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, s.Name, s.BuildingID, s.TenantID, s.Floor, s.Notes, id)

	if err != nil {
		log.Printf("ERROR: Failed to update stall %d: %v", id, err)
		http.Error(w, "Failed to update stall", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Stall not found", http.StatusNotFound)
		return
	}

	s.ID = id
	log.Printf("SUCCESS: Updated stall %d", id)
	writeJSON(w, http.StatusOK, s)
}

// AssignTenant moves a tenant onto the stall, or vacates it when the body
// carries a null tenant_id.
func (h *StallHandler) AssignTenant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req struct {
		TenantID *int `json:"tenant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.TenantID != nil {
		var exists int
		h.db.QueryRow("SELECT COUNT(*) FROM tenants WHERE id = ?", *req.TenantID).Scan(&exists)
		if exists == 0 {
			http.Error(w, "Tenant not found", http.StatusBadRequest)
			return
		}
	}

	result, err := h.db.Exec(`
		UPDATE stalls SET tenant_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, req.TenantID, id)
	if err != nil {
		log.Printf("ERROR: Failed to assign tenant on stall %d: %v", id, err)
		http.Error(w, "Failed to assign tenant", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Stall not found", http.StatusNotFound)
		return
	}

	if req.TenantID != nil {
		log.Printf("SUCCESS: Assigned tenant %d to stall %d", *req.TenantID, id)
	} else {
		log.Printf("SUCCESS: Vacated stall %d", id)
	}
	logToDatabase(h.db, "stall_tenant_assigned", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (h *StallHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var meterCount int
	h.db.QueryRow("SELECT COUNT(*) FROM meters WHERE stall_id = ?", id).Scan(&meterCount)
	if meterCount > 0 {
		http.Error(w, "Stall has meters, remove them first", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM stalls WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete stall %d: %v", id, err)
		http.Error(w, "Failed to delete stall", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted stall %d", id)
	logToDatabase(h.db, "stall_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
