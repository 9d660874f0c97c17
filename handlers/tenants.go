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

type TenantHandler struct {
	db *sql.DB
}

func NewTenantHandler(db *sql.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

func scanTenant(scanner interface {
	Scan(dest ...interface{}) error
}, t *models.Tenant) error {
	var vatCodeID, wtCodeID sql.NullInt64
	err := scanner.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Phone,
		&vatCodeID, &wtCodeID, &t.Penalty, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	if vatCodeID.Valid {
		id := int(vatCodeID.Int64)
		t.VatCodeID = &id
	}
	if wtCodeID.Valid {
		id := int(wtCodeID.Int64)
		t.WtCodeID = &id
	}
	return nil
}

const tenantColumns = `id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''),
	vat_code_id, wt_code_id, penalty, COALESCE(notes, ''), created_at, updated_at`

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`SELECT ` + tenantColumns + ` FROM tenants ORDER BY last_name, first_name`)
	if err != nil {
		log.Printf("ERROR: Failed to query tenants: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		var t models.Tenant
		if err := scanTenant(rows, &t); err == nil {
			tenants = append(tenants, t)
		}
	}

	writeJSON(w, http.StatusOK, tenants)
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var t models.Tenant
	row := h.db.QueryRow(`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	err = scanTenant(row, &t)

	if err == sql.ErrNoRows {
		http.Error(w, "Tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if t.FirstName == "" || t.LastName == "" {
		http.Error(w, "First and last name are required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO tenants (first_name, last_name, email, phone, vat_code_id, wt_code_id, penalty, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.FirstName, t.LastName, t.Email, t.Phone, t.VatCodeID, t.WtCodeID, t.Penalty, t.Notes)

	if err != nil {
		log.Printf("ERROR: Failed to create tenant: %v", err)
		http.Error(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	t.ID = int(id)

	log.Printf("SUCCESS: Created tenant %d (%s %s)", t.ID, t.FirstName, t.LastName)
	logToDatabase(h.db, "tenant_created", t.FirstName+" "+t.LastName, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var t models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE tenants
		SET first_name = ?, last_name = ?, email = ?, phone = ?,
		    vat_code_id = ?, wt_code_id = ?, penalty = ?, notes = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.FirstName, t.LastName, t.Email, t.Phone, t.VatCodeID, t.WtCodeID, t.Penalty, t.Notes, id)

	if err != nil {
		log.Printf("ERROR: Failed to update tenant %d: %v", id, err)
		http.Error(w, "Failed to update tenant", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Tenant not found", http.StatusNotFound)
		return
	}

	t.ID = id
	log.Printf("SUCCESS: Updated tenant %d", id)
	writeJSON(w, http.StatusOK, t)
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var stallCount int
	h.db.QueryRow("SELECT COUNT(*) FROM stalls WHERE tenant_id = ?", id).Scan(&stallCount)
	if stallCount > 0 {
		http.Error(w, "Tenant still occupies stalls, vacate them first", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete tenant %d: %v", id, err)
		http.Error(w, "Failed to delete tenant", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted tenant %d", id)
	logToDatabase(h.db, "tenant_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
