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

// TaxCodeHandler serves the VAT and withholding-tax code tables. Both tables
// share the same shape so the CRUD is table-parameterized, with the table
// name fixed at construction, never taken from the request.
type TaxCodeHandler struct {
	db *sql.DB
}

func NewTaxCodeHandler(db *sql.DB) *TaxCodeHandler {
	return &TaxCodeHandler{db: db}
}

type taxCodeRequest struct {
	Name     string  `json:"name"`
	Electric float64 `json:"electric"`
	Water    float64 `json:"water"`
	LPG      float64 `json:"lpg"`
}

func (h *TaxCodeHandler) ListVat(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, electric, water, lpg, created_at, updated_at
		FROM vat_codes ORDER BY name
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query VAT codes: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	codes := []models.VatCode{}
	for rows.Next() {
		var c models.VatCode
		if err := rows.Scan(&c.ID, &c.Name, &c.Electric, &c.Water, &c.LPG,
			&c.CreatedAt, &c.UpdatedAt); err == nil {
			codes = append(codes, c)
		}
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *TaxCodeHandler) ListWt(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, electric, water, lpg, created_at, updated_at
		FROM wt_codes ORDER BY name
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query WT codes: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	codes := []models.WtCode{}
	for rows.Next() {
		var c models.WtCode
		if err := rows.Scan(&c.ID, &c.Name, &c.Electric, &c.Water, &c.LPG,
			&c.CreatedAt, &c.UpdatedAt); err == nil {
			codes = append(codes, c)
		}
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *TaxCodeHandler) CreateVat(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "vat_codes", "vat_code_created")
}

func (h *TaxCodeHandler) CreateWt(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "wt_codes", "wt_code_created")
}

func (h *TaxCodeHandler) UpdateVat(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "vat_codes")
}

func (h *TaxCodeHandler) UpdateWt(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "wt_codes")
}

func (h *TaxCodeHandler) DeleteVat(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "vat_codes", "vat_code_id")
}

func (h *TaxCodeHandler) DeleteWt(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "wt_codes", "wt_code_id")
}

func (h *TaxCodeHandler) create(w http.ResponseWriter, r *http.Request, table, action string) {
	var req taxCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	if req.Electric < 0 || req.Water < 0 || req.LPG < 0 {
		http.Error(w, "Rates must not be negative", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO `+table+` (name, electric, water, lpg) VALUES (?, ?, ?, ?)
	`, req.Name, req.Electric, req.Water, req.LPG)
	if err != nil {
		log.Printf("ERROR: Failed to create tax code in %s: %v", table, err)
		http.Error(w, "Failed to create tax code", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("SUCCESS: Created %s entry %d (%s)", table, id, req.Name)
	logToDatabase(h.db, action, req.Name, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       int(id),
		"name":     req.Name,
		"electric": req.Electric,
		"water":    req.Water,
		"lpg":      req.LPG,
	})
}

func (h *TaxCodeHandler) update(w http.ResponseWriter, r *http.Request, table string) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req taxCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Electric < 0 || req.Water < 0 || req.LPG < 0 {
		http.Error(w, "Rates must not be negative", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE `+table+`
		SET name = ?, electric = ?, water = ?, lpg = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Name, req.Electric, req.Water, req.LPG, id)
	if err != nil {
		log.Printf("ERROR: Failed to update tax code %d in %s: %v", id, table, err)
		http.Error(w, "Failed to update tax code", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Tax code not found", http.StatusNotFound)
		return
	}

	log.Printf("SUCCESS: Updated %s entry %d", table, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tax code updated"})
}

func (h *TaxCodeHandler) delete(w http.ResponseWriter, r *http.Request, table, tenantColumn string) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var inUse int
	h.db.QueryRow(`SELECT COUNT(*) FROM tenants WHERE `+tenantColumn+` = ?`, id).Scan(&inUse)
	if inUse > 0 {
		http.Error(w, "Tax code is assigned to tenants", http.StatusConflict)
		return
	}

	result, err := h.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		log.Printf("ERROR: Failed to delete tax code %d from %s: %v", id, table, err)
		http.Error(w, "Failed to delete tax code", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Tax code not found", http.StatusNotFound)
		return
	}

	log.Printf("SUCCESS: Deleted %s entry %d", table, id)
	w.WriteHeader(http.StatusNoContent)
}
