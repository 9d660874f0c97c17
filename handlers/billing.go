package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jpdeguzman/submeter-billing/backend/middleware"
	"github.com/jpdeguzman/submeter-billing/backend/services"
)

type BillingHandler struct {
	db        *sql.DB
	billing   *services.BillingService
	generator *services.StatementGenerator
}

func NewBillingHandler(db *sql.DB, billing *services.BillingService, generator *services.StatementGenerator) *BillingHandler {
	return &BillingHandler{db: db, billing: billing, generator: generator}
}

// GetMeterBilling computes the charge for one meter up to end_date
// (defaults to today).
func (h *BillingHandler) GetMeterBilling(w http.ResponseWriter, r *http.Request) {
	meterID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	result, err := h.billing.ComputeMeterBilling(meterID, endDateParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetTenantBilling aggregates billing across the tenant's meters. Meters that
// cannot be billed appear inline with their error; the response is still 200.
func (h *BillingHandler) GetTenantBilling(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	allowed, err := h.scope(r)
	if err != nil {
		http.Error(w, "Failed to resolve building scope", http.StatusInternalServerError)
		return
	}

	result, err := h.billing.ComputeTenantBilling(tenantID, endDateParam(r), allowed)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetTenantStatement renders the tenant billing as a PDF and streams it back.
func (h *BillingHandler) GetTenantStatement(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	allowed, err := h.scope(r)
	if err != nil {
		http.Error(w, "Failed to resolve building scope", http.StatusInternalServerError)
		return
	}

	billing, err := h.billing.ComputeTenantBilling(tenantID, endDateParam(r), allowed)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	buildingName := h.tenantBuildingName(tenantID)
	path, err := h.generator.GenerateTenantStatement(billing, buildingName)
	if err != nil {
		log.Printf("ERROR: Failed to generate statement for tenant %d: %v", tenantID, err)
		http.Error(w, "Failed to generate statement", http.StatusInternalServerError)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "Failed to read statement", http.StatusInternalServerError)
		return
	}

	logToDatabase(h.db, "statement_generated", strconv.Itoa(tenantID), r.RemoteAddr)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+strconv.Itoa(tenantID)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *BillingHandler) scope(r *http.Request) ([]int, error) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int)
	if !ok {
		return nil, nil
	}
	return allowedBuildingsFor(h.db, userID)
}

// tenantBuildingName picks the building of the tenant's first stall for the
// statement header. Tenants spanning buildings get the first alphabetically.
func (h *BillingHandler) tenantBuildingName(tenantID int) string {
	var name string
	err := h.db.QueryRow(`
		SELECT b.name
		FROM stalls s JOIN buildings b ON s.building_id = b.id
		WHERE s.tenant_id = ?
		ORDER BY b.name LIMIT 1
	`, tenantID).Scan(&name)
	if err != nil {
		return ""
	}
	return name
}

func endDateParam(r *http.Request) string {
	if end := r.URL.Query().Get("end_date"); end != "" {
		return end
	}
	return services.Today()
}
