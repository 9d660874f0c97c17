package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jpdeguzman/submeter-billing/backend/middleware"
	"github.com/jpdeguzman/submeter-billing/backend/services"
)

type RateOfChangeHandler struct {
	db  *sql.DB
	roc *services.RateOfChangeService
}

func NewRateOfChangeHandler(db *sql.DB, roc *services.RateOfChangeService) *RateOfChangeHandler {
	return &RateOfChangeHandler{db: db, roc: roc}
}

func (h *RateOfChangeHandler) GetMeter(w http.ResponseWriter, r *http.Request) {
	meterID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	result, err := h.roc.ForMeter(meterID, endDateParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *RateOfChangeHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var allowed []int
	if userID, ok := r.Context().Value(middleware.UserIDKey).(int); ok {
		allowed, err = allowedBuildingsFor(h.db, userID)
		if err != nil {
			http.Error(w, "Failed to resolve building scope", http.StatusInternalServerError)
			return
		}
	}

	result, err := h.roc.ForTenant(tenantID, endDateParam(r), allowed)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *RateOfChangeHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	buildingID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	result, err := h.roc.ForBuilding(buildingID, endDateParam(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
