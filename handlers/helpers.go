package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jpdeguzman/submeter-billing/backend/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// validation 400, not-found 404, insufficient data 422, anything else 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case services.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case services.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case services.IsInsufficientData(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("ERROR: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// allowedBuildingsFor returns the building IDs the admin user may aggregate
// over. Superadmins and users with no managed list are unrestricted (nil).
func allowedBuildingsFor(db *sql.DB, userID int) ([]int, error) {
	var role, managed string
	err := db.QueryRow(`SELECT role, managed_buildings FROM admin_users WHERE id = ?`, userID).
		Scan(&role, &managed)
	if err != nil {
		return nil, err
	}

	if role == "superadmin" || strings.TrimSpace(managed) == "" {
		return nil, nil
	}

	ids := []int{}
	for _, part := range strings.Split(managed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.Atoi(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func logToDatabase(db *sql.DB, action, details, ip string) {
	_, err := db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES (?, ?, ?)
	`, action, details, ip)
	if err != nil {
		log.Printf("Failed to write admin log: %v", err)
	}
}
