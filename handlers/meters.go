package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jpdeguzman/submeter-billing/backend/crypto"
	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type MeterHandler struct {
	db *sql.DB
}

func NewMeterHandler(db *sql.DB) *MeterHandler {
	return &MeterHandler{db: db}
}

const meterColumns = `id, serial_number, utility_type, stall_id, multiplier,
	COALESCE(connection_type, 'manual'), COALESCE(connection_config, ''),
	COALESCE(notes, ''), is_active, created_at, updated_at`

func scanMeter(scanner interface {
	Scan(dest ...interface{}) error
}, m *models.Meter) error {
	return scanner.Scan(&m.ID, &m.SerialNumber, &m.UtilityType, &m.StallID,
		&m.Multiplier, &m.ConnectionType, &m.ConnectionConfig,
		&m.Notes, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
}

func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `SELECT ` + meterColumns + ` FROM meters`
	args := []interface{}{}
	where := ""

	if stallID := r.URL.Query().Get("stall_id"); stallID != "" {
		id, err := strconv.Atoi(stallID)
		if err != nil {
			http.Error(w, "Invalid stall_id", http.StatusBadRequest)
			return
		}
		where = " WHERE stall_id = ?"
		args = append(args, id)
	}
	if utility := r.URL.Query().Get("utility_type"); utility != "" {
		if !models.ValidUtility(utility) {
			http.Error(w, "Invalid utility_type", http.StatusBadRequest)
			return
		}
		if where == "" {
			where = " WHERE utility_type = ?"
		} else {
			where += " AND utility_type = ?"
		}
		args = append(args, utility)
	}
	query += where + " ORDER BY serial_number"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("ERROR: Failed to query meters: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	meters := []models.Meter{}
	for rows.Next() {
		var m models.Meter
		if err := scanMeter(rows, &m); err == nil {
			m.ConnectionConfig = redactConfig(m.ConnectionConfig)
			meters = append(meters, m)
		}
	}

	writeJSON(w, http.StatusOK, meters)
}

func (h *MeterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var m models.Meter
	row := h.db.QueryRow(`SELECT `+meterColumns+` FROM meters WHERE id = ?`, id)
	err = scanMeter(row, &m)

	if err == sql.ErrNoRows {
		http.Error(w, "Meter not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	m.ConnectionConfig = redactConfig(m.ConnectionConfig)
	writeJSON(w, http.StatusOK, m)
}

func (h *MeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m models.Meter
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if m.SerialNumber == "" || m.StallID == 0 {
		http.Error(w, "Serial number and stall_id are required", http.StatusBadRequest)
		return
	}
	if !models.ValidUtility(m.UtilityType) {
		http.Error(w, "Utility type must be electric, water or lpg", http.StatusBadRequest)
		return
	}
	if m.Multiplier <= 0 {
		m.Multiplier = 1.0
	}
	if m.ConnectionType == "" {
		m.ConnectionType = "manual"
	}

	var exists int
	h.db.QueryRow("SELECT COUNT(*) FROM stalls WHERE id = ?", m.StallID).Scan(&exists)
	if exists == 0 {
		http.Error(w, "Stall not found", http.StatusBadRequest)
		return
	}

	config, err := encryptConfigCredentials(m.ConnectionType, m.ConnectionConfig)
	if err != nil {
		log.Printf("ERROR: Failed to encrypt meter credentials: %v", err)
		http.Error(w, "Failed to store connection config", http.StatusInternalServerError)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO meters (serial_number, utility_type, stall_id, multiplier,
		                    connection_type, connection_config, notes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`, m.SerialNumber, m.UtilityType, m.StallID, m.Multiplier,
		m.ConnectionType, config, m.Notes)

	if err != nil {
		log.Printf("ERROR: Failed to create meter: %v", err)
		http.Error(w, "Failed to create meter", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	m.ID = int(id)
	m.IsActive = true
	m.ConnectionConfig = redactConfig(config)

	log.Printf("SUCCESS: Created meter %d (%s, %s)", m.ID, m.SerialNumber, m.UtilityType)
	logToDatabase(h.db, "meter_created", m.SerialNumber, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, m)
}

func (h *MeterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var m models.Meter
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !models.ValidUtility(m.UtilityType) {
		http.Error(w, "Utility type must be electric, water or lpg", http.StatusBadRequest)
		return
	}
	if m.Multiplier <= 0 {
		m.Multiplier = 1.0
	}

	config, err := encryptConfigCredentials(m.ConnectionType, m.ConnectionConfig)
	if err != nil {
		log.Printf("ERROR: Failed to encrypt meter credentials: %v", err)
		http.Error(w, "Failed to store connection config", http.StatusInternalServerError)
		return
	}

	result, err := h.db.Exec(`
		UPDATE meters
		SET serial_number = ?, utility_type = ?, stall_id = ?, multiplier = ?,
		    connection_type = ?, connection_config = ?, notes = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.SerialNumber, m.UtilityType, m.StallID, m.Multiplier,
		m.ConnectionType, config, m.Notes, m.IsActive, id)

	if err != nil {
		log.Printf("ERROR: Failed to update meter %d: %v", id, err)
		http.Error(w, "Failed to update meter", http.StatusInternalServerError)
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "Meter not found", http.StatusNotFound)
		return
	}

	m.ID = id
	m.ConnectionConfig = redactConfig(config)
	log.Printf("SUCCESS: Updated meter %d", id)
	writeJSON(w, http.StatusOK, m)
}

func (h *MeterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var readingCount int
	h.db.QueryRow("SELECT COUNT(*) FROM meter_readings WHERE meter_id = ?", id).Scan(&readingCount)
	if readingCount > 0 {
		// Keep the reading history; deactivate instead of dropping rows
		_, err = h.db.Exec(`
			UPDATE meters SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, id)
		if err != nil {
			http.Error(w, "Failed to deactivate meter", http.StatusInternalServerError)
			return
		}
		log.Printf("SUCCESS: Deactivated meter %d (%d readings retained)", id, readingCount)
		logToDatabase(h.db, "meter_deactivated", strconv.Itoa(id), r.RemoteAddr)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Meter deactivated, readings retained"})
		return
	}

	_, err = h.db.Exec("DELETE FROM meters WHERE id = ?", id)
	if err != nil {
		log.Printf("ERROR: Failed to delete meter %d: %v", id, err)
		http.Error(w, "Failed to delete meter", http.StatusInternalServerError)
		return
	}

	log.Printf("SUCCESS: Deleted meter %d", id)
	logToDatabase(h.db, "meter_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// QRLabel renders a printable QR code PNG identifying the meter, for taping
// onto the physical unit. The payload round-trips through the manual reading
// entry screen.
func (h *MeterHandler) QRLabel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var serial, utility string
	err = h.db.QueryRow(`SELECT serial_number, utility_type FROM meters WHERE id = ?`, id).
		Scan(&serial, &utility)
	if err == sql.ErrNoRows {
		http.Error(w, "Meter not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	payload := fmt.Sprintf("meter:%d:%s:%s", id, serial, utility)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		log.Printf("ERROR: Failed to generate QR for meter %d: %v", id, err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="meter-%s.png"`, serial))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// encryptConfigCredentials encrypts the password field of an MQTT connection
// config before it hits the database. Other connection types pass through.
func encryptConfigCredentials(connectionType, configJSON string) (string, error) {
	if connectionType != "mqtt" || configJSON == "" {
		return configJSON, nil
	}

	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return "", fmt.Errorf("invalid connection config: %v", err)
	}

	password, ok := cfg["password"].(string)
	if !ok || password == "" {
		return configJSON, nil
	}

	key, err := crypto.GetEncryptionKey()
	if err != nil {
		return "", err
	}
	encrypted, err := crypto.Encrypt(password, key)
	if err != nil {
		return "", err
	}
	cfg["password"] = encrypted

	out, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// redactConfig blanks the password field so credentials never leave the API.
func redactConfig(configJSON string) string {
	if configJSON == "" {
		return configJSON
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return configJSON
	}
	if _, ok := cfg["password"]; ok {
		cfg["password"] = ""
		if out, err := json.Marshal(cfg); err == nil {
			return string(out)
		}
	}
	return configJSON
}
