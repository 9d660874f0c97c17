package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/jpdeguzman/submeter-billing/backend/middleware"
	"github.com/jpdeguzman/submeter-billing/backend/models"
)

// UserHandler manages admin accounts. Every route requires the superadmin
// role; building-scoped admins cannot see or edit other accounts.
type UserHandler struct {
	db *sql.DB
}

func NewUserHandler(db *sql.DB) *UserHandler {
	return &UserHandler{db: db}
}

func requireSuperadmin(w http.ResponseWriter, r *http.Request) bool {
	role, _ := r.Context().Value(middleware.RoleKey).(string)
	if role != "superadmin" {
		http.Error(w, "Superadmin role required", http.StatusForbidden)
		return false
	}
	return true
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, username, role, managed_buildings, created_at, updated_at
		FROM admin_users ORDER BY username
	`)
	if err != nil {
		log.Printf("ERROR: Failed to query admin users: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.AdminUser{}
	for rows.Next() {
		var u models.AdminUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.ManagedBuildings,
			&u.CreatedAt, &u.UpdatedAt); err == nil {
			users = append(users, u)
		}
	}

	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	ManagedBuildings string `json:"managed_buildings"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role != "superadmin" && req.Role != "admin" {
		http.Error(w, "Role must be superadmin or admin", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO admin_users (username, password_hash, role, managed_buildings)
		VALUES (?, ?, ?, ?)
	`, req.Username, string(hash), req.Role, req.ManagedBuildings)
	if err != nil {
		log.Printf("ERROR: Failed to create admin user: %v", err)
		http.Error(w, "Failed to create user, username may be taken", http.StatusConflict)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("SUCCESS: Created admin user %d (%s, %s)", id, req.Username, req.Role)
	logToDatabase(h.db, "admin_user_created", req.Username, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                int(id),
		"username":          req.Username,
		"role":              req.Role,
		"managed_buildings": req.ManagedBuildings,
	})
}

type updateUserRequest struct {
	Role             string `json:"role"`
	ManagedBuildings string `json:"managed_buildings"`
	Password         string `json:"password"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Role != "superadmin" && req.Role != "admin" {
		http.Error(w, "Role must be superadmin or admin", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE admin_users
		SET role = ?, managed_buildings = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Role, req.ManagedBuildings, id)
	if err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}
		h.db.Exec(`UPDATE admin_users SET password_hash = ? WHERE id = ?`, string(hash), id)
	}

	log.Printf("SUCCESS: Updated admin user %d", id)
	logToDatabase(h.db, "admin_user_updated", strconv.Itoa(id), r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User updated"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !requireSuperadmin(w, r) {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	callerID, _ := r.Context().Value(middleware.UserIDKey).(int)
	if callerID == id {
		http.Error(w, "Cannot delete your own account", http.StatusConflict)
		return
	}

	result, err := h.db.Exec("DELETE FROM admin_users WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	log.Printf("SUCCESS: Deleted admin user %d", id)
	logToDatabase(h.db, "admin_user_deleted", strconv.Itoa(id), r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
