package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admin_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT DEFAULT 'admin',
			managed_buildings TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS buildings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address_street TEXT,
			address_city TEXT,
			address_zip TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS building_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			building_id INTEGER UNIQUE NOT NULL,
			electric_rate REAL DEFAULT 0,
			electric_minimum REAL DEFAULT 0,
			water_rate REAL DEFAULT 0,
			water_minimum REAL DEFAULT 0,
			lpg_rate REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (building_id) REFERENCES buildings(id)
		)`,

		`CREATE TABLE IF NOT EXISTS vat_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			electric REAL DEFAULT 0,
			water REAL DEFAULT 0,
			lpg REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS wt_codes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			electric REAL DEFAULT 0,
			water REAL DEFAULT 0,
			lpg REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			vat_code_id INTEGER,
			wt_code_id INTEGER,
			penalty INTEGER DEFAULT 0,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (vat_code_id) REFERENCES vat_codes(id),
			FOREIGN KEY (wt_code_id) REFERENCES wt_codes(id)
		)`,

		`CREATE TABLE IF NOT EXISTS stalls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			building_id INTEGER NOT NULL,
			tenant_id INTEGER,
			floor TEXT,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (building_id) REFERENCES buildings(id),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id)
		)`,

		`CREATE TABLE IF NOT EXISTS meters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			serial_number TEXT UNIQUE NOT NULL,
			utility_type TEXT NOT NULL,
			stall_id INTEGER NOT NULL,
			multiplier REAL DEFAULT 1,
			connection_type TEXT DEFAULT 'manual',
			connection_config TEXT DEFAULT '',
			notes TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (stall_id) REFERENCES stalls(id)
		)`,

		`CREATE TABLE IF NOT EXISTS meter_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meter_id INTEGER NOT NULL,
			reading_date TEXT NOT NULL,
			index_value REAL NOT NULL,
			recorded_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (meter_id) REFERENCES meters(id)
		)`,

		`CREATE TABLE IF NOT EXISTS admin_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			details TEXT,
			user_id INTEGER,
			ip_address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One reading per meter per calendar day
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_readings_meter_date ON meter_readings(meter_id, reading_date)`,

		`CREATE INDEX IF NOT EXISTS idx_readings_date ON meter_readings(reading_date)`,
		`CREATE INDEX IF NOT EXISTS idx_stalls_building ON stalls(building_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stalls_tenant ON stalls(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_meters_stall ON meters(stall_id)`,
		`CREATE INDEX IF NOT EXISTS idx_meters_type ON meters(utility_type)`,
		`CREATE INDEX IF NOT EXISTS idx_meters_active ON meters(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_tenants_vat ON tenants(vat_code_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tenants_wt ON tenants(wt_code_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Log but don't fail on already-exists errors
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "duplicate") {
				log.Printf("Migration %d warning: %v", i+1, err)
			}
		}
	}

	log.Println("Base tables and indexes created/verified")

	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("failed to create default admin: %v", err)
	}

	if err := seedDefaultTaxCodes(db); err != nil {
		return fmt.Errorf("failed to seed default tax codes: %v", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func createDefaultAdmin(db *sql.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		_, err = db.Exec(`
			INSERT INTO admin_users (username, password_hash, role)
			VALUES (?, ?, 'superadmin')
		`, "admin", string(hashedPassword))

		if err != nil {
			return err
		}

		log.Println("Default admin user created")
		log.Println("   Username: admin")
		log.Println("   Password: admin123")
		log.Println("   IMPORTANT: Change the default password immediately!")
	}

	return nil
}

// seedDefaultTaxCodes inserts the standard VAT bundle so fresh installs can
// assign tenants a code without configuring one first. Values are
// whole-number percents; the engine normalizes either representation.
func seedDefaultTaxCodes(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM vat_codes").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		_, err := db.Exec(`
			INSERT INTO vat_codes (name, electric, water, lpg)
			VALUES ('VAT-STD', 12, 12, 12)
		`)
		if err != nil {
			return err
		}
		log.Println("Default VAT code seeded (VAT-STD, 12%)")
	}

	return nil
}
