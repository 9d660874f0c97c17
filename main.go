package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/jpdeguzman/submeter-billing/backend/config"
	"github.com/jpdeguzman/submeter-billing/backend/database"
	"github.com/jpdeguzman/submeter-billing/backend/handlers"
	"github.com/jpdeguzman/submeter-billing/backend/middleware"
	"github.com/jpdeguzman/submeter-billing/backend/services"
)

func main() {
	log.Println("=== Submeter Billing Backend Starting ===")

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	billingService := services.NewBillingService(db)
	rocService := services.NewRateOfChangeService(db, cfg.RocWindowDays)
	statementGenerator := services.NewStatementGenerator(os.Getenv("STATEMENTS_DIR"))

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(db)
	buildingHandler := handlers.NewBuildingHandler(db)
	tenantHandler := handlers.NewTenantHandler(db)
	stallHandler := handlers.NewStallHandler(db)
	meterHandler := handlers.NewMeterHandler(db)
	readingHandler := handlers.NewReadingHandler(db)
	taxCodeHandler := handlers.NewTaxCodeHandler(db)
	billingHandler := handlers.NewBillingHandler(db, billingService, statementGenerator)
	rocHandler := handlers.NewRateOfChangeHandler(db, rocService)
	dashboardHandler := handlers.NewDashboardHandler(db)
	exportHandler := handlers.NewExportHandler(db)

	router := mux.NewRouter()
	router.Use(recoverMiddleware)
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods("POST")

	api.HandleFunc("/users", userHandler.List).Methods("GET")
	api.HandleFunc("/users", userHandler.Create).Methods("POST")
	api.HandleFunc("/users/{id}", userHandler.Update).Methods("PUT")
	api.HandleFunc("/users/{id}", userHandler.Delete).Methods("DELETE")

	api.HandleFunc("/buildings", buildingHandler.List).Methods("GET")
	api.HandleFunc("/buildings", buildingHandler.Create).Methods("POST")
	api.HandleFunc("/buildings/{id}", buildingHandler.Get).Methods("GET")
	api.HandleFunc("/buildings/{id}", buildingHandler.Update).Methods("PUT")
	api.HandleFunc("/buildings/{id}", buildingHandler.Delete).Methods("DELETE")
	api.HandleFunc("/buildings/{id}/rates", buildingHandler.GetRates).Methods("GET")
	api.HandleFunc("/buildings/{id}/rates", buildingHandler.UpdateRates).Methods("PUT")

	api.HandleFunc("/tenants", tenantHandler.List).Methods("GET")
	api.HandleFunc("/tenants", tenantHandler.Create).Methods("POST")
	api.HandleFunc("/tenants/{id}", tenantHandler.Get).Methods("GET")
	api.HandleFunc("/tenants/{id}", tenantHandler.Update).Methods("PUT")
	api.HandleFunc("/tenants/{id}", tenantHandler.Delete).Methods("DELETE")

	api.HandleFunc("/stalls", stallHandler.List).Methods("GET")
	api.HandleFunc("/stalls", stallHandler.Create).Methods("POST")
	api.HandleFunc("/stalls/{id}", stallHandler.Get).Methods("GET")
	api.HandleFunc("/stalls/{id}", stallHandler.Update).Methods("PUT")
	api.HandleFunc("/stalls/{id}", stallHandler.Delete).Methods("DELETE")
	api.HandleFunc("/stalls/{id}/tenant", stallHandler.AssignTenant).Methods("PUT")

	api.HandleFunc("/meters", meterHandler.List).Methods("GET")
	api.HandleFunc("/meters", meterHandler.Create).Methods("POST")
	api.HandleFunc("/meters/{id}", meterHandler.Get).Methods("GET")
	api.HandleFunc("/meters/{id}", meterHandler.Update).Methods("PUT")
	api.HandleFunc("/meters/{id}", meterHandler.Delete).Methods("DELETE")
	api.HandleFunc("/meters/{id}/qr", meterHandler.QRLabel).Methods("GET")

	api.HandleFunc("/readings", readingHandler.List).Methods("GET")
	api.HandleFunc("/readings", readingHandler.Create).Methods("POST")
	api.HandleFunc("/readings/{id}", readingHandler.Update).Methods("PUT")
	api.HandleFunc("/readings/{id}", readingHandler.Delete).Methods("DELETE")

	api.HandleFunc("/tax-codes/vat", taxCodeHandler.ListVat).Methods("GET")
	api.HandleFunc("/tax-codes/vat", taxCodeHandler.CreateVat).Methods("POST")
	api.HandleFunc("/tax-codes/vat/{id}", taxCodeHandler.UpdateVat).Methods("PUT")
	api.HandleFunc("/tax-codes/vat/{id}", taxCodeHandler.DeleteVat).Methods("DELETE")
	api.HandleFunc("/tax-codes/wt", taxCodeHandler.ListWt).Methods("GET")
	api.HandleFunc("/tax-codes/wt", taxCodeHandler.CreateWt).Methods("POST")
	api.HandleFunc("/tax-codes/wt/{id}", taxCodeHandler.UpdateWt).Methods("PUT")
	api.HandleFunc("/tax-codes/wt/{id}", taxCodeHandler.DeleteWt).Methods("DELETE")

	api.HandleFunc("/billing/meters/{id}", billingHandler.GetMeterBilling).Methods("GET")
	api.HandleFunc("/billing/tenants/{id}", billingHandler.GetTenantBilling).Methods("GET")
	api.HandleFunc("/billing/tenants/{id}/statement", billingHandler.GetTenantStatement).Methods("GET")

	api.HandleFunc("/rate-of-change/meters/{id}", rocHandler.GetMeter).Methods("GET")
	api.HandleFunc("/rate-of-change/tenants/{id}", rocHandler.GetTenant).Methods("GET")
	api.HandleFunc("/rate-of-change/buildings/{id}", rocHandler.GetBuilding).Methods("GET")

	api.HandleFunc("/dashboard/stats", dashboardHandler.GetStats).Methods("GET")
	api.HandleFunc("/dashboard/logs", dashboardHandler.GetLogs).Methods("GET")

	api.HandleFunc("/export/readings", exportHandler.ExportReadings).Methods("GET")

	var mqttCollector *services.MQTTCollector
	var modbusCollector *services.ModbusCollector
	if cfg.CollectorsEnabled {
		mqttCollector = services.NewMQTTCollector(db)
		mqttCollector.Start()

		modbusCollector = services.NewModbusCollector(db, time.Hour)
		modbusCollector.Start()
	} else {
		log.Println("Collectors disabled, readings are manual entry only")
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("=== Server listening on %s ===", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("=== Shutting down ===")
	if mqttCollector != nil {
		mqttCollector.Stop()
	}
	if modbusCollector != nil {
		modbusCollector.Stop()
	}
	server.Close()
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %s %s: %v", r.Method, r.URL.Path, err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
