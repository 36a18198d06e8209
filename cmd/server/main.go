package main

import (
	"fmt"
	"log"
	"net/http"

	"paperjet/internal/api"
	"paperjet/internal/api/handlers"
	"paperjet/internal/api/middleware"
	"paperjet/internal/engine/billing"
	"paperjet/internal/engine/render"
	"paperjet/internal/engine/usage"
	"paperjet/internal/pkg/logger"
	"paperjet/internal/platform/auth"
	"paperjet/internal/platform/config"
	"paperjet/internal/platform/database"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.ApplySchema(db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Engines
	hasher := billing.NewHasher(cfg.Security.KeySalt)
	store := billing.NewStore(db, hasher)
	ledger := usage.NewLedger(db)
	billingSvc := billing.NewService(store, ledger)
	gate := auth.NewGate(store, ledger)
	renderer := render.NewEngine(cfg.Render.TemplateDir, render.NewChromeRasterizer(cfg.Render))

	// Handlers
	generateHandler := handlers.NewGenerateHandler(gate, ledger, renderer)
	adminHandler := handlers.NewAdminHandler(billingSvc)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	adminMiddleware := middleware.NewAdminMiddleware(cfg.Security.AdminToken)

	// Router
	deps := &api.Dependencies{
		GenerateHandler: generateHandler,
		AdminHandler:    adminHandler,
		HealthHandler:   healthHandler,
		AdminMiddleware: adminMiddleware,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
