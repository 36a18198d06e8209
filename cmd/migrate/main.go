package main

import (
	"flag"
	"fmt"
	"log"

	"paperjet/internal/platform/config"
	"paperjet/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.ApplySchema(db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Println("Migration completed successfully")
}
