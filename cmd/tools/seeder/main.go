package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type material struct {
	Name     string
	Unit     string
	UnitCost float64
	Currency string
}

// Base cost table covering every recipe ingredient. Costs are per unit
// in the shop's base currency.
var materials = []material{
	{"flour", "kg", 1.20, "GBP"},
	{"sugar", "kg", 0.90, "GBP"},
	{"butter", "kg", 3.50, "GBP"},
	{"eggs", "each", 0.20, "GBP"},
	{"milk", "L", 1.10, "GBP"},
	{"vanilla", "ml", 0.05, "GBP"},
	{"baking_powder", "kg", 2.00, "GBP"},
	{"cocoa", "kg", 9.00, "GBP"},
	{"salt", "kg", 0.80, "GBP"},
	{"yeast", "kg", 6.00, "GBP"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	log.Println("Seeding materials...")
	for _, m := range materials {
		_, err := db.Exec(`
			INSERT INTO materials (name, unit, unit_cost, currency)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE
			SET unit = EXCLUDED.unit, unit_cost = EXCLUDED.unit_cost, currency = EXCLUDED.currency;
		`, m.Name, m.Unit, m.UnitCost, m.Currency)
		if err != nil {
			log.Fatalf("Failed to seed material %s: %v", m.Name, err)
		}
	}

	log.Println("Seeding completed successfully!")
}
