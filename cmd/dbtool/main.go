package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"route-optimization-service/internal/adapters/repositories"
	"route-optimization-service/internal/config"
	"route-optimization-service/internal/platform/db"

	"github.com/jmoiron/sqlx"
	"github.com/kr/pretty"
)

func main() {
	cfg := config.Load()

	seedPath := flag.String("seed", cfg.SeedPath, "JSON file of routes with their stops")
	skipSeed := flag.Bool("schema-only", false, "create tables without seeding")
	dryRun := flag.Bool("dry-run", false, "validate and print the seed file without touching the database")
	flag.Parse()

	if *dryRun {
		routes, err := repositories.LoadSeeds(*seedPath)
		if err != nil {
			log.Fatalf("seed validation failed: %v", err)
		}
		pretty.Println(routes)
		return
	}

	conn, driver, err := open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()

	log.Printf("Initializing database schema... driver=%s", driver)
	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *skipSeed {
		return
	}

	log.Printf("Seeding database... path=%s", *seedPath)
	if err := repositories.SeedFromJSON(ctx, sqlx.NewDb(conn, driver), *seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}

func open(cfg config.Config) (*sql.DB, string, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, db.DriverPostgres, err
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, db.DriverSQLite, err
}
