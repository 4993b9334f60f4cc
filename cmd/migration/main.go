package main

import (
	"flag"
	"log"
	"staffing_platform/cmd/migration/versions"

	"github.com/caarlos0/env/v10"
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type migrationEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID:       "0_initial_schema",
			Migrate:  versions.Migration_0_initial_schema,
			Rollback: versions.Rollback_0_initial_schema,
		},
		{
			ID:      "1_assignment_backfill",
			Migrate: versions.Migration_1_assignment_backfill,
		},
	}
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	cfg := migrationEnv{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseUri), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations applied successfully")
}
