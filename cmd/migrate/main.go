// Command migrate applies or rolls back the database schema outside the
// server process. The server also auto-migrates on start unless
// AUTO_MIGRATE=false.
package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-queueskip/internal/config"
	"ms-queueskip/internal/database/migrations"
)

func main() {
	var (
		down = flag.Bool("down", false, "roll back all migrations")
		seed = flag.Bool("seed", false, "also run seed data migrations")
		dir  = flag.String("dir", "./migrations", "migrations directory")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer sqldb.Close()
	if err := sqldb.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: *dir,
		SeedData:      *seed,
	})
	defer runner.Close()

	if *down {
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}
		log.Println("All migrations rolled back")
		return
	}

	if *seed {
		if err := runner.MigrateUp(); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}
		log.Println("All migrations applied, including seed data")
		return
	}

	if err := runner.RunMigrations(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Println("Schema migrations applied")
}
