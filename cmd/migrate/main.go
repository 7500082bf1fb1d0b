package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-catalog/internal/config"
	"ms-catalog/internal/database/migrations"
	"ms-catalog/internal/models"
)

// Applies the catalog schema (and optionally seed data). Postgres goes
// through the SQL migration files; sqlite dev databases get their tables
// created directly from the models.
func main() {
	var (
		down = flag.Bool("down", false, "roll back all migrations (postgres only)")
		seed = flag.Bool("seed", false, "also apply seed data")
		dir  = flag.String("dir", "./migrations", "migrations directory")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Database.Driver == "postgres" {
		migratePostgres(cfg, *dir, *seed, *down)
		return
	}
	migrateSQLite(cfg, *seed)
}

func migratePostgres(cfg *config.Config, dir string, seed, down bool) {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	if err := bunDB.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: dir,
		SeedData:      seed,
	})
	defer runner.Close()

	if down {
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("✅ Migrations rolled back")
		return
	}

	if err := runner.MigrateUp(); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	fmt.Println("✅ Migrations applied")
}

func migrateSQLite(cfg *config.Config, seed bool) {
	sqldb, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	defer bunDB.Close()

	ctx := context.Background()
	for _, m := range []interface{}{(*models.Venue)(nil), (*models.Event)(nil)} {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}
	fmt.Println("✅ Tables created")

	if !seed {
		return
	}
	if err := seedSQLite(ctx, bunDB); err != nil {
		log.Fatalf("Failed to seed data: %v", err)
	}
	fmt.Println("✅ Seed data inserted")
}

func seedSQLite(ctx context.Context, bunDB *bun.DB) error {
	count, err := bunDB.NewSelect().Model((*models.Venue)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	str := func(s string) *string { return &s }
	price := 25.0

	venues := []models.Venue{
		{
			Name:        "The Velvet Room",
			Description: str("Intimate basement venue for live acts."),
			Address:     str("12 Harbor St"),
			City:        str("Portsmouth"),
			Website:     str("https://velvetroom.example.com"),
			Phone:       str("555-0134"),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Name:        "Granite Hall",
			Description: str("Mid-size concert hall with balcony seating."),
			Address:     str("98 Mill Ave"),
			City:        str("Manchester"),
			Website:     str("https://granitehall.example.com"),
			Phone:       str("555-0188"),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	if _, err := bunDB.NewInsert().Model(&venues).Exec(ctx); err != nil {
		return err
	}

	events := []models.Event{
		{
			Title:         "Open Mic Night",
			Description:   str("Weekly open mic, all acts welcome."),
			VenueID:       venues[0].ID,
			StartDateTime: now.Add(3 * 24 * time.Hour),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			Title:         "Winter Jazz Series",
			Description:   str("Quartet residency, first of four nights."),
			VenueID:       venues[1].ID,
			StartDateTime: now.Add(10 * 24 * time.Hour),
			Price:         &price,
			IsFeatured:    1,
			IsSpecial:     1,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	_, err = bunDB.NewInsert().Model(&events).Exec(ctx)
	return err
}
