// Command seed creates the schema and loads the demo flights and places.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	migrateOnly := fs.Bool("migrate-only", false, "Create the schema and exit")
	dbPath := fs.String("db", "", "SQLite database file (default: DB_* environment)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(ctx, *dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(stdout, "Schema ready")
	if *migrateOnly {
		return nil
	}

	repo := repository.NewResourceRepo(db)
	created, skipped := 0, 0
	for _, res := range demoResources() {
		if _, err := repo.Create(ctx, &res); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				skipped++
				continue
			}
			return fmt.Errorf("failed to seed %s: %w", res.Code, err)
		}
		created++
		fmt.Fprintf(stdout, "Seeded %s %s (%d units)\n", res.Kind, res.Code, res.CapacityTotal)
	}
	fmt.Fprintf(stdout, "Done: %d created, %d already present\n", created, skipped)
	return nil
}

func openDB(ctx context.Context, path string) (*database.DB, error) {
	if path != "" {
		return database.OpenSQLite(ctx, path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg.DB)
}

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func demoResources() []model.Resource {
	return []model.Resource{
		{Kind: model.KindFlight, Code: "AI101", Name: "Mumbai to Delhi", Origin: "Mumbai", Destination: "Delhi",
			StartsAt: at("2024-02-01 10:00"), EndsAt: at("2024-02-01 12:00"), CapacityTotal: 150, PriceCents: 19999},
		{Kind: model.KindFlight, Code: "AI102", Name: "Delhi to Bangalore", Origin: "Delhi", Destination: "Bangalore",
			StartsAt: at("2024-02-01 14:00"), EndsAt: at("2024-02-01 16:30"), CapacityTotal: 120, PriceCents: 24999},
		{Kind: model.KindFlight, Code: "AI103", Name: "Bangalore to Chennai", Origin: "Bangalore", Destination: "Chennai",
			StartsAt: at("2024-02-02 09:00"), EndsAt: at("2024-02-02 10:30"), CapacityTotal: 100, PriceCents: 14999},
		{Kind: model.KindPlace, Code: "GOA-BEACH", Name: "Baga Beach Resort", Location: "Goa",
			CapacityTotal: 40, PriceCents: 8999},
		{Kind: model.KindPlace, Code: "JAI-PALACE", Name: "Jaipur Heritage Haveli", Location: "Jaipur",
			CapacityTotal: 25, PriceCents: 12999},
	}
}
