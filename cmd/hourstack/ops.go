package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hourstack/hourstack/internal/adapter/postgres"
	"github.com/hourstack/hourstack/internal/config"
	"github.com/hourstack/hourstack/internal/domain/usage"
)

// runMigrate applies, rolls back, or reports database migrations.
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back N migrations instead of applying")
	version := fs.Bool("version", false, "print the current migration version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	switch {
	case *version:
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Printf("migration version: %d\n", v)
		return nil
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *down)
		return nil
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Migrations applied")
		return nil
	}
}

func loadStore() (*postgres.Store, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	pool, err := postgres.NewPool(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.NewStore(pool), pool, nil
}

// runCycleReset performs one reset sweep, for external cron setups that
// prefer a process over the HTTP trigger.
func runCycleReset(args []string) error {
	fs := flag.NewFlagSet("cycle-reset", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, pool, err := loadStore()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	ids, err := store.ResetDueCycles(ctx, today)
	if err != nil {
		return fmt.Errorf("reset cycles: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reset %d client cycle(s)\n", len(ids))
	return nil
}

// runListClients prints a usage overview per client.
func runListClients(args []string) error {
	fs := flag.NewFlagSet("clients", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, pool, err := loadStore()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	clients, err := store.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	if len(clients) == 0 {
		fmt.Println("No clients found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPLAN\tHOURS\tUSED\tPCT\tRISK\tCYCLE_START")
	for i := range clients {
		c := &clients[i]
		s := usage.Summarize(c.ID, c.HoursMonthly, c.HoursUsedMonth, c.CycleStart)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.0f%%\t%s\t%s\n",
			c.ID, c.Name, c.PlanCode, c.HoursMonthly, c.HoursUsedMonth, s.PctUsed, s.Risk,
			c.CycleStart.Format("2006-01-02"))
	}
	return w.Flush()
}
