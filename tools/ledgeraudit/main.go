package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"balance-recon/internal/reconciliation/audit"
	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/postgres"
)

type config struct {
	dbURL   string
	day     string
	outDir  string
	timeout time.Duration
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "create out dir:", err)
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	findings, err := run(ctx, postgres.NewQuery(db), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Printf("Ledger audit written to %s: %d findings\n", cfg.outDir, findings)
	if findings > 0 {
		os.Exit(1)
	}
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("ledgeraudit", flag.ContinueOnError)
	fs.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")), "Postgres DSN")
	fs.StringVar(&cfg.day, "date", "", "export manager snapshots for this day (YYYY-MM-DD, optional)")
	fs.StringVar(&cfg.outDir, "out", "./out", "output directory")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.dbURL == "" {
		return cfg, errors.New("missing --db or DATABASE_URL/PG_DSN")
	}
	if cfg.day != "" {
		if _, err := time.Parse("2006-01-02", cfg.day); err != nil {
			return cfg, errors.New("date must be YYYY-MM-DD")
		}
	}
	return cfg, nil
}

type source interface {
	audit.Source
	reconciliation.SnapshotReader
}

func run(ctx context.Context, src source, cfg config) (int, error) {
	report, err := audit.Run(ctx, src)
	if err != nil {
		return 0, err
	}

	if err := writeFile(cfg.outDir, "accounts.csv", func(w io.Writer) error {
		return audit.WriteAccountsCSV(w, report.Accounts)
	}); err != nil {
		return 0, err
	}
	if err := writeFile(cfg.outDir, "ledger_entries.csv", func(w io.Writer) error {
		return audit.WriteLedgerCSV(w, report.Entries)
	}); err != nil {
		return 0, err
	}
	if err := writeFile(cfg.outDir, "findings.csv", func(w io.Writer) error {
		return audit.WriteFindingsCSV(w, report.Findings)
	}); err != nil {
		return 0, err
	}

	if cfg.day != "" {
		day, _ := time.Parse("2006-01-02", cfg.day)
		snaps, err := src.ListByDay(ctx, day)
		if err != nil {
			return 0, fmt.Errorf("list snapshots: %w", err)
		}
		if err := writeFile(cfg.outDir, "manager_snapshots.csv", func(w io.Writer) error {
			return audit.WriteSnapshotsCSV(w, snaps)
		}); err != nil {
			return 0, err
		}
	}
	return len(report.Findings), nil
}

func writeFile(outDir, name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(outDir, name))
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return file.Close()
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
