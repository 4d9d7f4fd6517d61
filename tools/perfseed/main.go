package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/postgres"
)

const dateLayout = "2006-01-02"

type config struct {
	dsn                string
	baseURL            string
	managerPrefix      string
	managerCount       int
	accountsPerManager int
	startDate          string
	days               int
	seedAccounts       bool
	postBatches        bool
	runIDsOut          string
}

type seedAccount struct {
	ID         string
	AccountKey string
	ManagerID  string
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func parseConfig(args []string) (config, error) {
	cfg := config{}
	fs := flag.NewFlagSet("perfseed", flag.ContinueOnError)
	fs.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	fs.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", ""), "API base URL for posting batches")
	fs.StringVar(&cfg.managerPrefix, "manager-prefix", envOrDefault("MANAGER_PREFIX", "manager-perf-"), "manager id prefix")
	fs.IntVar(&cfg.managerCount, "manager-count", envOrInt("MANAGER_COUNT", 10), "number of managers")
	fs.IntVar(&cfg.accountsPerManager, "accounts-per-manager", envOrInt("ACCOUNTS_PER_MANAGER", 20), "accounts per manager")
	fs.StringVar(&cfg.startDate, "start-date", envOrDefault("START_DATE", ""), "first report date (YYYY-MM-DD)")
	fs.IntVar(&cfg.days, "days", envOrInt("DAYS", 7), "number of daily batches to post")
	fs.BoolVar(&cfg.seedAccounts, "seed-accounts", envOrBool("SEED_ACCOUNTS", true), "insert accounts into Postgres")
	fs.BoolVar(&cfg.postBatches, "post-batches", envOrBool("POST_BATCHES", false), "post daily batches via API")
	fs.StringVar(&cfg.runIDsOut, "run-ids-out", envOrDefault("RUN_IDS_OUT", ""), "output file for batch run ids")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.managerCount <= 0 || cfg.accountsPerManager <= 0 {
		return cfg, errors.New("manager-count and accounts-per-manager must be > 0")
	}
	if cfg.days <= 0 {
		return cfg, errors.New("days must be > 0")
	}
	if _, err := parseStartDate(cfg.startDate); err != nil {
		return cfg, fmt.Errorf("invalid start-date: %w", err)
	}
	if cfg.seedAccounts && cfg.dsn == "" {
		return cfg, errors.New("missing --pg-dsn or PG_DSN/DATABASE_URL to seed accounts")
	}
	if cfg.postBatches && cfg.baseURL == "" {
		return cfg, errors.New("missing --base-url when post-batches is enabled")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config, out io.Writer) error {
	start, err := parseStartDate(cfg.startDate)
	if err != nil {
		return err
	}
	accounts := buildAccounts(cfg.managerPrefix, cfg.managerCount, cfg.accountsPerManager)

	if cfg.seedAccounts {
		db, err := sql.Open("pgx", cfg.dsn)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer db.Close()

		fmt.Fprintf(out, "seeding accounts: managers=%d per_manager=%d\n", cfg.managerCount, cfg.accountsPerManager)
		created, err := seedAccounts(ctx, postgres.NewQuery(db), accounts)
		if err != nil {
			return fmt.Errorf("seed accounts: %w", err)
		}
		fmt.Fprintf(out, "seeded %d new accounts (%d already present)\n", created, len(accounts)-created)
	}

	if cfg.postBatches {
		fmt.Fprintf(out, "posting reconciliation batches: days=%d accounts=%d\n", cfg.days, len(accounts))
		client := &http.Client{Timeout: 2 * time.Minute}
		runIDs, err := postBatches(ctx, client, cfg.baseURL, accounts, start, cfg.days, out)
		if err != nil {
			return fmt.Errorf("post batches: %w", err)
		}
		if err := writeLines(cfg.runIDsOut, runIDs); err != nil {
			return fmt.Errorf("write run ids: %w", err)
		}
	}

	fmt.Fprintln(out, "perf seed completed")
	return nil
}

func parseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func buildAccounts(prefix string, managers, perManager int) []seedAccount {
	list := make([]seedAccount, 0, managers*perManager)
	for m := 1; m <= managers; m++ {
		managerID := fmt.Sprintf("%s%04d", prefix, m)
		for a := 1; a <= perManager; a++ {
			key := fmt.Sprintf("PERF-%04d-%04d", m, a)
			list = append(list, seedAccount{ID: strings.ToLower(key), AccountKey: key, ManagerID: managerID})
		}
	}
	return list
}

type accountStore interface {
	reconciliation.AccountReader
	CreateAccount(ctx context.Context, account *reconciliation.Account) error
}

func seedAccounts(ctx context.Context, store accountStore, accounts []seedAccount) (int, error) {
	created := 0
	for _, acct := range accounts {
		_, err := store.GetByKey(ctx, acct.AccountKey)
		if err == nil {
			continue
		}
		if !errors.Is(err, reconciliation.ErrAccountNotFound) {
			return created, err
		}
		if err := store.CreateAccount(ctx, &reconciliation.Account{
			ID:         acct.ID,
			AccountKey: acct.AccountKey,
			ManagerID:  acct.ManagerID,
		}); err != nil {
			return created, fmt.Errorf("create %s: %w", acct.AccountKey, err)
		}
		created++
	}
	return created, nil
}

type observation struct {
	AccountKey       string          `json:"account_key"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

type batchRequest struct {
	ReportDate   string        `json:"report_date"`
	Observations []observation `json:"observations"`
}

// buildBatch produces deterministic balances so reruns hit the unchanged path.
func buildBatch(accounts []seedAccount, day time.Time, dayIndex int) batchRequest {
	batch := batchRequest{ReportDate: day.Format(dateLayout), Observations: make([]observation, 0, len(accounts))}
	for i, acct := range accounts {
		current := decimal.NewFromInt(int64(1000 + (i%97)*10 + dayIndex*5)).Add(decimal.New(int64(i%100), -2))
		batch.Observations = append(batch.Observations, observation{
			AccountKey:       acct.AccountKey,
			CurrentBalance:   current,
			AvailableBalance: current.Sub(decimal.NewFromInt(int64(i % 10))),
		})
	}
	return batch
}

func postBatches(ctx context.Context, client *http.Client, baseURL string, accounts []seedAccount, start time.Time, days int, out io.Writer) ([]string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	runIDs := make([]string, 0, days)
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		payload, err := json.Marshal(buildBatch(accounts, day, d))
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/reconciliations", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		var result struct {
			RunID        string `json:"run_id"`
			AppliedCount int    `json:"applied_count"`
			SkippedCount int    `json:"skipped_count"`
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("batch %s failed: http %d", day.Format(dateLayout), resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		_ = resp.Body.Close()
		fmt.Fprintf(out, "batch %s: run=%s applied=%d skipped=%d\n", day.Format(dateLayout), result.RunID, result.AppliedCount, result.SkippedCount)
		runIDs = append(runIDs, result.RunID)
	}
	return runIDs, nil
}

func writeLines(path string, lines []string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envOrBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
