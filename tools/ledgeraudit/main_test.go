package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-recon/internal/reconciliation/application"
	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/memory"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")

	_, err := parseFlags(nil)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-db", "postgres://x", "-date", "2024/01/02"})
	assert.Error(t, err)

	cfg, err := parseFlags([]string{"-db", "postgres://x", "-date", "2024-01-02", "-out", "reports"})
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.outDir)
	assert.Equal(t, 5*time.Minute, cfg.timeout)
}

func TestRun_WritesReports(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SeedAccount(&reconciliation.Account{ID: "acct-1", AccountKey: "ACC-1", ManagerID: "manager-a"}))

	svc, err := application.NewReconciliationService(store)
	require.NoError(t, err)
	reportDate := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	_, err = svc.Reconcile(ctx, []reconciliation.BalanceObservation{{
		AccountKey:       "ACC-1",
		CurrentBalance:   decimal.NewFromInt(75),
		AvailableBalance: decimal.NewFromInt(70),
	}}, reportDate)
	require.NoError(t, err)

	out := t.TempDir()
	findings, err := run(ctx, store, config{day: "2024-01-02", outDir: out})
	require.NoError(t, err)
	assert.Zero(t, findings)

	for _, name := range []string{"accounts.csv", "ledger_entries.csv", "findings.csv", "manager_snapshots.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	snapshots, err := os.ReadFile(filepath.Join(out, "manager_snapshots.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(snapshots), "manager-a,2024-01-02,20240102,75")
}
