package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-recon/internal/reconciliation/application"
	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/memory"
	reconhttp "balance-recon/internal/reconciliation/interfaces/http"
)

type memoryAccounts struct {
	*memory.Store
}

func (m memoryAccounts) CreateAccount(ctx context.Context, account *reconciliation.Account) error {
	_ = ctx
	return m.SeedAccount(account)
}

func TestBuildAccounts(t *testing.T) {
	accounts := buildAccounts("m-", 2, 3)
	require.Len(t, accounts, 6)
	assert.Equal(t, seedAccount{ID: "perf-0001-0001", AccountKey: "PERF-0001-0001", ManagerID: "m-0001"}, accounts[0])
	assert.Equal(t, "m-0002", accounts[5].ManagerID)
}

func TestSeedAndPostBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := buildAccounts("m-", 2, 2)

	created, err := seedAccounts(ctx, memoryAccounts{store}, accounts)
	require.NoError(t, err)
	assert.Equal(t, 4, created)
	created, err = seedAccounts(ctx, memoryAccounts{store}, accounts)
	require.NoError(t, err)
	assert.Zero(t, created, "existing accounts are skipped")

	svc, err := application.NewReconciliationService(store)
	require.NoError(t, err)
	handler, err := reconhttp.NewHandler(svc, reconhttp.Readers{Accounts: store, Ledger: store, Snapshots: store}, nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	runIDs, err := postBatches(ctx, server.Client(), server.URL+"/", accounts, start, 3, io.Discard)
	require.NoError(t, err)
	assert.Len(t, runIDs, 3)

	entries := store.LedgerEntries()
	assert.Len(t, entries, 12)

	out := filepath.Join(t.TempDir(), "ids", "runs.txt")
	require.NoError(t, writeLines(out, runIDs))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), runIDs[0])
}

func TestBuildBatch_Deterministic(t *testing.T) {
	accounts := buildAccounts("m-", 1, 3)
	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	a := buildBatch(accounts, day, 1)
	b := buildBatch(accounts, day, 1)
	assert.Equal(t, "2024-01-02", a.ReportDate)
	require.Len(t, a.Observations, 3)
	for i := range a.Observations {
		assert.True(t, a.Observations[i].CurrentBalance.Equal(b.Observations[i].CurrentBalance))
	}
	assert.Equal(t, "1005", a.Observations[0].CurrentBalance.String())
}

func clearSeedEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PG_DSN", "DATABASE_URL", "BASE_URL", "MANAGER_COUNT", "ACCOUNTS_PER_MANAGER", "DAYS", "START_DATE", "SEED_ACCOUNTS", "POST_BATCHES"} {
		t.Setenv(key, "")
	}
}

func TestParseConfig_RejectsInvalidInput(t *testing.T) {
	clearSeedEnv(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "no managers", args: []string{"-pg-dsn", "postgres://x", "-manager-count", "0"}, want: "manager-count"},
		{name: "no days", args: []string{"-pg-dsn", "postgres://x", "-days", "0"}, want: "days must be > 0"},
		{name: "bad start date", args: []string{"-pg-dsn", "postgres://x", "-start-date", "2024/01/01"}, want: "invalid start-date"},
		{name: "missing dsn", args: []string{}, want: "missing --pg-dsn"},
		{name: "missing base url", args: []string{"-seed-accounts=false", "-post-batches"}, want: "missing --base-url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseConfig(tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	clearSeedEnv(t)
	cfg, err := parseConfig([]string{"-pg-dsn", "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.managerCount)
	assert.Equal(t, 20, cfg.accountsPerManager)
	assert.Equal(t, 7, cfg.days)
	assert.True(t, cfg.seedAccounts)
	assert.False(t, cfg.postBatches)
}

func TestRun_ReportsProgressAndErrors(t *testing.T) {
	store := memory.NewStore()
	accounts := buildAccounts("m-", 1, 2)
	_, err := seedAccounts(context.Background(), memoryAccounts{store}, accounts)
	require.NoError(t, err)

	svc, err := application.NewReconciliationService(store)
	require.NoError(t, err)
	handler, err := reconhttp.NewHandler(svc, reconhttp.Readers{Accounts: store, Ledger: store, Snapshots: store}, nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config{
		baseURL:            server.URL,
		managerPrefix:      "m-",
		managerCount:       1,
		accountsPerManager: 2,
		startDate:          "2024-01-01",
		days:               2,
		postBatches:        true,
	}
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "batch 2024-01-01: run=")
	assert.Contains(t, out.String(), "batch 2024-01-02: run=")
	assert.Contains(t, out.String(), "perf seed completed")

	cfg.baseURL = "http://127.0.0.1:1"
	out.Reset()
	err = run(context.Background(), cfg, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post batches")
	assert.NotContains(t, out.String(), "perf seed completed")
}
