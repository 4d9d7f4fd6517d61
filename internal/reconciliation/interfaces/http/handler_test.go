package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-recon/internal/reconciliation/application"
	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	last := reconciliation.EndOfDay(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SeedAccount(&reconciliation.Account{
		ID:                "acct-1",
		AccountKey:        "ACC-1",
		CurrentBalance:    decimal.RequireFromString("1000.00"),
		AvailableBalance:  decimal.RequireFromString("1000.00"),
		LastTransactionAt: &last,
		ManagerID:         "manager-a",
	}))

	svc, err := application.NewReconciliationService(store)
	require.NoError(t, err)
	handler, err := NewHandler(svc, Readers{Accounts: store, Ledger: store, Snapshots: store}, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func TestHandler_ReconcileThenRead(t *testing.T) {
	server, _ := newTestServer(t)

	body := `{"report_date":"2024-01-02","observations":[
		{"account_key":"ACC-1","current_balance":"1500.00","available_balance":"1400.00"},
		{"account_key":"UNKNOWN","current_balance":"1","available_balance":"1"}
	]}`
	resp, err := http.Post(server.URL+"/api/v1/reconciliations", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result application.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, 1, result.UnresolvedCount)
	assert.NotEmpty(t, result.RunID)

	snapResp, err := http.Get(server.URL + "/api/v1/snapshots?date=2024-01-02")
	require.NoError(t, err)
	defer snapResp.Body.Close()
	require.Equal(t, http.StatusOK, snapResp.StatusCode)
	var snaps []snapshotResponse
	require.NoError(t, json.NewDecoder(snapResp.Body).Decode(&snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "manager-a", snaps[0].ManagerID)
	assert.Equal(t, "20240102", snaps[0].TimeKey)
	assert.True(t, snaps[0].TotalBalance.Equal(decimal.RequireFromString("1500.00")))

	ledgerResp, err := http.Get(server.URL + "/api/v1/accounts/ACC-1/ledger")
	require.NoError(t, err)
	defer ledgerResp.Body.Close()
	require.Equal(t, http.StatusOK, ledgerResp.StatusCode)
	var ledger ledgerResponse
	require.NoError(t, json.NewDecoder(ledgerResp.Body).Decode(&ledger))
	require.Len(t, ledger.Entries, 1)
	assert.True(t, ledger.Entries[0].Amount.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, ledger.AvailableBalance.Equal(decimal.RequireFromString("1400.00")))
}

func TestHandler_SnapshotByManager(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/snapshots?date=2024-01-02&manager_id=manager-a")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_BadRequests(t *testing.T) {
	server, _ := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "invalid json", method: http.MethodPost, path: "/api/v1/reconciliations", body: "{", status: http.StatusBadRequest},
		{name: "bad date", method: http.MethodPost, path: "/api/v1/reconciliations", body: `{"report_date":"02/01/2024","observations":[]}`, status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, path: "/api/v1/reconciliations", status: http.StatusMethodNotAllowed},
		{name: "snapshot date missing", method: http.MethodGet, path: "/api/v1/snapshots", status: http.StatusBadRequest},
		{name: "unknown account", method: http.MethodGet, path: "/api/v1/accounts/NOPE/ledger", status: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/accounts/ACC-1", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, server.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(ctx context.Context, batch []reconciliation.BalanceObservation, reportDate time.Time) (application.Result, error) {
	return application.Result{RunID: "run-x", Message: application.FailureMessage}, reconciliation.ErrReconciliationFailed
}

func TestHandler_FailureIsGeneric(t *testing.T) {
	store := memory.NewStore()
	handler, err := NewHandler(failingReconciler{}, Readers{Accounts: store, Ledger: store, Snapshots: store}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliations", strings.NewReader(`{"report_date":"2024-01-02","observations":[]}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var result application.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, application.FailureMessage, result.Message)
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := NewHandler(nil, Readers{}, nil)
	assert.Error(t, err)
	_, err = NewHandler(failingReconciler{}, Readers{}, nil)
	assert.Error(t, err)
}
