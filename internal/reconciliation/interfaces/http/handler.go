package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balance-recon/internal/reconciliation/application"
	reconciliation "balance-recon/internal/reconciliation/domain"
)

const (
	dateLayout    = "2006-01-02"
	maxBodyBytes  = 16 << 20
	accountsPath  = "/api/v1/accounts/"
	snapshotsPath = "/api/v1/snapshots"
	reconcilePath = "/api/v1/reconciliations"
)

// Reconciler runs a reconciliation batch.
type Reconciler interface {
	Reconcile(ctx context.Context, batch []reconciliation.BalanceObservation, reportDate time.Time) (application.Result, error)
}

// Readers groups the committed-state queries behind the read endpoints.
type Readers struct {
	Accounts  reconciliation.AccountReader
	Ledger    reconciliation.LedgerReader
	Snapshots reconciliation.SnapshotReader
}

// Handler provides reconciliation HTTP endpoints.
type Handler struct {
	reconciler Reconciler
	readers    Readers
	logger     *zap.Logger
}

// NewHandler constructs a handler.
func NewHandler(reconciler Reconciler, readers Readers, logger *zap.Logger) (*Handler, error) {
	if reconciler == nil {
		return nil, errors.New("reconciliation handler: nil reconciler")
	}
	if readers.Accounts == nil || readers.Ledger == nil || readers.Snapshots == nil {
		return nil, errors.New("reconciliation handler: nil reader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reconciler: reconciler, readers: readers, logger: logger}, nil
}

// Register mounts the handler routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(reconcilePath, h)
	mux.Handle(snapshotsPath, h)
	mux.Handle(accountsPath, h)
}

// ServeHTTP handles /api/v1/reconciliations, /api/v1/snapshots and /api/v1/accounts/{key}/ledger.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == reconcilePath:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleReconcile(w, r)
	case r.URL.Path == snapshotsPath:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSnapshots(w, r)
	case strings.HasPrefix(r.URL.Path, accountsPath) && strings.HasSuffix(r.URL.Path, "/ledger"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLedger(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type observationRequest struct {
	AccountKey       string          `json:"account_key"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

type reconcileRequest struct {
	ReportDate   string               `json:"report_date"`
	Observations []observationRequest `json:"observations"`
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	reportDate, err := time.Parse(dateLayout, req.ReportDate)
	if err != nil {
		http.Error(w, "report_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	batch := make([]reconciliation.BalanceObservation, 0, len(req.Observations))
	for _, obs := range req.Observations {
		batch = append(batch, reconciliation.BalanceObservation{
			AccountKey:       obs.AccountKey,
			CurrentBalance:   obs.CurrentBalance,
			AvailableBalance: obs.AvailableBalance,
		})
	}

	result, err := h.reconciler.Reconcile(r.Context(), batch, reportDate)
	if err != nil {
		// The cause is logged by the service; callers only see the generic result.
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type snapshotResponse struct {
	ManagerID    string          `json:"manager_id"`
	Day          string          `json:"day"`
	TimeKey      string          `json:"time_key"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var snaps []*reconciliation.ManagerDailySnapshot
	if managerID := r.URL.Query().Get("manager_id"); managerID != "" {
		snap, err := h.readers.Snapshots.FindByManagerAndDay(r.Context(), managerID, day)
		if err != nil {
			h.internalError(w, "find snapshot", err)
			return
		}
		if snap == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		snaps = append(snaps, snap)
	} else {
		snaps, err = h.readers.Snapshots.ListByDay(r.Context(), day)
		if err != nil {
			h.internalError(w, "list snapshots", err)
			return
		}
	}

	out := make([]snapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotResponse{
			ManagerID:    snap.ManagerID(),
			Day:          snap.Day().Format(dateLayout),
			TimeKey:      snap.TimeKey(),
			TotalBalance: snap.TotalBalance(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type ledgerEntryResponse struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

type ledgerResponse struct {
	AccountKey        string                `json:"account_key"`
	ManagerID         string                `json:"manager_id"`
	CurrentBalance    decimal.Decimal       `json:"current_balance"`
	AvailableBalance  decimal.Decimal       `json:"available_balance"`
	LastTransactionAt *time.Time            `json:"last_transaction_at"`
	Entries           []ledgerEntryResponse `json:"entries"`
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, accountsPath), "/ledger")
	if key == "" || strings.Contains(key, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	account, err := h.readers.Accounts.GetByKey(r.Context(), key)
	if errors.Is(err, reconciliation.ErrAccountNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, "get account", err)
		return
	}
	entries, err := h.readers.Ledger.ListByAccount(r.Context(), account.ID)
	if err != nil {
		h.internalError(w, "list ledger", err)
		return
	}

	resp := ledgerResponse{
		AccountKey:        account.AccountKey,
		ManagerID:         account.ManagerID,
		CurrentBalance:    account.CurrentBalance,
		AvailableBalance:  account.AvailableBalance,
		LastTransactionAt: account.LastTransactionAt,
		Entries:           make([]ledgerEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, ledgerEntryResponse{
			ID:              entry.ID,
			Amount:          entry.Amount,
			PreviousBalance: entry.PreviousBalance,
			NewBalance:      entry.NewBalance,
			RecordedAt:      entry.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("reconciliation read failed", zap.String("op", op), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
