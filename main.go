package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balance-recon/internal/config"
	"balance-recon/internal/observability/logging"
	"balance-recon/internal/observability/metrics"
	"balance-recon/internal/reconciliation/application"
	reconciliation "balance-recon/internal/reconciliation/domain"
	"balance-recon/internal/reconciliation/infrastructure/memory"
	"balance-recon/internal/reconciliation/infrastructure/postgres"
	"balance-recon/internal/reconciliation/interfaces"
	reconhttp "balance-recon/internal/reconciliation/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db      *sql.DB
		uow     reconciliation.UnitOfWork
		readers reconhttp.Readers
	)
	switch cfg.Store {
	case config.StoreMemory:
		store, err := newMemoryStore(cfg.SeedAccounts)
		if err != nil {
			return err
		}
		uow = store
		readers = reconhttp.Readers{Accounts: store, Ledger: store, Snapshots: store}
		logger.Info("using memory store", zap.Int("seed_accounts", len(cfg.SeedAccounts)))
	default:
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		query := postgres.NewQuery(db)
		uow = postgres.NewUnitOfWork(db)
		readers = reconhttp.Readers{Accounts: query, Ledger: query, Snapshots: query}
	}

	metrics.Init(db, logger)

	publisher, closePublisher, err := newPublisher(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	service, err := application.NewReconciliationService(uow,
		application.WithPublisher(publisher),
		application.WithLogger(logger.Named("reconciliation")),
		application.WithTimeout(cfg.ReconcileTimeout),
	)
	if err != nil {
		return err
	}
	handler, err := reconhttp.NewHandler(service, readers, logger.Named("http"))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func newMemoryStore(seeds []config.SeedAccount) (*memory.Store, error) {
	store := memory.NewStore()
	for _, seed := range seeds {
		current, err := parseAmount(seed.CurrentBalance)
		if err != nil {
			return nil, err
		}
		available, err := parseAmount(seed.AvailableBalance)
		if err != nil {
			return nil, err
		}
		if err := store.SeedAccount(&reconciliation.Account{
			ID:               seed.ID,
			AccountKey:       seed.AccountKey,
			ManagerID:        seed.ManagerID,
			CurrentBalance:   current,
			AvailableBalance: available,
		}); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func newPublisher(cfg config.KafkaConfig, logger *zap.Logger) (application.CompletionPublisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		return interfaces.NewLoggingPublisher(logger.Named("events")), func() {}, nil
	}
	publisher, err := interfaces.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing to kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("kafka writer close failed", zap.Error(err))
		}
	}, nil
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
