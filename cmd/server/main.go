package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/grocerysplit/internal/auth"
	"github.com/mmynk/grocerysplit/internal/config"
	"github.com/mmynk/grocerysplit/internal/ledger"
	"github.com/mmynk/grocerysplit/internal/metrics"
	"github.com/mmynk/grocerysplit/internal/middleware"
	"github.com/mmynk/grocerysplit/internal/notify"
	"github.com/mmynk/grocerysplit/internal/service"
	"github.com/mmynk/grocerysplit/internal/storage/sqlstore"
	"github.com/mmynk/grocerysplit/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional; the environment may already be populated
		slog.Debug("No .env file loaded", "error", err)
	}
	logging.Setup()

	cfg := config.Load()

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	if err != nil {
		slog.Error("Failed to initialize token validation, set JWT_SECRET", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	notifier := notify.New(store, notify.Options{
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.RepoTimeout,
		Metrics:   m,
	})
	ledgerService := ledger.New(store, notifier, ledger.Options{
		RepoTimeout:  cfg.RepoTimeout,
		ReadAttempts: cfg.ReadRetries,
		RetryBackoff: cfg.RetryBackoff,
		Tolerance:    cfg.RoundingTolerance,
		Metrics:      m,
	})

	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(
		service.NewLedgerService(ledgerService),
		connect.WithInterceptors(
			middleware.MetricsInterceptor(m),
			middleware.RequireAuth(jwtManager),
			middleware.LoggingInterceptor(),
		),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Handle(ledgerPath+"*", ledgerHandler)
	r.Handle("/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.RepoTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// h2c serves HTTP/2 without TLS, which Connect and gRPC clients need
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(r, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "service", service.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	notifier.Close()
	if err := store.Close(); err != nil {
		slog.Error("Failed to close storage", "error", err)
	}
	slog.Info("Server exited")
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
