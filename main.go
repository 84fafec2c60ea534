package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appinv "github.com/shopcore/fulfillment/internal/application/inventory"
	apporder "github.com/shopcore/fulfillment/internal/application/order"
	"github.com/shopcore/fulfillment/internal/audit"
	"github.com/shopcore/fulfillment/internal/infrastructure/id"
	"github.com/shopcore/fulfillment/internal/infrastructure/inventoryhttp"
	"github.com/shopcore/fulfillment/internal/infrastructure/kafka"
	"github.com/shopcore/fulfillment/internal/infrastructure/memory"
	"github.com/shopcore/fulfillment/internal/infrastructure/postgres"
	"github.com/shopcore/fulfillment/internal/infrastructure/redisstore"
	"github.com/shopcore/fulfillment/internal/pkg/logging"
	httptransport "github.com/shopcore/fulfillment/internal/transport/http"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "fulfillment")
	env := getenvDefault("ENV", "dev")
	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	placements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_placements_total",
			Help: "Total number of order placement attempts.",
		},
		[]string{"outcome"},
	)
	placementDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placement_duration_seconds",
			Help:    "Duration of order placement in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	inventoryCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_calls_total",
			Help: "Guarded inventory collaborator calls.",
		},
		[]string{"op", "outcome"},
	)
	debitFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_debit_failures_total",
			Help: "Count of stock debits that failed at the transport level.",
		},
	)
	auditDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Audit channel items dropped because the queue was full.",
		},
	)
	prometheus.MustRegister(placements, placementDuration, inventoryCalls, debitFailures, auditDropped)

	// Audit side-channel: kafka when brokers are configured, structured logs
	// otherwise. Either way delivery stays off the request path.
	var recorder audit.Recorder = audit.NewLogSink(baseLogger)
	var sender audit.Sender = audit.NewNotificationLogSink(baseLogger)
	if brokers := splitList(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		auditSink := kafka.NewAuditSink(brokers, getenvDefault("KAFKA_AUDIT_TOPIC", "audit-events"))
		notifySink := kafka.NewNotificationSink(brokers, getenvDefault("KAFKA_NOTIFICATION_TOPIC", "notifications"))
		defer func() { _ = auditSink.Close() }()
		defer func() { _ = notifySink.Close() }()
		recorder = auditSink
		sender = notifySink
	}

	dispatcher := audit.NewDispatcher(recorder, sender, baseLogger, auditDropped)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop(context.Background())

	interceptor := audit.NewInterceptor(serviceName, dispatcher, getenvDefault("NOTIFY_DESTINATION", "ops"))

	var invStore appinv.Store = memory.NewInventoryStore()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		invStore = redisstore.NewInventoryStore(addr)
	}
	inventoryService := appinv.NewService(invStore, interceptor)

	var orderStore apporder.OrderStore = memory.NewOrderStore()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pg, err := postgres.Open(context.Background(), dsn)
		if err != nil {
			baseLogger.Fatal("postgres_open_failed", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()
		orderStore = pg
	}

	// The orchestrator talks to inventory either in-process or over HTTP.
	var lookup apporder.InventoryLookup = inventoryService
	var mutation apporder.InventoryMutation = inventoryService
	if url := os.Getenv("INVENTORY_URL"); url != "" {
		client := inventoryhttp.NewClient(url)
		lookup = client
		mutation = client
	}

	callTimeout := durationEnv("INVENTORY_CALL_TIMEOUT", 0)
	orderService := apporder.NewService(orderStore, lookup, mutation, id.NewUUIDGenerator(), callTimeout, &apporder.Metrics{
		Placements:        placements,
		PlacementDuration: placementDuration,
		InventoryCalls:    inventoryCalls,
		DebitFailures:     debitFailures,
	})

	handler := httptransport.NewHandler(orderService, inventoryService)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httptransport.NewRouter(handler))

	server := &http.Server{
		Addr:    getenvDefault("ADDR", ":8080"),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
