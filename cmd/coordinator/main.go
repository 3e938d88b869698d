package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	catalogapp "github.com/orderflow/fulfillment/internal/catalog/application"
	catdom "github.com/orderflow/fulfillment/internal/catalog/domain"
	invapp "github.com/orderflow/fulfillment/internal/inventory/application"
	"github.com/orderflow/fulfillment/internal/journal"
	journalpg "github.com/orderflow/fulfillment/internal/journal/postgres"
	"github.com/orderflow/fulfillment/internal/ops"
	orchapp "github.com/orderflow/fulfillment/internal/orchestrator/application"
	orderapp "github.com/orderflow/fulfillment/internal/order/application"
	"github.com/orderflow/fulfillment/internal/router"
	routerkafka "github.com/orderflow/fulfillment/internal/router/kafka"
	"github.com/orderflow/fulfillment/pkg/idempotency"
	"github.com/orderflow/fulfillment/pkg/logging"
	"github.com/orderflow/fulfillment/pkg/shutdown"
	"github.com/orderflow/fulfillment/pkg/tracing"
)

func main() {
	log := logging.New()
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	kafkaAddr := env("KAFKA_ADDR", "localhost:9092")
	orderTopic := env("ORDER_TOPIC", "order_queue")
	productTopic := env("PRODUCT_TOPIC", "product_queue")
	inventoryTopic := env("INVENTORY_TOPIC", "inventory_queue")
	statusTopic := env("ORDER_STATUS_TOPIC", "order_status_queue")
	resultTopic := env("RESULT_TOPIC", "fulfillment_results")
	group := env("GROUP_ID", "fulfillment-core")
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	pgURL := env("PG_URL", "")
	otlpEndpoint := env("OTLP_ENDPOINT", "localhost:4318")
	opsAddr := env("OPS_ADDR", ":8081")

	tp, err := tracing.Init(ctx, "fulfillment-coordinator", otlpEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	applied := idempotency.NewRedisStore(rdb, 24*time.Hour)

	// Adjustment journal is optional: without PG_URL the ledger runs purely
	// in memory.
	var appender invapp.Appender
	if pgURL != "" {
		pool, err := pgxpool.New(ctx, pgURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		sink := journalpg.NewSink(log, pool)
		if err := sink.EnsureSchema(ctx); err != nil {
			log.Error("journal schema failed", "err", err)
			os.Exit(1)
		}
		relay := journal.NewRelay(log, sink)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("journal relay stopped", "err", err)
			}
		}()
		appender = relay
	}

	stock := invapp.NewLedger(log, appender)
	orders := orderapp.NewLedger(log)
	catalog := catalogapp.NewRegister(log, stock)
	coord := orchapp.NewCoordinator(log, orders, stock, applied)
	rt := router.New(log, catalog, coord)

	if env("SEED_CATALOG", "") == "true" {
		seedCatalog(log, catalog)
	}

	results := routerkafka.NewPublisher(log, kafkaAddr, resultTopic)
	defer results.Close()

	channels := []struct {
		name   string
		topic  string
		handle routerkafka.Handler
	}{
		{"order", orderTopic, rt.HandleOrder},
		{"product", productTopic, rt.HandleProduct},
		{"inventory", inventoryTopic, rt.HandleInventory},
		{"order-status", statusTopic, rt.HandleOrderStatus},
	}
	for _, ch := range channels {
		c := routerkafka.NewConsumer(log, []string{kafkaAddr}, ch.topic, group, ch.name, ch.handle, applied, results)
		go func(name string) {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("consumer stopped", "channel", name, "err", err)
				cancel()
			}
		}(ch.name)
	}

	opsHandler := ops.NewHandler(log)
	opsServer := &http.Server{Addr: opsAddr, Handler: opsHandler.Routes()}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server stopped", "err", err)
		}
	}()
	opsHandler.SetReady(true)

	log.Info("fulfillment coordinator running",
		"kafka", kafkaAddr, "group", group, "journal", pgURL != "")
	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = opsServer.Shutdown(shutdownCtx)
	log.Info("fulfillment coordinator shutdown")
}

func seedCatalog(log *slog.Logger, catalog *catalogapp.Register) {
	seeds := []catdom.Spec{
		{Name: "Dell XPS 13 Laptop", Description: "13-inch laptop with Intel i7", Price: decimal.NewFromFloat(1299.99), Quantity: 15, Category: "electronics", SKU: "DLXPS13-001"},
		{Name: "iPhone 15 Pro", Description: "Apple flagship smartphone", Price: decimal.NewFromFloat(999.99), Quantity: 25, Category: "electronics", SKU: "IP15P-001"},
		{Name: "Sony WH-1000XM5", Description: "Wireless noise-cancelling headphones", Price: decimal.NewFromFloat(349.99), Quantity: 30, Category: "electronics", SKU: "SONYXM5-001"},
	}
	for _, s := range seeds {
		if _, err := catalog.Create(s); err != nil {
			log.Error("catalog seed failed", "name", s.Name, "err", err)
		}
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
