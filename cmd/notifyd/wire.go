package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/adapter/beanstream"
	"github.com/yourorg/gateway-notify/internal/adapter/custom"
	"github.com/yourorg/gateway-notify/internal/adapter/eway"
	"github.com/yourorg/gateway-notify/internal/adapter/worldpay"
	"github.com/yourorg/gateway-notify/internal/attemptlog"
	"github.com/yourorg/gateway-notify/internal/checkout"
	"github.com/yourorg/gateway-notify/internal/circuitbreaker"
	"github.com/yourorg/gateway-notify/internal/config"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/orchestrator"
	"github.com/yourorg/gateway-notify/internal/policy"
	"github.com/yourorg/gateway-notify/internal/server"
	"github.com/yourorg/gateway-notify/internal/store"
	"github.com/yourorg/gateway-notify/internal/store/memory"
	"github.com/yourorg/gateway-notify/internal/store/sqlite"
	"github.com/yourorg/gateway-notify/internal/transition"
	"github.com/yourorg/gateway-notify/internal/verifier"
)

// app holds every long-lived component built from a Config.
type app struct {
	store        store.Store
	redis        *redis.Client
	adapters     *adapter.Registry
	orchestrator *orchestrator.Orchestrator
	checkout     *checkout.Builder
	server       *server.Server
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func newRegistry(baseURL string) *adapter.Registry {
	urls := adapter.CallbackURLs{BaseURL: baseURL}
	return adapter.NewRegistry(
		beanstream.NewBeanstreamAdapter(urls),
		eway.NewEwayAdapter(urls),
		worldpay.NewWorldpayAdapter(urls),
		custom.NewCustomAdapter(urls),
	)
}

// newApp wires the notification pipeline. Seeded orders are saved to the
// store; an order already paid in the store stays paid.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{store: st}

	seeds, err := cfg.SeedOrders()
	if err != nil {
		a.close()
		return nil, err
	}
	for _, o := range seeds {
		if err := st.SaveOrder(ctx, o); err != nil {
			a.close()
			return nil, fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}

	statusPolicy, err := policy.NewStatusPolicy(cfg.StatusRules)
	if err != nil {
		a.close()
		return nil, err
	}

	var fallback attemptlog.Sink = attemptlog.NewSlogSink(slog.Default())
	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		fallback = attemptlog.NewRedisSink(a.redis, cfg.Redis.Key, cfg.Redis.MaxLen)
	}
	attempts := attemptlog.NewLogger(attemptlog.NewStoreSink(st), fallback, circuitbreaker.NewCircuitBreaker(cfg.Breaker))

	configs := custom_context.NewInMemoryGatewayConfigRepository(cfg.Gateways...)
	a.adapters = newRegistry(cfg.Server.BaseURL)
	a.orchestrator = orchestrator.NewOrchestrator(
		a.adapters,
		verifier.NewVerifier(st, configs),
		transition.NewApplier(st, statusPolicy),
		attempts,
	)
	a.checkout = checkout.NewBuilder(st, configs, a.adapters)
	a.server = server.New(a.orchestrator, a.checkout, st, server.Options{
		ServiceName: serviceName,
		DeclineURL:  cfg.Server.DeclineURL,
	})

	slog.InfoContext(ctx, "App: pipeline ready",
		"store", cfg.Store.Driver,
		"gateways", len(cfg.Gateways),
		"adapters", a.adapters.Names(),
		"status_rules", statusPolicy.Len(),
		"redis_fallback", cfg.Redis.Enabled())
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("App: closing redis client", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("App: closing store", "error", err)
		}
	}
}
