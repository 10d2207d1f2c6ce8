// Package config loads notifyd settings from YAML with NOTIFYD_ environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/yourorg/gateway-notify/internal/circuitbreaker"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/monitor"
	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/policy"
	"github.com/yourorg/gateway-notify/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. NOTIFYD_SERVER_ADDR.
const EnvPrefix = "NOTIFYD"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete notifyd configuration.
type Config struct {
	Server      ServerConfig                   `mapstructure:"server"`
	Log         LogConfig                      `mapstructure:"log"`
	Tracing     telemetry.TracerConfig         `mapstructure:"tracing"`
	Store       StoreConfig                    `mapstructure:"store"`
	Redis       RedisConfig                    `mapstructure:"redis"`
	Breaker     circuitbreaker.Config          `mapstructure:"breaker"`
	Gateways    []custom_context.GatewayConfig `mapstructure:"gateways"`
	StatusRules []policy.RuleConfig            `mapstructure:"status_rules"`
	Orders      []OrderSeed                    `mapstructure:"orders"`

	// GatewaySchema optionally names a JSON schema file that replaces the
	// built-in gateway schema.
	GatewaySchema string `mapstructure:"gateway_schema"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// BaseURL is the shop's public URL, used to build gateway callback URLs.
	BaseURL string `mapstructure:"base_url"`
	// DeclineURL is the fallback decline page when a payment method has none.
	DeclineURL      string        `mapstructure:"decline_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig selects the order and log backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// RedisConfig enables the Redis fallback sink for the attempt log when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// OrderSeed is an order loaded into the store at startup, for demos and tests.
type OrderSeed struct {
	ID              string          `mapstructure:"id"`
	Total           string          `mapstructure:"total"`
	Currency        string          `mapstructure:"currency"`
	Email           string          `mapstructure:"email"`
	PaymentMethodID string          `mapstructure:"payment_method_id"`
	Billing         payment.Address `mapstructure:"billing"`
	Shipping        payment.Address `mapstructure:"shipping"`
}

// Order converts the seed into a payment.Order.
func (s OrderSeed) Order() (payment.Order, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(s.Total))
	if err != nil {
		return payment.Order{}, fmt.Errorf("order %s: invalid total %q: %w", s.ID, s.Total, err)
	}
	return payment.Order{
		ID:              s.ID,
		Total:           total,
		Currency:        s.Currency,
		Email:           s.Email,
		Billing:         s.Billing,
		Shipping:        s.Shipping,
		PaymentMethodID: s.PaymentMethodID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.decline_url", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.environment", "local")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.path", "notifyd.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "notify:attempts")
	v.SetDefault("redis.max_len", 10000)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.reset_timeout", 30*time.Second)
	v.SetDefault("breaker.half_open_successes", 1)
}

// Load reads path (YAML) on top of the defaults and applies NOTIFYD_
// environment overrides. An empty path loads defaults and environment only.
// The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) gatewayMonitor() (*monitor.ContractMonitor, error) {
	if path := strings.TrimSpace(c.GatewaySchema); path != "" {
		return monitor.NewContractMonitor(path)
	}
	return monitor.NewGatewayConfigMonitor()
}

// Validate checks cross-field constraints and the gateway schema.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("%w: store.path is required for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("%w: server.base_url is required", ErrInvalidConfig)
	}

	if len(c.Gateways) > 0 {
		cm, err := c.gatewayMonitor()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := cm.ValidateValue(c.Gateways); err != nil {
			return fmt.Errorf("%w: gateways: %v", ErrInvalidConfig, err)
		}
	}
	ids := make(map[string]struct{}, len(c.Gateways))
	for _, g := range c.Gateways {
		if _, dup := ids[g.ID]; dup {
			return fmt.Errorf("%w: duplicate gateway id %q", ErrInvalidConfig, g.ID)
		}
		ids[g.ID] = struct{}{}
	}

	if _, err := policy.NewStatusPolicy(c.StatusRules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, seed := range c.Orders {
		if strings.TrimSpace(seed.ID) == "" {
			return fmt.Errorf("%w: seeded order without id", ErrInvalidConfig)
		}
		if _, err := seed.Order(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if seed.PaymentMethodID == "" {
			continue
		}
		if _, ok := ids[seed.PaymentMethodID]; !ok {
			return fmt.Errorf("%w: order %s references unknown payment method %q",
				ErrInvalidConfig, seed.ID, seed.PaymentMethodID)
		}
	}
	return nil
}

// SeedOrders converts every seed. Load has already validated them.
func (c *Config) SeedOrders() ([]payment.Order, error) {
	orders := make([]payment.Order, 0, len(c.Orders))
	for _, seed := range c.Orders {
		o, err := seed.Order()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
