package context

import (
	"errors"
	"fmt"
	"sync"
)

// ErrGatewayConfigNotFound is returned when no configuration exists for an id.
var ErrGatewayConfigNotFound = errors.New("gateway config not found")

// GatewayConfigRepository defines an interface for fetching gateway configurations.
// This allows for different implementations (e.g., in-memory, database).
type GatewayConfigRepository interface {
	Get(configID string) (GatewayConfig, error)
}

// InMemoryGatewayConfigRepository is a simple in-memory implementation, filled from the config file.
type InMemoryGatewayConfigRepository struct {
	mu      sync.RWMutex
	configs map[string]GatewayConfig
}

// NewInMemoryGatewayConfigRepository creates a new in-memory repository.
func NewInMemoryGatewayConfigRepository(configs ...GatewayConfig) *InMemoryGatewayConfigRepository {
	r := &InMemoryGatewayConfigRepository{
		configs: make(map[string]GatewayConfig),
	}
	for _, c := range configs {
		r.AddConfig(c)
	}
	return r
}

// AddConfig adds a gateway configuration to the repository.
func (r *InMemoryGatewayConfigRepository) AddConfig(config GatewayConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.ID] = config
}

// Get fetches a gateway configuration by ID.
func (r *InMemoryGatewayConfigRepository) Get(configID string) (GatewayConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[configID]
	if !ok {
		return GatewayConfig{}, fmt.Errorf("%w for ID: %s", ErrGatewayConfigNotFound, configID)
	}
	return config, nil
}
