package context

import "fmt"

// CheckoutConfig holds the static merchant-level settings a checkout flow
// runs under. In a real deployment this would be loaded from a configuration
// service; the in-memory repository below covers tests and the demo host.
type CheckoutConfig struct {
	MerchantAccount string
	ClientKey       string // public key presented to the gateway on every call
	Environment     string // e.g. "test", "live"
	CountryCode     string
	ShopperLocale   string
	ShopperRef      string // opaque shopper reference, keys the preselection store
	Amount          int64  // minor units
	Currency        string
}

// ConfigRepository defines an interface for fetching checkout configurations.
// This allows for different implementations (e.g., in-memory, database).
type ConfigRepository interface {
	Get(merchantAccount string) (CheckoutConfig, error)
}

// InMemoryConfigRepository is a simple in-memory implementation for testing
// and the demo host.
type InMemoryConfigRepository struct {
	configs map[string]CheckoutConfig
}

// NewInMemoryConfigRepository creates a new in-memory repository.
func NewInMemoryConfigRepository() *InMemoryConfigRepository {
	return &InMemoryConfigRepository{
		configs: make(map[string]CheckoutConfig),
	}
}

// AddConfig adds a checkout configuration to the repository.
func (r *InMemoryConfigRepository) AddConfig(config CheckoutConfig) {
	r.configs[config.MerchantAccount] = config
}

// Get fetches a checkout configuration by merchant account.
func (r *InMemoryConfigRepository) Get(merchantAccount string) (CheckoutConfig, error) {
	config, ok := r.configs[merchantAccount]
	if !ok {
		return CheckoutConfig{}, fmt.Errorf("checkout config not found for merchant account: %s", merchantAccount)
	}
	return config, nil
}
