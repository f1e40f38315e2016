package provider

import (
	"fmt"
	"sync"

	"github.com/jwwelbor/marcus/internal/config"
)

// AdapterFactory builds a provider Adapter from its configuration, the
// same shape as internal/db/registry.go's DriverFactory one layer down.
type AdapterFactory func(cfg config.ProviderConfig) Adapter

var (
	mu       sync.RWMutex
	adapters = map[string]AdapterFactory{
		"in-memory": func(cfg config.ProviderConfig) Adapter { return NewInMemory() },
		"planka": func(cfg config.ProviderConfig) Adapter {
			return NewPlanka(cfg.BaseURL, cfg.Token, cfg.BoardID)
		},
		"github": func(cfg config.ProviderConfig) Adapter {
			return NewGitHub(cfg.Token, cfg.BoardID)
		},
		"linear": func(cfg config.ProviderConfig) Adapter {
			return NewLinear(cfg.Token, cfg.BoardID)
		},
	}
)

// RegisterAdapter adds or overrides an adapter factory by name, letting a
// test or a deployment-specific build plug in a custom provider without
// touching this package.
func RegisterAdapter(name string, factory AdapterFactory) {
	mu.Lock()
	defer mu.Unlock()
	adapters[name] = factory
}

// New selects an Adapter by spec §6's provider config field, mirroring
// internal/db/registry.go's NewDatabase.
func New(name string, cfg config.ProviderConfig) (Adapter, error) {
	mu.RLock()
	factory, ok := adapters[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider: unknown provider %q", name)
	}
	return factory(cfg), nil
}
