package cli

import (
	"context"
	"fmt"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/core"
	"github.com/jwwelbor/marcus/internal/persistence"
	"github.com/jwwelbor/marcus/internal/provider"
)

// openCore loads configuration and wires a Core directly against the
// configured persistence backend, the same way the teacher's commands open
// the sqlite file directly rather than going through a running server.
func openCore(ctx context.Context) (*core.Core, error) {
	cfg, err := config.Load(Global.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := persistence.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening persistence backend %q: %w", cfg.PersistenceBackend, err)
	}

	prov, err := provider.New(cfg.Provider, cfg.ProviderConfig)
	if err != nil {
		return nil, fmt.Errorf("selecting provider %q: %w", cfg.Provider, err)
	}

	var oracle aiclient.Oracle
	c := core.New(cfg, store, prov, oracle)
	if err := c.Rehydrate(); err != nil {
		return nil, fmt.Errorf("rehydrating from persistence backend %q: %w", cfg.PersistenceBackend, err)
	}
	return c, nil
}
