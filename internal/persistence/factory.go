package persistence

import (
	"context"
	"fmt"

	"github.com/jwwelbor/marcus/internal/config"
)

// Open selects a Store backend per spec §6's persistence_backend option,
// mirroring the driver-registry auto-selection pattern internal/db/registry.go
// uses for sqlite vs turso.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.PersistenceBackend {
	case "", "embedded-kv":
		path := cfg.Database.URL
		if path == "" {
			path = "marcus.db"
		}
		return OpenBoltStore(path)
	case "sql":
		return OpenSQLStore(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown persistence_backend: %q", cfg.PersistenceBackend)
	}
}
