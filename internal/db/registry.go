package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jwwelbor/marcus/internal/config"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// DriverFactory constructs an unconnected Database of one backend kind.
type DriverFactory func() Database

// RegisterDriver adds a backend under name; called from each driver's init.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// NewDatabase builds a Database for cfg, auto-detecting sqlite vs turso
// from the URL scheme when cfg.Backend is unset.
func NewDatabase(cfg config.DatabaseConfig) (Database, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = DetectBackend(cfg.URL)
	}

	driversMu.RLock()
	factory, ok := drivers[backend]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database backend: %s (available: %v)", backend, registeredDrivers())
	}
	return factory(), nil
}

// DetectBackend returns "turso" for libsql://, https:// URLs and "sqlite"
// otherwise.
func DetectBackend(url string) string {
	if strings.HasPrefix(url, "libsql://") || strings.HasPrefix(url, "https://") {
		return "turso"
	}
	return "sqlite"
}

func registeredDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}

// InitDatabase validates cfg, builds the right driver, resolves any turso
// auth token (file, env, or inline JWT per LoadAuthToken), and connects.
func InitDatabase(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	database, err := NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	dsn := cfg.URL
	if database.DriverName() == "libsql" {
		token, err := LoadAuthToken(cfg.AuthTokenFile)
		if err != nil {
			return nil, fmt.Errorf("loading turso auth token: %w", err)
		}
		if err := ValidateAuthToken(token); err != nil {
			return nil, fmt.Errorf("invalid turso auth token: %w", err)
		}
		dsn = BuildTursoConnectionString(cfg.URL, token)
	}

	if err := database.Connect(ctx, dsn); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Ping(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

func init() {
	RegisterDriver("sqlite", func() Database { return NewSQLiteDriver() })
	RegisterDriver("turso", func() Database { return NewTursoDriver() })
}
