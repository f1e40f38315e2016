// Command marcusd is the coordination server's process entrypoint: load
// config, construct a Core, start its background workers, and serve the
// protocol over HTTP. Grounded on the teacher's cmd/server/main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/core"
	"github.com/jwwelbor/marcus/internal/persistence"
	"github.com/jwwelbor/marcus/internal/protocol"
	"github.com/jwwelbor/marcus/internal/provider"
)

func main() {
	configPath := flag.String("config", "", "path to .marcusconfig.yaml (optional)")
	addr := flag.String("addr", ":8080", "address to serve the protocol endpoint on")
	flag.Parse()

	logger := log.New(os.Stdout, "marcusd ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := persistence.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("opening persistence backend %q: %v", cfg.PersistenceBackend, err)
	}

	prov, err := provider.New(cfg.Provider, cfg.ProviderConfig)
	if err != nil {
		logger.Fatalf("selecting provider %q: %v", cfg.Provider, err)
	}

	var oracle aiclient.Oracle // nil: always falls back to the deterministic scorer.
	c := core.New(cfg, store, prov, oracle)
	c.SetLogger(logger)
	if err := c.Rehydrate(); err != nil {
		logger.Fatalf("rehydrating from persistence backend %q: %v", cfg.PersistenceBackend, err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Printf("closing core: %v", err)
		}
	}()

	workers := c.Start(ctx)

	d := protocol.New(c)
	server := &http.Server{Addr: *addr, Handler: d.HTTPHandler()}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}

	if err := workers.Wait(); err != nil {
		logger.Printf("background workers: %v", err)
	}
}
