// Package core wires every component of the task assignment and
// lifecycle engine behind the single serialization point spec §5
// mandates: a coarse sync.RWMutex guarding the TaskGraph, AgentRegistry,
// and LeaseManager together. Reads take the read lock; any mutation takes
// the write lock for the duration of its critical section only — provider
// calls and oracle scoring happen outside the lock. Two oracle calls do
// run under it, each bounded by the oracle deadline: the prediction made
// while building a task's context (read lock) and the mitigation
// suggestions of ReportBlocker (write lock).
//
// Grounded on the teacher's cmd/server/main.go (top-level construct-and-
// wire shape) and internal/config/manager.go's constructor-and-inject
// style; Core itself has no teacher equivalent since the teacher has no
// explicit serialization point (spec design note §9: "avoid hidden
// globals so tests can instantiate isolated Cores").
package core

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/assign"
	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/contextbuilder"
	"github.com/jwwelbor/marcus/internal/dependency"
	"github.com/jwwelbor/marcus/internal/diagnostics"
	"github.com/jwwelbor/marcus/internal/lease"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/persistence"
	"github.com/jwwelbor/marcus/internal/progress"
	"github.com/jwwelbor/marcus/internal/provider"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Core is the explicit, non-global value spec design note §9 calls for:
// every handler takes a *Core rather than reaching into a package-level
// singleton, so tests can build as many isolated Cores as they like.
type Core struct {
	mu sync.RWMutex

	cfg config.Config

	graph    *taskgraph.Graph
	registry *registry.Registry
	leases   *lease.Manager
	journal  *progress.Journal

	oracle          *aiclient.Client
	assigner        *assign.Assigner
	progressHandler *progress.Handler
	contextBuilder  *contextbuilder.Builder
	diagEngine      *diagnostics.Engine

	provider provider.Adapter
	store    persistence.Store
	logger   *log.Logger

	// inflight collapses concurrent request_next_task calls from the same
	// agent id into one execution (spec §4.3: idempotent re-request while
	// already assigned should never race itself).
	inflight singleflight.Group

	stop   chan struct{}
	workWG sync.WaitGroup
}

// New constructs a Core with every component wired per spec §2's
// dependency order (Persistence -> Registry/Provider -> TaskGraph ->
// DependencyEngine -> LeaseManager -> ContextBuilder -> Assigner ->
// ProgressHandler -> Diagnostics).
func New(cfg config.Config, store persistence.Store, prov provider.Adapter, oracle aiclient.Oracle) *Core {
	graph := taskgraph.New()
	reg := registry.New()
	leases := lease.New()
	journal := progress.NewJournal(store)
	oracleClient := aiclient.NewClient(oracle, cfg.AIDeadline)

	c := &Core{
		cfg:      cfg,
		graph:    graph,
		registry: reg,
		leases:   leases,
		journal:  journal,
		oracle:   oracleClient,
		store:    store,
		provider: prov,
		logger:   log.Default(),
		stop:     make(chan struct{}),
	}

	c.assigner = assign.New(graph, reg, leases)
	c.progressHandler = progress.New(graph, reg, leases, journal, oracleClient, cfg.ProgressMonotonicPolicy)
	c.contextBuilder = contextbuilder.New(graph, journal, oracleClient)
	c.diagEngine = diagnostics.New(graph, reg, diagnostics.Config{
		BottleneckThreshold: cfg.BottleneckThreshold,
		LongChainDepth:      cfg.LongChainDepth,
	})
	return c
}

// Start launches the background workers of spec §5: the lease sweeper and
// the provider reconciliation loop, each running on its own period in an
// errgroup goroutine that stops when ctx is cancelled. Panics are not
// recovered.
func (c *Core) Start(ctx context.Context) *errgroup.Group {
	g, ctx := errgroup.WithContext(ctx)
	c.workWG.Add(2)
	g.Go(func() error {
		defer c.workWG.Done()
		c.runSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		defer c.workWG.Done()
		c.runReconciliation(ctx)
		return nil
	})
	return g
}

// Close signals background workers to stop and waits for them, then closes
// the persistence store.
func (c *Core) Close() error {
	close(c.stop)
	c.workWG.Wait()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// AddTask inserts a task into the graph under the serialization lock; used
// by the out-of-scope project-creation collaborator's interface (spec §1)
// and by tests seeding fixtures. It then runs dependency inference against
// the rest of the graph (spec §4.2(c)) and durably persists the new task
// before returning success (spec §3/§5).
func (c *Core) AddTask(task *models.Task) (*models.Task, error) {
	c.mu.Lock()
	added, err := c.graph.Add(task)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inferDependencies(added)
	var parent *models.Task
	if added.ParentID != nil {
		// graph.Add appended added.ID to the parent's in-memory Children
		// slice; the parent's own persisted record must be refreshed too; or
		// replaying it after a restart would rehydrate a parent that doesn't
		// know about this child.
		parent, _ = c.graph.Get(*added.ParentID)
	}
	c.mu.Unlock()

	if err := c.persistTask(added); err != nil {
		return nil, err
	}
	if parent != nil {
		if err := c.persistTask(parent); err != nil {
			return nil, err
		}
	}
	return added, nil
}

// inferDependencies runs the pattern-rule inferer of spec §4.2(c) against
// every existing task and evaluates the resulting candidates through a
// dependency.Engine seeded with the current hard-edge graph: edges the
// engine accepts (hard or soft) are applied directly, everything it
// rejects (below-threshold or cycle-forming candidates) is recorded as a
// "suggested" diagnostic rather than silently discarded. Must be called
// under the exclusive lock.
func (c *Core) inferDependencies(task *models.Task) {
	candidates := dependency.InferByLabelOverlap(task, c.graph.AllTasks())
	if len(candidates) == 0 {
		return
	}
	engine := dependency.NewEngine(c.graph.HardDependencyGraph(), c.cfg.AIConfidenceThreshold)
	for _, res := range engine.EvaluateAll(candidates) {
		if res.Applied {
			_ = c.graph.AddDependency(res.Edge.Task, res.Edge.DependsOn, res.Edge.Type)
			continue
		}
		c.diagEngine.RecordSuggestedEdge(res.Edge)
	}
}

// SetLogger overrides the default log.Default() logger, letting the daemon
// and CLI entrypoints give Core's background workers a prefix of their own
// (as cmd/server/main.go does with the stdlib log package directly).
func (c *Core) SetLogger(logger *log.Logger) {
	if logger == nil {
		return
	}
	c.logger = logger
}

// Config returns the Core's configuration (read-only; Config is a value
// type so callers cannot mutate the live configuration through it).
func (c *Core) Config() config.Config {
	return c.cfg
}

// reflectToProvider pushes a local status change to the configured kanban
// backend after the local state is already durably recorded (spec §4.8:
// "write-through with rollback on failure" — but the rollback target is
// always the *local* store being the source of truth, so a provider
// failure here is logged, not retried inline against the critical
// section).
func (c *Core) reflectToProvider(ctx context.Context, idempotencyKey, externalID, status string) error {
	if c.provider == nil {
		return nil
	}
	_, err := c.provider.SetStatus(ctx, idempotencyKey, externalID, status)
	if err != nil {
		return fmt.Errorf("provider reflect failed (local state unchanged, source of truth): %w", err)
	}
	return nil
}
