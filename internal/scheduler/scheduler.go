// Package scheduler contains the reconciliation engines: order ingestion,
// auto-assignment, production ticking, threshold alerts, and snapshot
// history. Each engine runs as an independent periodic loop against one
// shared store; machine mutations go through the store's versioned update
// so concurrent loops never clobber each other.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"prodplane/internal/logger"
	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// Store combines the repositories the engines operate on.
type Store interface {
	store.MachineStore
	store.DemandStore
	store.HistoryStore
	BeginTx(ctx context.Context) (store.Tx, error)
}

// OrderSource produces the current pending external work orders.
// A failed fetch is reported as an error and treated as an empty set:
// a missed assignment is always preferable to a duplicate one.
type OrderSource interface {
	FetchPending(ctx context.Context) ([]store.Order, error)
}

// StatusPusher informs the external system of local status changes.
// Implementations are fire-and-forget and must never block a tick loop
// beyond their own request timeout.
type StatusPusher interface {
	SetStatus(ctx context.Context, orderID, status string)
}

// Broadcaster delivers state-change events to observers.
type Broadcaster interface {
	Broadcast(ctx context.Context, event api.Event)
}

// Config holds the engine periods.
type Config struct {
	SyncInterval    time.Duration // order fetch + assignment pass
	TickInterval    time.Duration
	AlertInterval   time.Duration
	HistoryInterval time.Duration
}

// Scheduler owns the periodic loops. One active scheduler per deployment.
type Scheduler struct {
	store  Store
	source OrderSource
	pusher StatusPusher
	hub    Broadcaster
	logger *slog.Logger
	cfg    Config

	// lastAlertLevel tracks the last fired tier per machine so a stable
	// percentage never re-fires. Touched only by the alert loop.
	lastAlertLevel map[int64]alertLevel

	done chan struct{}
}

// New creates a scheduler. Zero periods get sensible defaults.
func New(s Store, source OrderSource, pusher StatusPusher, hub Broadcaster, log *slog.Logger, cfg Config) *Scheduler {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 10 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = 5 * time.Second
	}
	if cfg.HistoryInterval <= 0 {
		cfg.HistoryInterval = 30 * time.Second
	}

	return &Scheduler{
		store:          s,
		source:         source,
		pusher:         pusher,
		hub:            hub,
		logger:         log,
		cfg:            cfg,
		lastAlertLevel: make(map[int64]alertLevel),
		done:           make(chan struct{}),
	}
}

// Run starts every engine loop and blocks until the context is cancelled.
// The loops are torn down as a unit; an in-flight pass either commits its
// current machine mutation or abandons it cleanly.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		"sync_interval", s.cfg.SyncInterval,
		"tick_interval", s.cfg.TickInterval,
		"alert_interval", s.cfg.AlertInterval,
		"history_interval", s.cfg.HistoryInterval,
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go s.runEvery(ctx, &wg, "assign", s.cfg.SyncInterval, s.assignPass)
	go s.runEvery(ctx, &wg, "tick", s.cfg.TickInterval, s.tickPass)
	go s.runEvery(ctx, &wg, "alert", s.cfg.AlertInterval, s.alertPass)
	go s.runEvery(ctx, &wg, "history", s.cfg.HistoryInterval, s.snapshotPass)

	wg.Wait()
	close(s.done)
	return ctx.Err()
}

// Done returns a channel that is closed when all loops have stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// runEvery drives one engine on a fixed period. Errors and panics from a
// cycle are logged and the loop continues; no engine failure may take
// down another.
func (s *Scheduler) runEvery(ctx context.Context, wg *sync.WaitGroup, name string, period time.Duration, fn func(context.Context) error) {
	defer wg.Done()

	log := logger.ForEngine(s.logger, name)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("engine stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error("engine cycle panicked", "panic", r)
					}
				}()
				if err := fn(ctx); err != nil {
					log.Error("engine cycle failed", "error", err)
				}
			}()
		}
	}
}
