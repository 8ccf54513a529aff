// Package daemon runs the scheduling loop: fetch the managed datasets,
// sleep until the earliest retention deadline, take the snapshots that
// are due and destroy the ones no rule wants anymore. Nothing is cached
// across cycles; every decision is recomputed from a fresh listing.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/config"
	"github.com/raoulx24/zfs-autosnapd/internal/metrics"
	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

// fetch failures are retried this many times with doubling delay before
// a cycle gives up.
const (
	fetchRetries   = 5
	fetchRetryBase = 500 * time.Millisecond
)

// Daemon owns the single scheduling goroutine. It is not concurrent
// across datasets: one cycle is a closed fetch-decide-act transaction
// against the store.
type Daemon struct {
	store     zfs.Store
	log       *slog.Logger
	now       func() time.Time
	retryBase time.Duration

	mu  sync.RWMutex
	cfg config.DaemonConfig

	// reload interrupts the inter-cycle sleep when the config changes.
	reload chan struct{}
}

// New builds a daemon around the given store.
func New(store zfs.Store, cfg config.DaemonConfig, log *slog.Logger) *Daemon {
	return &Daemon{
		store:     store,
		cfg:       cfg,
		log:       log.With("component", "daemon"),
		now:       time.Now,
		retryBase: fetchRetryBase,
		reload:    make(chan struct{}, 1),
	}
}

// UpdateConfig swaps in new daemon settings and cuts the current sleep
// short so they take effect immediately.
func (d *Daemon) UpdateConfig(cfg config.DaemonConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	select {
	case d.reload <- struct{}{}:
	default:
	}
	d.log.Info("daemon config updated", "pollInterval", cfg.PollInterval)
}

func (d *Daemon) pollInterval() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.PollInterval
}

// Run loops until the context is cancelled or a cycle fails. Create and
// destroy errors are deliberately fatal to the loop: skipping a failed
// destroy would silently mask storage growth.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("daemon started", "pollInterval", d.pollInterval())
	for {
		if err := d.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				d.log.Info("daemon stopped")
				return nil
			}
			return err
		}
		metrics.Cycles.Inc()
	}
}

// cycle is one fetch-sleep-act pass.
func (d *Daemon) cycle(ctx context.Context) error {
	datasets, err := d.fetch(ctx)
	if err != nil {
		return err
	}
	metrics.ConfiguredDatasets.Set(float64(len(datasets)))

	for _, ds := range datasets {
		if len(ds.Snapshots) == 0 {
			// No snapshot history means no rule can report a deadline;
			// only the fallback poll below gets this dataset its first
			// snapshot.
			d.log.Warn("dataset has no snapshots, waiting for the poll interval", "dataset", ds.Name)
		}
	}

	wait := d.pollInterval()
	if due, ok := nextDueAcross(datasets, d.now()); ok && due < wait {
		wait = due
	}

	d.log.Debug("sleeping until next deadline", "wait", wait)
	if err := d.sleep(ctx, wait); err != nil {
		return err
	}

	// Act on the listing fetched at the top of the cycle; the next cycle
	// starts from a fresh one. Dueness is recomputed against the post-
	// sleep clock.
	if err := SnapDue(ctx, d.store, datasets, d.log, d.now()); err != nil {
		return err
	}
	return Prune(ctx, d.store, datasets, d.log)
}

// sleep waits for the duration, the context or a config reload,
// whichever comes first.
func (d *Daemon) sleep(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.reload:
		d.log.Debug("sleep interrupted by config reload")
		return nil
	case <-timer.C:
		return nil
	}
}

// fetch lists the managed datasets, retrying transient listing failures
// with exponential backoff so a hiccup in the zfs tooling does not kill
// a long-running daemon.
func (d *Daemon) fetch(ctx context.Context) ([]zfs.Dataset, error) {
	var lastErr error
	delay := d.retryBase
	for attempt := 1; attempt <= fetchRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		datasets, err := d.store.Datasets(ctx)
		if err == nil {
			return datasets, nil
		}

		lastErr = err
		metrics.StoreErrors.Inc()
		d.log.Warn("listing datasets failed", "attempt", attempt, "error", err)

		if attempt == fetchRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("listing datasets failed after %d attempts: %w", fetchRetries, lastErr)
}

// nextDueAcross is the earliest deadline over all datasets. False when
// no dataset reports one.
func nextDueAcross(datasets []zfs.Dataset, now time.Time) (time.Duration, bool) {
	var min time.Duration
	found := false
	for _, ds := range datasets {
		due, ok := ds.Policy.NextSnapshotDue(ds.Snapshots, now)
		if !ok {
			continue
		}
		if !found || due < min {
			min = due
			found = true
		}
	}
	return min, found
}

// SnapDue takes a snapshot of every dataset whose policy deadline has
// arrived. Shared by the daemon cycle and the one-shot snap command.
func SnapDue(ctx context.Context, store zfs.Store, datasets []zfs.Dataset, log *slog.Logger, now time.Time) error {
	for _, ds := range datasets {
		due, ok := ds.Policy.NextSnapshotDue(ds.Snapshots, now)
		if !ok || due > 0 {
			continue
		}
		snap, err := store.Snapshot(ctx, ds.Name)
		if err != nil {
			metrics.StoreErrors.Inc()
			return err
		}
		metrics.SnapshotsCreated.Inc()
		log.Info("made snapshot", "snapshot", snap.Name)
	}
	return nil
}

// Prune destroys every snapshot its dataset's policy rejects. Shared by
// the daemon cycle and the one-shot gc command. A destroy failure aborts
// immediately; it is never skipped.
func Prune(ctx context.Context, store zfs.Store, datasets []zfs.Dataset, log *slog.Logger) error {
	for _, ds := range datasets {
		judgement := ds.Policy.Judge(ds.Snapshots)
		for _, snap := range judgement.Rejected {
			if err := store.Destroy(ctx, snap); err != nil {
				metrics.StoreErrors.Inc()
				return err
			}
			metrics.SnapshotsDestroyed.Inc()
			log.Info("removed expired snapshot", "snapshot", snap.Name)
		}
	}
	return nil
}
