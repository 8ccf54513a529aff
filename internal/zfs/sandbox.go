package zfs

import (
	"context"
	"log/slog"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/policy"
	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// Sandbox wraps a Store so that reads pass through and every mutation is
// logged as the action that would have been taken, then suppressed. The
// decision logic upstream is unchanged; only execution differs.
type Sandbox struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewSandbox wraps store in dry-run mode.
func NewSandbox(store Store, log *slog.Logger) *Sandbox {
	return &Sandbox{
		store: store,
		log:   log.With("component", "sandbox"),
		now:   time.Now,
	}
}

func (s *Sandbox) Datasets(ctx context.Context) ([]Dataset, error) {
	return s.store.Datasets(ctx)
}

func (s *Sandbox) Unconfigured(ctx context.Context) ([]string, error) {
	return s.store.Unconfigured(ctx)
}

// Snapshot logs the snapshot that would be taken and fabricates its
// metadata so callers can keep reporting.
func (s *Sandbox) Snapshot(ctx context.Context, dataset string) (snapshot.Snapshot, error) {
	now := s.now().UTC().Truncate(time.Second)
	s.log.Info("would snapshot dataset", "dataset", dataset)
	return snapshot.Snapshot{
		Name:    dataset + "@" + now.Format(time.RFC3339) + "-autosnap",
		Created: now,
	}, nil
}

func (s *Sandbox) Destroy(ctx context.Context, snap snapshot.Snapshot) error {
	s.log.Info("would destroy snapshot", "snapshot", snap.Name)
	return nil
}

func (s *Sandbox) SetPolicy(ctx context.Context, dataset string, p policy.Policy) error {
	s.log.Info("would set retention policy", "dataset", dataset, "policy", p.String())
	return nil
}
