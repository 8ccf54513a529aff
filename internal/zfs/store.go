// Package zfs talks to the zfs(8) command line tool: listing managed
// datasets and their snapshots, creating snapshots, destroying them and
// storing retention policies in a dataset user property.
package zfs

import (
	"context"

	"github.com/raoulx24/zfs-autosnapd/internal/policy"
	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// Property is the ZFS user property holding a dataset's retention policy.
// A value of "-" (or an absent property) means the dataset is not managed;
// on an individual snapshot it opts that snapshot out of pruning.
const Property = "zfs-autosnapd:policy"

// Dataset is one managed dataset: its retention policy and the snapshots
// currently on disk, newest first.
type Dataset struct {
	Name      string
	Policy    policy.Policy
	Snapshots []snapshot.Snapshot
}

// Store is the narrow contract the daemon and CLI consume. The CLI
// implementation shells out to zfs; Sandbox wraps any Store to suppress
// mutations.
type Store interface {
	// Datasets lists every dataset carrying a retention policy, each with
	// its snapshots sorted newest first.
	Datasets(ctx context.Context) ([]Dataset, error)
	// Unconfigured lists datasets without a retention policy, for setup.
	Unconfigured(ctx context.Context) ([]string, error)
	// Snapshot creates a snapshot of the dataset with an auto-generated
	// name and returns its metadata.
	Snapshot(ctx context.Context, dataset string) (snapshot.Snapshot, error)
	// Destroy removes a single snapshot. Implementations must refuse
	// names that are not structurally snapshot names.
	Destroy(ctx context.Context, snap snapshot.Snapshot) error
	// SetPolicy stores the policy in the dataset's user property.
	SetPolicy(ctx context.Context, dataset string, p policy.Policy) error
}
