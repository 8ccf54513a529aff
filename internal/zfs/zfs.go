package zfs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/policy"
	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// Runner executes one zfs invocation and returns its stdout. Injected so
// tests run against canned output instead of a live pool.
type Runner func(ctx context.Context, args ...string) (string, error)

// CLI implements Store by shelling out to zfs(8).
type CLI struct {
	run Runner
	now func() time.Time
}

// NewCLI returns a Store backed by the zfs binary on PATH.
func NewCLI() *CLI {
	return &CLI{run: runZFS, now: time.Now}
}

// NewCLIWithRunner returns a Store using the given runner and clock.
func NewCLIWithRunner(run Runner, now func() time.Time) *CLI {
	return &CLI{run: run, now: now}
}

func runZFS(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "zfs", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("zfs %s: %w", args[0], err)
		}
		return "", fmt.Errorf("zfs %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}

// callRead runs a non-mutating zfs command in scripted (-H) mode and
// returns the tab-separated output rows.
func (c *CLI) callRead(ctx context.Context, verb string, args ...string) ([][]string, error) {
	out, err := c.run(ctx, append([]string{verb, "-H"}, args...)...)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows, nil
}

// Datasets lists every dataset carrying a policy, joined with its
// snapshots (newest first). Dataset order follows zfs get output.
func (c *CLI) Datasets(ctx context.Context) ([]Dataset, error) {
	configured, _, err := c.datasetPolicies(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := c.managedSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	datasets := make([]Dataset, 0, len(configured))
	for _, dp := range configured {
		snaps := snapshots[dp.name]
		snapshot.SortNewestFirst(snaps)
		datasets = append(datasets, Dataset{
			Name:      dp.name,
			Policy:    dp.policy,
			Snapshots: snaps,
		})
	}
	return datasets, nil
}

// Unconfigured lists datasets that do not carry a policy yet.
func (c *CLI) Unconfigured(ctx context.Context) ([]string, error) {
	_, unconfigured, err := c.datasetPolicies(ctx)
	return unconfigured, err
}

type datasetPolicy struct {
	name   string
	policy policy.Policy
}

func (c *CLI) datasetPolicies(ctx context.Context) ([]datasetPolicy, []string, error) {
	// zfs get -H -t filesystem,volume -o name,value zfs-autosnapd:policy
	rows, err := c.callRead(ctx, "get", "-t", "filesystem,volume", "-o", "name,value", Property)
	if err != nil {
		return nil, nil, fmt.Errorf("listing datasets: %w", err)
	}

	var configured []datasetPolicy
	var unconfigured []string
	for _, row := range rows {
		if len(row) != 2 {
			return nil, nil, fmt.Errorf("listing datasets: unexpected row %q", strings.Join(row, "\t"))
		}
		name, value := row[0], row[1]
		if value == "-" {
			unconfigured = append(unconfigured, name)
			continue
		}
		p, err := policy.ParsePolicy(value)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		configured = append(configured, datasetPolicy{name: name, policy: p})
	}
	return configured, unconfigured, nil
}

// managedSnapshots lists all snapshots that inherit or set our property,
// grouped by dataset. Snapshots whose property is explicitly "-" are
// opted out of management and skipped.
func (c *CLI) managedSnapshots(ctx context.Context) (map[string][]snapshot.Snapshot, error) {
	// zfs list -H -t snapshot -o name,creation,used,zfs-autosnapd:policy
	rows, err := c.callRead(ctx, "list", "-t", "snapshot", "-o", "name,creation,used,"+Property)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	snaps, err := parseSnapshotRows(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]snapshot.Snapshot)
	for _, s := range snaps {
		grouped[s.Dataset()] = append(grouped[s.Dataset()], s)
	}
	return grouped, nil
}

// Snapshot creates a snapshot named <dataset>@<rfc3339>-autosnap.
func (c *CLI) Snapshot(ctx context.Context, dataset string) (snapshot.Snapshot, error) {
	now := c.now().UTC().Truncate(time.Second)
	name := fmt.Sprintf("%s@%s-autosnap", dataset, now.Format(time.RFC3339))

	if _, err := c.run(ctx, "snapshot", name); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("creating snapshot %s: %w", name, err)
	}

	used, err := c.usedBytes(ctx, name)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Snapshot{Name: name, Created: now, Used: used}, nil
}

func (c *CLI) usedBytes(ctx context.Context, name string) (uint64, error) {
	rows, err := c.callRead(ctx, "get", "-o", "value", "used", name)
	if err != nil {
		return 0, fmt.Errorf("reading used space of %s: %w", name, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("reading used space of %s: empty zfs get output", name)
	}
	return parseUsed(rows[0][0])
}

// Destroy removes one snapshot. zfs destroy is a single broad verb that
// can take out whole datasets, so the name is checked to be structurally
// a snapshot before the call, independent of zfs's own validation.
func (c *CLI) Destroy(ctx context.Context, snap snapshot.Snapshot) error {
	if !strings.Contains(snap.Name, "@") {
		return fmt.Errorf("refusing to destroy %q: not a snapshot name", snap.Name)
	}
	if _, err := c.run(ctx, "destroy", snap.Name); err != nil {
		return fmt.Errorf("destroying snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// SetPolicy stores the policy in the dataset's user property.
func (c *CLI) SetPolicy(ctx context.Context, dataset string, p policy.Policy) error {
	if _, err := c.run(ctx, "set", Property+"="+p.String(), dataset); err != nil {
		return fmt.Errorf("setting policy on %s: %w", dataset, err)
	}
	return nil
}
