package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/config"
	"github.com/raoulx24/zfs-autosnapd/internal/policy"
	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

var testNow = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

// fakeStore implements zfs.Store in memory and records mutations.
type fakeStore struct {
	datasets  []zfs.Dataset
	listErr   error
	listCalls int

	snapped    []string
	destroyed  []string
	destroyErr error
}

func (f *fakeStore) Datasets(ctx context.Context) ([]zfs.Dataset, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.datasets, nil
}

func (f *fakeStore) Unconfigured(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) Snapshot(ctx context.Context, dataset string) (snapshot.Snapshot, error) {
	f.snapped = append(f.snapped, dataset)
	return snapshot.Snapshot{Name: dataset + "@fresh", Created: testNow}, nil
}

func (f *fakeStore) Destroy(ctx context.Context, snap snapshot.Snapshot) error {
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroyed = append(f.destroyed, snap.Name)
	return nil
}

func (f *fakeStore) SetPolicy(ctx context.Context, dataset string, p policy.Policy) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPolicy(t *testing.T, text string) policy.Policy {
	t.Helper()
	p, err := policy.ParsePolicy(text)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func aged(name string, age time.Duration) snapshot.Snapshot {
	return snapshot.Snapshot{Name: name, Created: testNow.Add(-age)}
}

func testDaemon(store zfs.Store) *Daemon {
	d := New(store, config.DaemonConfig{PollInterval: time.Millisecond}, discardLogger())
	d.now = func() time.Time { return testNow }
	d.retryBase = time.Millisecond
	return d
}

func TestCycleSnapshotsDueDatasetsAndPrunes(t *testing.T) {
	store := &fakeStore{
		datasets: []zfs.Dataset{
			{
				Name:   "tank/due",
				Policy: mustPolicy(t, "10m2"),
				// newest is 12m old, so the 10m tier is overdue; @b sits
				// inside @c's period slot and is redundant
				Snapshots: []snapshot.Snapshot{
					aged("tank/due@a", 12*time.Minute),
					aged("tank/due@b", 21*time.Minute),
					aged("tank/due@c", 30*time.Minute),
				},
			},
			{
				Name:   "tank/fresh",
				Policy: mustPolicy(t, "1h4"),
				Snapshots: []snapshot.Snapshot{
					aged("tank/fresh@a", 5*time.Minute),
				},
			},
		},
	}

	d := testDaemon(store)
	if err := d.cycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(store.snapped) != 1 || store.snapped[0] != "tank/due" {
		t.Errorf("snapshotted %v, want only tank/due", store.snapped)
	}
	if len(store.destroyed) != 1 || store.destroyed[0] != "tank/due@b" {
		t.Errorf("destroyed %v, want only tank/due@b", store.destroyed)
	}
}

func TestCycleSleepsNoLongerThanPollIntervalWhenNothingDue(t *testing.T) {
	store := &fakeStore{
		datasets: []zfs.Dataset{{
			Name:   "tank/empty",
			Policy: mustPolicy(t, "1h4"),
			// zero snapshots: no rule reports a deadline
		}},
	}

	d := testDaemon(store)

	done := make(chan error, 1)
	go func() { done <- d.cycle(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not fall back to the poll interval")
	}

	if len(store.snapped) != 0 {
		t.Errorf("dataset with no history was snapshotted proactively: %v", store.snapped)
	}
}

func TestCyclePropagatesDestroyFailure(t *testing.T) {
	store := &fakeStore{
		datasets: []zfs.Dataset{{
			Name:   "tank/due",
			Policy: mustPolicy(t, "10m1"),
			Snapshots: []snapshot.Snapshot{
				aged("tank/due@a", 5*time.Minute),
				aged("tank/due@b", 25*time.Minute),
			},
		}},
		destroyErr: errors.New("dataset is busy"),
	}

	d := testDaemon(store)
	err := d.cycle(context.Background())
	if err == nil {
		t.Fatal("destroy failure was swallowed")
	}
	if !errors.Is(err, store.destroyErr) {
		t.Errorf("error %v does not wrap the destroy failure", err)
	}
}

func TestFetchRetriesWithBackoff(t *testing.T) {
	store := &fakeStore{listErr: errors.New("zfs: pool busy")}
	d := testDaemon(store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := d.fetch(ctx)
	if err == nil {
		t.Fatal("fetch succeeded against a failing store")
	}
	if store.listCalls != fetchRetries {
		t.Errorf("listed %d times, want %d", store.listCalls, fetchRetries)
	}
	if !errors.Is(err, store.listErr) {
		t.Errorf("error %v does not wrap the listing failure", err)
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	store := &fakeStore{}
	d := testDaemon(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on cancellation, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestUpdateConfigInterruptsSleep(t *testing.T) {
	store := &fakeStore{
		datasets: []zfs.Dataset{{
			Name:      "tank/data",
			Policy:    mustPolicy(t, "1h4"),
			Snapshots: []snapshot.Snapshot{aged("tank/data@a", time.Minute)},
		}},
	}

	d := New(store, config.DaemonConfig{PollInterval: time.Hour}, discardLogger())
	d.now = func() time.Time { return testNow }

	done := make(chan error, 1)
	go func() { done <- d.cycle(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	d.UpdateConfig(config.DaemonConfig{PollInterval: time.Minute})

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not interrupt the sleep")
	}
}

func TestNextDueAcrossPicksGlobalMinimum(t *testing.T) {
	datasets := []zfs.Dataset{
		{
			Name:      "tank/a",
			Policy:    mustPolicy(t, "1h2"),
			Snapshots: []snapshot.Snapshot{aged("tank/a@x", 20*time.Minute)},
		},
		{
			Name:      "tank/b",
			Policy:    mustPolicy(t, "10m2"),
			Snapshots: []snapshot.Snapshot{aged("tank/b@x", 4*time.Minute)},
		},
	}

	due, ok := nextDueAcross(datasets, testNow)
	if !ok {
		t.Fatal("expected a global deadline")
	}
	if due != 6*time.Minute {
		t.Errorf("global next due = %v, want 6m", due)
	}
}
