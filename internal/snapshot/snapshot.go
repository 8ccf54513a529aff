// Package snapshot holds the metadata type for a single ZFS snapshot and
// the ordering helpers shared across the system.
package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Snapshot is one point-in-time copy of a dataset as reported by zfs list.
// It is immutable once listed; the daemon only ever classifies or destroys it.
type Snapshot struct {
	// Name is the full snapshot name, pool/dataset@label.
	Name string
	// Created is the creation time at second resolution, UTC.
	Created time.Time
	// Used is the space in bytes referenced exclusively by this snapshot.
	Used uint64
}

// Dataset returns the dataset portion of the snapshot name (before the '@').
// For a name without '@' it returns the whole name; callers listing through
// zfs never see that case.
func (s Snapshot) Dataset() string {
	name, _, _ := strings.Cut(s.Name, "@")
	return name
}

// Age returns how long ago the snapshot was created, floored at zero.
func (s Snapshot) Age(now time.Time) time.Duration {
	age := now.Sub(s.Created)
	if age < 0 {
		return 0
	}
	return age
}

// UsedString renders Used in binary units, matching how zfs itself
// reports sizes (13G means 13GiB).
func (s Snapshot) UsedString() string {
	return humanize.IBytes(s.Used)
}

// Before orders snapshots by creation time. Sorting is stable so equal
// timestamps keep their listing order instead of flapping.
func (s Snapshot) Before(other Snapshot) bool {
	return s.Created.Before(other.Created)
}

// SortOldestFirst stable-sorts snapshots ascending by creation time.
func SortOldestFirst(snaps []Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Before(snaps[j])
	})
}

// SortNewestFirst stable-sorts snapshots descending by creation time.
func SortNewestFirst(snaps []Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[j].Before(snaps[i])
	})
}
