// Package policy implements the retention judgement engine: given a set of
// (period, copies) rules and the snapshots of one dataset, decide which
// snapshots are still needed and how long until the next one is due.
//
// Everything in this package is a pure function over its inputs. No I/O,
// no clocks (callers pass now explicitly), no errors at judgement time.
package policy

import (
	"fmt"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// Rule is a single retention tier: keep Keep snapshots spaced at least
// Period apart. A valid rule has Period > 0 and Keep >= 1; Validate
// enforces that at construction, judgement assumes it.
type Rule struct {
	Period time.Duration
	Keep   int
}

// Validate reports whether the rule is well formed.
func (r Rule) Validate() error {
	if r.Period <= 0 {
		return fmt.Errorf("retention rule %v: period must be positive", r)
	}
	if r.Keep < 1 {
		return fmt.Errorf("retention rule %v: must keep at least one copy", r)
	}
	return nil
}

// Less orders rules by period, ascending.
func (r Rule) Less(other Rule) bool {
	return r.Period < other.Period
}

// boundedStart returns the index of the oldest snapshot this rule still
// considers relevant. Snapshots before it are excess history: sweeping
// greedily from that index, at most Keep period-spaced representatives
// remain.
//
// The sweep is nontrivial because gaps between snapshots can be much
// larger than Period (the daemon may have been offline). A gap never
// inflates the considered count, it just means fewer snapshots fall
// inside the window, so old history is not over-trimmed after downtime.
func (r Rule) boundedStart(oldestFirst []snapshot.Snapshot) int {
	for n := range oldestFirst {
		var watermark time.Time
		considered := 0
		for _, s := range oldestFirst[n:] {
			if !s.Created.Before(watermark) {
				watermark = s.Created.Add(r.Period)
				considered++
			}
		}
		if considered <= r.Keep {
			return n
		}
	}
	return 0
}

// rejects classifies the given snapshots (sorted oldest first) against
// this single rule in isolation. rejected[i] is true when the rule does
// not need snapshot i to satisfy its (period, copies) requirement.
//
// Phase 1 drops everything before boundedStart unconditionally. Phase 2
// sweeps the remainder with a watermark starting at the epoch: a snapshot
// at or past the watermark is kept and pushes the watermark one period
// past its creation time; a snapshot short of the watermark is redundant,
// another snapshot already covers its period slot.
func (r Rule) rejects(oldestFirst []snapshot.Snapshot) []bool {
	rejected := make([]bool, len(oldestFirst))
	for i := range rejected {
		rejected[i] = true
	}

	var watermark time.Time
	for i := r.boundedStart(oldestFirst); i < len(oldestFirst); i++ {
		if !oldestFirst[i].Created.Before(watermark) {
			watermark = oldestFirst[i].Created.Add(r.Period)
			rejected[i] = false
		}
	}
	return rejected
}

// NextDue returns how long until this rule wants a fresh snapshot: one
// period after the newest snapshot of the bounded working set, floored at
// zero. The second return is false when the rule has no signal, which
// only happens when there are no snapshots at all.
func (r Rule) NextDue(snaps []snapshot.Snapshot, now time.Time) (time.Duration, bool) {
	oldestFirst := sortedOldestFirst(snaps)
	bounded := oldestFirst[r.boundedStart(oldestFirst):]
	if len(bounded) == 0 {
		return 0, false
	}

	next := bounded[len(bounded)-1].Created.Add(r.Period)
	until := next.Sub(now)
	if until < 0 {
		until = 0
	}
	return until, true
}

func sortedOldestFirst(snaps []snapshot.Snapshot) []snapshot.Snapshot {
	sorted := make([]snapshot.Snapshot, len(snaps))
	copy(sorted, snaps)
	snapshot.SortOldestFirst(sorted)
	return sorted
}
