package policy

import (
	"errors"
	"sort"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// Policy is the full retention configuration of one dataset: an unordered
// bag of rules, at least one. The zero Policy is invalid; construct
// through New or ParsePolicy.
type Policy struct {
	// sorted shortest period first; duplicates are legal and redundant
	rules []Rule
}

// New builds a policy from rules, validating each. A policy with no rules
// is a construction error, not a representable value.
func New(rules ...Rule) (Policy, error) {
	if len(rules) == 0 {
		return Policy{}, errors.New("a retention policy needs at least one rule")
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return Policy{}, err
		}
	}

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return Policy{rules: sorted}, nil
}

// Rules returns the rules, shortest period first.
func (p Policy) Rules() []Rule {
	rules := make([]Rule, len(p.rules))
	copy(rules, p.rules)
	return rules
}

// Retained pairs a kept snapshot with the rules that independently still
// want it. The retainer set is never empty.
type Retained struct {
	Snapshot  snapshot.Snapshot
	Retainers []Rule
}

// Judgement is the partition computed for one policy evaluation. Every
// input snapshot lands in exactly one of the two slices; both are sorted
// oldest first.
type Judgement struct {
	Rejected []snapshot.Snapshot
	Retained []Retained
}

// RetainedSnapshots returns just the kept snapshots, oldest first.
func (j Judgement) RetainedSnapshots() []snapshot.Snapshot {
	snaps := make([]snapshot.Snapshot, len(j.Retained))
	for i, r := range j.Retained {
		snaps[i] = r.Snapshot
	}
	return snaps
}

// Judge partitions snapshots into rejected and retained. A snapshot is
// retained iff at least one rule wants to keep it: rules are disjunctive,
// surviving any single tier is enough. Each rule's rejection set is
// computed independently, so the result does not depend on rule order.
//
// Bookkeeping is positional: snapshots are addressed by their index in
// the oldest-first ordering for the duration of the call, with a parallel
// rule-wants matrix, so no map keying over struct identity is needed.
func (p Policy) Judge(snaps []snapshot.Snapshot) Judgement {
	oldestFirst := sortedOldestFirst(snaps)

	wants := make([][]bool, len(p.rules))
	for ri, rule := range p.rules {
		rejects := rule.rejects(oldestFirst)
		wants[ri] = make([]bool, len(oldestFirst))
		for si := range oldestFirst {
			wants[ri][si] = !rejects[si]
		}
	}

	judgement := Judgement{}
	for si, snap := range oldestFirst {
		var retainers []Rule
		for ri, rule := range p.rules {
			if wants[ri][si] {
				retainers = append(retainers, rule)
			}
		}
		if len(retainers) == 0 {
			judgement.Rejected = append(judgement.Rejected, snap)
		} else {
			judgement.Retained = append(judgement.Retained, Retained{
				Snapshot:  snap,
				Retainers: retainers,
			})
		}
	}
	return judgement
}

// NextSnapshotDue returns the time until some tier's cadence requires a
// fresh snapshot: the minimum of the per-rule next-due values. False
// means no rule has a signal, which only happens for a dataset with zero
// snapshots.
func (p Policy) NextSnapshotDue(snaps []snapshot.Snapshot, now time.Time) (time.Duration, bool) {
	var min time.Duration
	found := false
	for _, rule := range p.rules {
		due, ok := rule.NextDue(snaps, now)
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
