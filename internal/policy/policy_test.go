package policy

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// A fixed reference instant keeps every test deterministic.
var now = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

// aged builds a snapshot created the given duration before now, named
// after its age so failures read well.
func aged(age time.Duration) snapshot.Snapshot {
	return snapshot.Snapshot{
		Name:    fmt.Sprintf("tank/data@%s", age),
		Created: now.Add(-age),
	}
}

func names(snaps []snapshot.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Name
	}
	return out
}

func mustParse(t *testing.T, text string) Policy {
	t.Helper()
	p, err := ParsePolicy(text)
	if err != nil {
		t.Fatalf("ParsePolicy(%q): %v", text, err)
	}
	return p
}

func TestNextDueOptimalInterval(t *testing.T) {
	p := mustParse(t, "10m2")
	snaps := []snapshot.Snapshot{aged(5 * time.Minute), aged(15 * time.Minute)}

	due, ok := p.NextSnapshotDue(snaps, now)
	if !ok {
		t.Fatal("expected a next-due signal")
	}
	if due != 5*time.Minute {
		t.Errorf("next due = %v, want 5m", due)
	}
}

func TestJudgeKeepsUntilCopiesTimesPeriod(t *testing.T) {
	p := mustParse(t, "10m2")
	snaps := []snapshot.Snapshot{
		aged(8 * time.Minute),
		aged(19 * time.Minute),
		aged(30 * time.Minute),
	}

	j := p.Judge(snaps)
	if got, want := names(j.Rejected), []string{aged(30 * time.Minute).Name}; !reflect.DeepEqual(got, want) {
		t.Errorf("rejected = %v, want %v", got, want)
	}
	if len(j.Retained) != 2 {
		t.Errorf("retained %d snapshots, want 2", len(j.Retained))
	}
}

func TestJudgeNeverKeepsMoreThanCopies(t *testing.T) {
	p := mustParse(t, "50s2")
	snaps := []snapshot.Snapshot{
		aged(40 * time.Second),
		aged(80 * time.Second),
		aged(120 * time.Second),
		aged(9 * time.Minute),
		aged(18 * time.Minute),
		aged(29 * time.Minute),
	}

	j := p.Judge(snaps)
	if len(j.Rejected) != 4 {
		t.Errorf("rejected %d snapshots (%v), want 4", len(j.Rejected), names(j.Rejected))
	}
}

func TestRetainedShortTierDoesNotCountTowardLongTier(t *testing.T) {
	p := mustParse(t, "50s2:10m2")
	snaps := []snapshot.Snapshot{
		aged(38 * time.Second),
		aged(79 * time.Second),
		aged(120 * time.Second),
		aged(7 * time.Minute),
		aged(18 * time.Minute),
		aged(29 * time.Minute),
	}

	rejected := names(p.Judge(snaps).Rejected)
	for _, want := range []string{aged(29 * time.Minute).Name, aged(79 * time.Second).Name} {
		found := false
		for _, got := range rejected {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("rejected = %v, missing %s", rejected, want)
		}
	}
}

func TestJudgeRecoversAfterOfflineGap(t *testing.T) {
	p := mustParse(t, "40s99:100s99")
	// a restart gap sits between 123s and 284s
	snaps := []snapshot.Snapshot{
		aged(20 * time.Second),
		aged(41 * time.Second),
		aged(82 * time.Second),
		aged(123 * time.Second),
		aged(284 * time.Second),
		aged(305 * time.Second),
		aged(346 * time.Second),
		aged(388 * time.Second),
	}

	j := p.Judge(snaps)
	if len(j.Rejected) != 0 {
		t.Errorf("rejected = %v, want none: no snapshot may be penalized for the gap", names(j.Rejected))
	}
}

func TestJudgePartitionIsTotalAndDisjoint(t *testing.T) {
	p := mustParse(t, "50s2:10m2:1h3")
	snaps := []snapshot.Snapshot{
		aged(10 * time.Second),
		aged(70 * time.Second),
		aged(3 * time.Minute),
		aged(12 * time.Minute),
		aged(45 * time.Minute),
		aged(2 * time.Hour),
		aged(26 * time.Hour),
	}

	j := p.Judge(snaps)
	if got := len(j.Rejected) + len(j.Retained); got != len(snaps) {
		t.Fatalf("partition covers %d snapshots, input has %d", got, len(snaps))
	}

	seen := map[string]bool{}
	for _, s := range j.Rejected {
		seen[s.Name] = true
	}
	for _, r := range j.Retained {
		if seen[r.Snapshot.Name] {
			t.Errorf("%s is both retained and rejected", r.Snapshot.Name)
		}
		seen[r.Snapshot.Name] = true
		if len(r.Retainers) == 0 {
			t.Errorf("%s retained with an empty retainer set", r.Snapshot.Name)
		}
	}
	for _, s := range snaps {
		if !seen[s.Name] {
			t.Errorf("%s missing from the partition", s.Name)
		}
	}
}

func TestJudgeIsRuleOrderInvariant(t *testing.T) {
	snaps := []snapshot.Snapshot{
		aged(30 * time.Second),
		aged(90 * time.Second),
		aged(5 * time.Minute),
		aged(25 * time.Minute),
		aged(3 * time.Hour),
	}

	short := Rule{Period: 50 * time.Second, Keep: 2}
	long := Rule{Period: 10 * time.Minute, Keep: 2}

	forward, err := New(short, long)
	if err != nil {
		t.Fatal(err)
	}
	backward, err := New(long, short)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(forward.Judge(snaps), backward.Judge(snaps)) {
		t.Error("judgement depends on rule declaration order")
	}
}

func TestJudgeIsIdempotent(t *testing.T) {
	p := mustParse(t, "15m8:1h48:1d14:1w20")
	snaps := []snapshot.Snapshot{
		aged(10 * time.Minute),
		aged(36 * time.Minute),
		aged(52 * time.Minute),
		aged(24 * time.Hour),
		aged(48 * time.Hour),
		aged(72 * time.Hour),
	}

	first := p.Judge(snaps)
	second := p.Judge(snaps)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated judgement of identical inputs differs")
	}
}

func TestJudgeEmptySnapshotList(t *testing.T) {
	p := mustParse(t, "1h24")

	j := p.Judge(nil)
	if len(j.Rejected) != 0 || len(j.Retained) != 0 {
		t.Errorf("judging no snapshots produced a non-empty partition: %+v", j)
	}
	if _, ok := p.NextSnapshotDue(nil, now); ok {
		t.Error("a dataset with no snapshots must not report a next-due time")
	}
}

func TestJudgeToleratesEqualCreationTimes(t *testing.T) {
	p := mustParse(t, "10m2")
	twin := aged(5 * time.Minute)
	twin.Name = "tank/data@twin"
	snaps := []snapshot.Snapshot{aged(5 * time.Minute), twin, aged(15 * time.Minute)}

	j := p.Judge(snaps)
	if got := len(j.Rejected) + len(j.Retained); got != len(snaps) {
		t.Errorf("partition covers %d snapshots, input has %d", got, len(snaps))
	}
}

func TestBoundedStartCapsWorkingSet(t *testing.T) {
	rule := Rule{Period: time.Minute, Keep: 3}

	var snaps []snapshot.Snapshot
	for i := 1; i <= 10; i++ {
		snaps = append(snaps, aged(time.Duration(i)*time.Minute))
	}
	snapshot.SortOldestFirst(snaps)

	start := rule.boundedStart(snaps)
	bounded := snaps[start:]

	watermark := time.Time{}
	considered := 0
	for _, s := range bounded {
		if !s.Created.Before(watermark) {
			watermark = s.Created.Add(rule.Period)
			considered++
		}
	}
	if considered > rule.Keep {
		t.Errorf("bounded set still yields %d period-spaced snapshots, keep is %d", considered, rule.Keep)
	}
}

func TestNextDueFloorsAtZero(t *testing.T) {
	rule := Rule{Period: time.Minute, Keep: 5}
	snaps := []snapshot.Snapshot{aged(30 * time.Minute)}

	due, ok := rule.NextDue(snaps, now)
	if !ok {
		t.Fatal("expected a next-due signal")
	}
	if due != 0 {
		t.Errorf("overdue rule reported %v, want 0", due)
	}
}

func TestNewRejectsInvalidPolicies(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("empty policy accepted")
	}
	if _, err := New(Rule{Period: 0, Keep: 2}); err == nil {
		t.Error("zero period accepted")
	}
	if _, err := New(Rule{Period: time.Hour, Keep: 0}); err == nil {
		t.Error("zero copies accepted")
	}
}
