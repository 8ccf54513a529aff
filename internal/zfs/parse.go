package zfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/raoulx24/zfs-autosnapd/internal/snapshot"
)

// parseSnapshotRows turns zfs list output rows
// (name, creation, used, property) into snapshot metadata, dropping rows
// whose property is "-" (explicitly opted out or not under management).
func parseSnapshotRows(rows [][]string) ([]snapshot.Snapshot, error) {
	snaps := make([]snapshot.Snapshot, 0, len(rows))
	for _, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("list snapshots parse error: unexpected row %q", strings.Join(row, "\t"))
		}
		if row[3] == "-" {
			continue
		}

		created, err := parseCreation(row[1])
		if err != nil {
			return nil, err
		}
		used, err := parseUsed(row[2])
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snapshot.Snapshot{
			Name:    row[0],
			Created: created,
			Used:    used,
		})
	}
	return snaps, nil
}

// parseCreation accepts the zfs list human format ("Sat Oct  2 09:59 2021")
// and the -p epoch-seconds form.
func parseCreation(s string) (time.Time, error) {
	if t, err := time.Parse("Mon Jan _2 15:04 2006", s); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("can't parse creation time: %q", s)
}

// parseUsed reads zfs size shorthand. zfs prints e.g. 1.2M but means
// 1.2MiB, so binary suffixes are restored before parsing.
func parseUsed(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("can't parse used size: empty value")
	}
	switch s[len(s)-1] {
	case 'K', 'M', 'G', 'T', 'P', 'E', 'Z':
		s += "iB"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("can't parse used size %q: %w", s, err)
	}
	return n, nil
}
