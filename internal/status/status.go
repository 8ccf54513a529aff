// Package status renders the operator-facing report: which datasets are
// managed, when their next snapshot is due and which snapshots are about
// to be removed.
package status

import (
	"fmt"
	"io"
	"time"

	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

// terse mode wraps pending-removal snapshot names at this width.
const lineWidth = 80

// Write renders the report for the given datasets. Verbose adds
// per-snapshot detail; terse fits one line per dataset.
func Write(w io.Writer, datasets []zfs.Dataset, now time.Time, verbose bool) {
	if len(datasets) == 0 {
		fmt.Fprintln(w, "No datasets configured for auto snapshotting by this tool")
		return
	}

	fmt.Fprintln(w, "Configured datasets")
	if verbose {
		writeDatasetsVerbose(w, datasets, now)
		fmt.Fprintln(w)
	} else {
		writeDatasets(w, datasets, now)
	}

	fmt.Fprintln(w, "Snapshots to be removed")
	if verbose {
		writeRejectedVerbose(w, datasets)
	} else {
		writeRejected(w, datasets)
	}
}

func nextSnapshotIn(ds zfs.Dataset, now time.Time) string {
	due, ok := ds.Policy.NextSnapshotDue(ds.Snapshots, now)
	if !ok {
		return "never"
	}
	return due.Truncate(time.Second).String()
}

func writeDatasets(w io.Writer, datasets []zfs.Dataset, now time.Time) {
	nameWidth := len("Name")
	countWidth := len("#Snapshots")
	rulesWidth := len("Rules")
	for _, ds := range datasets {
		nameWidth = max(nameWidth, len(ds.Name))
		countWidth = max(countWidth, len(fmt.Sprint(len(ds.Snapshots))))
		rulesWidth = max(rulesWidth, len(ds.Policy.String()))
	}

	fmt.Fprintf(w, "  %-*s | %-*s | %-*s | Next snapshot\n",
		nameWidth, "Name", countWidth, "#Snapshots", rulesWidth, "Rules")
	for _, ds := range datasets {
		fmt.Fprintf(w, "  %-*s | %-*d | %-*s | %s\n",
			nameWidth, ds.Name,
			countWidth, len(ds.Snapshots),
			rulesWidth, ds.Policy.String(),
			nextSnapshotIn(ds, now))
	}
}

func writeDatasetsVerbose(w io.Writer, datasets []zfs.Dataset, now time.Time) {
	for _, ds := range datasets {
		fmt.Fprintf(w, "  %s\n", ds.Name)
		fmt.Fprintf(w, "    number of snapshots: %d\n", len(ds.Snapshots))
		fmt.Fprintf(w, "    next snapshot in: %s\n", nextSnapshotIn(ds, now))
		fmt.Fprintln(w, "    retention policy:")
		for _, rule := range ds.Policy.Rules() {
			fmt.Fprintf(w, "    - %s\n", rule.Describe())
		}
	}
}

func writeRejected(w io.Writer, datasets []zfs.Dataset) {
	for _, ds := range datasets {
		rejected := ds.Policy.Judge(ds.Snapshots).Rejected
		if len(rejected) == 0 {
			continue
		}

		line := fmt.Sprintf("  %s:", ds.Name)
		for _, snap := range rejected {
			if len(line)+1+len(snap.Name) > lineWidth {
				fmt.Fprintln(w, line)
				line = "   "
			}
			line += " " + snap.Name
		}
		fmt.Fprintln(w, line)
	}
}

func writeRejectedVerbose(w io.Writer, datasets []zfs.Dataset) {
	for _, ds := range datasets {
		rejected := ds.Policy.Judge(ds.Snapshots).Rejected
		if len(rejected) == 0 {
			continue
		}

		nameWidth := len("Name")
		createdWidth := len("Created")
		for _, snap := range rejected {
			nameWidth = max(nameWidth, len(snap.Name))
			createdWidth = max(createdWidth, len(snap.Created.Format(time.RFC3339)))
		}

		fmt.Fprintf(w, "  %s\n", ds.Name)
		fmt.Fprintf(w, "    %-*s | %-*s | %s\n", nameWidth, "Name", createdWidth, "Created", "Used")
		for _, snap := range rejected {
			fmt.Fprintf(w, "    %-*s | %-*s | %s\n",
				nameWidth, snap.Name,
				createdWidth, snap.Created.Format(time.RFC3339),
				snap.UsedString())
		}
	}
}
