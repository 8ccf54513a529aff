package daemon

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// StartReport schedules a periodic status summary in the log, driven by
// the cron expression from daemon.reportSchedule. An empty schedule is a
// no-op. The job only reads from the store.
func (d *Daemon) StartReport(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() { d.logReport(ctx) })
	if err != nil {
		return fmt.Errorf("scheduling status report: %w", err)
	}
	c.Start()
	d.log.Info("status report scheduled", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (d *Daemon) logReport(ctx context.Context) {
	datasets, err := d.store.Datasets(ctx)
	if err != nil {
		d.log.Error("status report: listing datasets failed", "error", err)
		return
	}

	now := d.now()
	for _, ds := range datasets {
		attrs := []any{
			"dataset", ds.Name,
			"policy", ds.Policy.String(),
			"snapshots", len(ds.Snapshots),
			"pendingRemoval", len(ds.Policy.Judge(ds.Snapshots).Rejected),
		}
		if due, ok := ds.Policy.NextSnapshotDue(ds.Snapshots, now); ok {
			attrs = append(attrs, "nextSnapshotIn", due)
		} else {
			attrs = append(attrs, "nextSnapshotIn", "never")
		}
		d.log.Info("status report", attrs...)
	}
}
