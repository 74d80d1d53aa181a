package monitor

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Reporter periodically emits interim snapshots of a running monitor so a
// long session shows progress before the final summary.
type Reporter struct {
	scheduler gocron.Scheduler
	monitor   *Monitor
	running   bool
}

// NewReporter creates a reporter for the given monitor.
func NewReporter(m *Monitor) (*Reporter, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Reporter{scheduler: scheduler, monitor: m}, nil
}

// Start begins emitting a snapshot every interval. emit may be nil, in
// which case snapshots are logged.
func (r *Reporter) Start(interval time.Duration, emit func(Summary)) error {
	if r.running {
		return fmt.Errorf("reporter is already running")
	}
	if interval <= 0 {
		return fmt.Errorf("reporter interval must be positive")
	}

	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			snap, ok := r.monitor.Snapshot()
			if !ok {
				return
			}
			if emit != nil {
				emit(snap)
				return
			}
			logrus.WithFields(logrus.Fields{
				"packets":  snap.TotalPackets,
				"loss_pct": snap.PacketLossPct,
				"avg_ms":   snap.AvgLatencyMs,
				"jitter":   snap.AvgJitterMs,
			}).Info("interim summary")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot job: %w", err)
	}

	r.scheduler.Start()
	r.running = true
	return nil
}

// Stop shuts the reporter down. Safe to call when not running.
func (r *Reporter) Stop() error {
	if !r.running {
		return nil
	}
	r.running = false
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop reporter: %w", err)
	}
	return nil
}
