package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AdamLovattDevOps/slow-wifi/internal/execx"
	"github.com/AdamLovattDevOps/slow-wifi/internal/monitor"
	"github.com/AdamLovattDevOps/slow-wifi/internal/report"
	"github.com/AdamLovattDevOps/slow-wifi/internal/storage"
	"github.com/AdamLovattDevOps/slow-wifi/internal/storage/models"
	"github.com/AdamLovattDevOps/slow-wifi/internal/storage/sqlite"
)

// App represents the application context
type App struct {
	Storage storage.Storage
	Runner  execx.Runner
	Config  *Config
}

// Config represents application configuration
type Config struct {
	DBPath    string
	ReportDir string
}

// New creates a new application instance
func New() (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".local", "share", "slow-wifi")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "slow-wifi.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &App{
		Storage: store,
		Runner:  execx.NewOSRunner(),
		Config: &Config{
			DBPath:    dbPath,
			ReportDir: dataDir,
		},
	}, nil
}

// Close closes the application and releases resources
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}

// ArchiveMonitorRun stores a finished monitor session in the run archive.
func (a *App) ArchiveMonitorRun(ctx context.Context, id string, sum monitor.Summary, startedAt, finishedAt time.Time) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	run := &models.Run{
		ID:         id,
		Kind:       models.KindMonitor,
		Target:     sum.Target,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Summary:    string(data),
	}
	return a.Storage.SaveRun(ctx, run, nil)
}

// NewReportArchiver returns an archiver that persists optimizer reports,
// with one experiment row per test in battery order.
func (a *App) NewReportArchiver(startedAt time.Time) report.Archiver {
	return &reportArchiver{store: a.Storage, startedAt: startedAt}
}

type reportArchiver struct {
	store     storage.Storage
	startedAt time.Time
}

func (r *reportArchiver) ArchiveReport(ctx context.Context, rep report.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	run := &models.Run{
		ID:         rep.RunID,
		Kind:       models.KindOptimize,
		Target:     rep.Target,
		StartedAt:  r.startedAt,
		FinishedAt: rep.GeneratedAt,
		Summary:    string(data),
	}

	experiments := make([]models.Experiment, 0, len(rep.Tests))
	for _, t := range rep.Tests {
		experiments = append(experiments, models.Experiment{
			SettingName:     t.SettingName,
			SettingValue:    t.SettingValue,
			PacketsSent:     t.PacketsSent,
			PacketsLost:     t.PacketsLost,
			AvgLatencyMs:    t.AvgLatencyMs,
			MinLatencyMs:    t.MinLatencyMs,
			MaxLatencyMs:    t.MaxLatencyMs,
			AvgJitterMs:     t.AvgJitterMs,
			SpikeCount:      t.SpikeCount,
			SpikePercentage: t.SpikePercentage,
		})
	}

	return r.store.SaveRun(ctx, run, experiments)
}
