package models

import "time"

// Run kinds.
const (
	KindMonitor  = "monitor"
	KindOptimize = "optimize"
)

// Run represents one archived diagnostic session.
type Run struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // monitor, optimize
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Summary holds the run's machine-readable output: the monitor
	// summary object or the full optimizer report, as JSON.
	Summary string `json:"summary"`
}

// Experiment represents one archived experiment row of an optimizer run.
type Experiment struct {
	ID              int64   `json:"id"`
	RunID           string  `json:"run_id"`
	Position        int     `json:"position"`
	SettingName     string  `json:"setting_name"`
	SettingValue    string  `json:"setting_value"`
	PacketsSent     int     `json:"packets_sent"`
	PacketsLost     int     `json:"packets_lost"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	MinLatencyMs    float64 `json:"min_latency_ms"`
	MaxLatencyMs    float64 `json:"max_latency_ms"`
	AvgJitterMs     float64 `json:"avg_jitter_ms"`
	SpikeCount      int     `json:"spike_count"`
	SpikePercentage float64 `json:"spike_percentage"`
}
