package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AdamLovattDevOps/slow-wifi/internal/experiment"
)

// spikeReductionFloor is the minimum baseline-relative spike-percentage
// improvement a non-baseline experiment must show to earn a recommendation.
const spikeReductionFloor = 5.0

// Best names the winning experiment for one metric.
type Best struct {
	Setting string  `json:"setting"`
	Value   float64 `json:"value"`
}

// Analysis identifies the best experiment per metric among those with at
// least one successful probe.
type Analysis struct {
	BestAvgLatency Best `json:"best_avg_latency"`
	BestSpikeRate  Best `json:"best_spike_rate"`
	BestJitter     Best `json:"best_jitter"`
}

// Recommendation suggests one host setting change and quantifies the gain.
type Recommendation struct {
	Setting        string `json:"setting"`
	Action         string `json:"action"`
	SpikeReduction string `json:"spike_reduction"`
	JitterChange   string `json:"jitter_change"`
}

// Meta carries the run parameters into the report.
type Meta struct {
	Target            string
	PingsPerTest      int
	IntervalMs        float64
	SpikeThresholdMs  float64
	JitterThresholdMs float64
	OriginalSettings  map[string]string
}

// Report is the immutable outcome of a full experiment battery. Built once
// from the accumulated result list and never mutated afterward.
type Report struct {
	RunID             string              `json:"run_id"`
	GeneratedAt       time.Time           `json:"test_date"`
	Target            string              `json:"target"`
	PingsPerTest      int                 `json:"pings_per_test"`
	IntervalMs        float64             `json:"ping_interval_ms"`
	SpikeThresholdMs  float64             `json:"spike_threshold_ms"`
	JitterThresholdMs float64             `json:"jitter_threshold_ms"`
	OriginalSettings  map[string]string   `json:"original_settings"`
	Tests             []experiment.Result `json:"tests"`
	Analysis          *Analysis           `json:"analysis,omitempty"`
	Recommendations   []Recommendation    `json:"recommendations"`
}

// Build reduces the ordered experiment results into a Report. Pure over
// its inputs: same results and meta, same report (modulo id/timestamp).
func Build(results []experiment.Result, meta Meta) Report {
	r := Report{
		RunID:             uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		Target:            meta.Target,
		PingsPerTest:      meta.PingsPerTest,
		IntervalMs:        meta.IntervalMs,
		SpikeThresholdMs:  meta.SpikeThresholdMs,
		JitterThresholdMs: meta.JitterThresholdMs,
		OriginalSettings:  meta.OriginalSettings,
		Tests:             results,
		Recommendations:   []Recommendation{},
	}

	r.Analysis = analyze(results)

	// Recommendations compare every non-baseline experiment against the
	// first result, which is always the baseline.
	if len(results) > 1 {
		baseline := results[0]
		for _, res := range results[1:] {
			improvement := baseline.SpikePercentage - res.SpikePercentage
			if improvement > spikeReductionFloor {
				r.Recommendations = append(r.Recommendations, Recommendation{
					Setting:        res.SettingName,
					Action:         fmt.Sprintf("Set to %s", res.SettingValue),
					SpikeReduction: fmt.Sprintf("%.1f%%", improvement),
					JitterChange:   fmt.Sprintf("%.2fms", baseline.AvgJitterMs-res.AvgJitterMs),
				})
			}
		}
	}
	return r
}

// analyze picks the best experiment per metric. Experiments with zero
// successful probes are excluded rather than scored as infinitely good;
// ties go to the earliest experiment in battery order.
func analyze(results []experiment.Result) *Analysis {
	var valid []experiment.Result
	for _, r := range results {
		if r.Received() > 0 {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	bestLatency, bestSpikes, bestJitter := valid[0], valid[0], valid[0]
	for _, r := range valid[1:] {
		if r.AvgLatencyMs < bestLatency.AvgLatencyMs {
			bestLatency = r
		}
		if r.SpikePercentage < bestSpikes.SpikePercentage {
			bestSpikes = r
		}
		if r.AvgJitterMs < bestJitter.AvgJitterMs {
			bestJitter = r
		}
	}
	return &Analysis{
		BestAvgLatency: Best{Setting: bestLatency.SettingName, Value: bestLatency.AvgLatencyMs},
		BestSpikeRate:  Best{Setting: bestSpikes.SettingName, Value: bestSpikes.SpikePercentage},
		BestJitter:     Best{Setting: bestJitter.SettingName, Value: bestJitter.AvgJitterMs},
	}
}
