package report

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/AdamLovattDevOps/slow-wifi/internal/experiment"
)

func meta() Meta {
	return Meta{
		Target:            "192.168.0.243",
		PingsPerTest:      200,
		IntervalMs:        200,
		SpikeThresholdMs:  15,
		JitterThresholdMs: 5,
		OriginalSettings:  map[string]string{"TCP Delayed ACK": "3"},
	}
}

func TestBuild_RecommendsSpikeReduction(t *testing.T) {
	t.Parallel()

	results := []experiment.Result{
		{SettingName: experiment.BaselineLabel, SettingValue: "current", PacketsSent: 10, SpikePercentage: 30, AvgJitterMs: 10},
		{SettingName: "settingX", SettingValue: "disabled", PacketsSent: 10, SpikePercentage: 5, AvgJitterMs: 2},
	}
	rep := Build(results, meta())

	if len(rep.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v, want exactly one", rep.Recommendations)
	}
	rec := rep.Recommendations[0]
	if rec.Setting != "settingX" {
		t.Fatalf("setting = %q, want settingX", rec.Setting)
	}
	if rec.SpikeReduction != "25.0%" {
		t.Fatalf("spike reduction = %q, want 25.0%%", rec.SpikeReduction)
	}
	if rec.Action != "Set to disabled" {
		t.Fatalf("action = %q", rec.Action)
	}
	if rec.JitterChange != "8.00ms" {
		t.Fatalf("jitter change = %q, want 8.00ms", rec.JitterChange)
	}
}

func TestBuild_NoRecommendationBelowFloor(t *testing.T) {
	t.Parallel()

	results := []experiment.Result{
		{SettingName: experiment.BaselineLabel, PacketsSent: 10, SpikePercentage: 10},
		{SettingName: "settingX", PacketsSent: 10, SpikePercentage: 6},
	}
	rep := Build(results, meta())
	if len(rep.Recommendations) != 0 {
		t.Fatalf("recommendations = %+v, want none (improvement 4 <= 5)", rep.Recommendations)
	}
}

func TestAnalyze_ExcludesZeroSuccessExperiments(t *testing.T) {
	t.Parallel()

	results := []experiment.Result{
		{SettingName: experiment.BaselineLabel, PacketsSent: 10, AvgLatencyMs: 8, SpikePercentage: 10, AvgJitterMs: 3},
		// All probes lost: zeros across the board must not win "best".
		{SettingName: "Bluetooth", PacketsSent: 10, PacketsLost: 10},
		{SettingName: "AWDL", PacketsSent: 10, AvgLatencyMs: 6, SpikePercentage: 2, AvgJitterMs: 1},
	}
	rep := Build(results, meta())

	if rep.Analysis == nil {
		t.Fatal("expected analysis")
	}
	if rep.Analysis.BestAvgLatency.Setting != "AWDL" {
		t.Fatalf("best latency = %q, want AWDL", rep.Analysis.BestAvgLatency.Setting)
	}
	if rep.Analysis.BestSpikeRate.Setting != "AWDL" || rep.Analysis.BestJitter.Setting != "AWDL" {
		t.Fatalf("analysis = %+v", rep.Analysis)
	}
}

func TestAnalyze_TiesGoToFirstInOrder(t *testing.T) {
	t.Parallel()

	results := []experiment.Result{
		{SettingName: experiment.BaselineLabel, PacketsSent: 5, AvgLatencyMs: 5, SpikePercentage: 1, AvgJitterMs: 1},
		{SettingName: "settingX", PacketsSent: 5, AvgLatencyMs: 5, SpikePercentage: 1, AvgJitterMs: 1},
	}
	rep := Build(results, meta())
	if rep.Analysis.BestAvgLatency.Setting != experiment.BaselineLabel {
		t.Fatalf("tie broken wrongly: %+v", rep.Analysis.BestAvgLatency)
	}
}

func TestAnalyze_AllLost(t *testing.T) {
	t.Parallel()

	results := []experiment.Result{
		{SettingName: experiment.BaselineLabel, PacketsSent: 5, PacketsLost: 5},
	}
	rep := Build(results, meta())
	if rep.Analysis != nil {
		t.Fatalf("analysis = %+v, want nil when nothing succeeded", rep.Analysis)
	}
}

func TestWrite_Artifacts(t *testing.T) {
	t.Parallel()

	rtt := 7.5
	results := []experiment.Result{
		{
			SettingName:     experiment.BaselineLabel,
			SettingValue:    "current",
			PacketsSent:     2,
			AvgLatencyMs:    7.5,
			SpikePercentage: 0,
			RawRTTs:         []*float64{&rtt, nil},
		},
	}
	rep := Build(results, meta())

	dir := t.TempDir()
	summaryPath, rawPath, err := Write(context.Background(), rep, dir, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	// Summary artifact: required top-level fields present, raw series
	// summarized by count.
	var summary map[string]any
	mustUnmarshalFile(t, summaryPath, &summary)
	for _, field := range []string{"target", "pings_per_test", "spike_threshold_ms", "original_settings", "tests", "analysis", "recommendations"} {
		if _, ok := summary[field]; !ok {
			t.Fatalf("summary artifact missing %q", field)
		}
	}
	tests := summary["tests"].([]any)
	first := tests[0].(map[string]any)
	if first["raw_rtts"] != "[2 values]" {
		t.Fatalf("summary raw_rtts = %v, want count summary", first["raw_rtts"])
	}

	// Raw artifact keeps the full ordered series with loss markers.
	var full Report
	mustUnmarshalFile(t, rawPath, &full)
	if len(full.Tests) != 1 || len(full.Tests[0].RawRTTs) != 2 {
		t.Fatalf("raw artifact lost the series: %+v", full.Tests)
	}
	if full.Tests[0].RawRTTs[1] != nil {
		t.Fatal("loss marker dropped from raw artifact")
	}
}

type fakeArchiver struct {
	got *Report
}

func (f *fakeArchiver) ArchiveReport(_ context.Context, rep Report) error {
	f.got = &rep
	return nil
}

func TestWrite_Archives(t *testing.T) {
	t.Parallel()

	rep := Build([]experiment.Result{{SettingName: experiment.BaselineLabel, PacketsSent: 1}}, meta())
	arch := &fakeArchiver{}
	if _, _, err := Write(context.Background(), rep, t.TempDir(), arch); err != nil {
		t.Fatalf("write: %v", err)
	}
	if arch.got == nil || arch.got.RunID != rep.RunID {
		t.Fatal("report not archived")
	}
}

func mustUnmarshalFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
}
