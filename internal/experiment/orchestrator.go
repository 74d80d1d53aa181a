package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AdamLovattDevOps/slow-wifi/internal/probe"
	"github.com/AdamLovattDevOps/slow-wifi/internal/sample"
	"github.com/AdamLovattDevOps/slow-wifi/internal/settings"
	apperrors "github.com/AdamLovattDevOps/slow-wifi/pkg/errors"
)

// Experiment labels. The baseline label doubles as the reference row for
// the recommender, so it is shared with the report package.
const (
	BaselineLabel = "Baseline"
	CombinedLabel = "All Optimizations"
)

const (
	DefaultPings    = 200
	DefaultInterval = 200 * time.Millisecond
)

// Result summarizes one labeled batch of probes run under a specific host
// configuration. Immutable once assembled.
type Result struct {
	SettingName     string     `json:"setting_name"`
	SettingValue    string     `json:"setting_value"`
	PacketsSent     int        `json:"packets_sent"`
	PacketsLost     int        `json:"packets_lost"`
	AvgLatencyMs    float64    `json:"avg_latency_ms"`
	MaxLatencyMs    float64    `json:"max_latency_ms"`
	MinLatencyMs    float64    `json:"min_latency_ms"`
	AvgJitterMs     float64    `json:"avg_jitter_ms"`
	SpikeCount      int        `json:"spike_count"`
	SpikePercentage float64    `json:"spike_percentage"`
	RawRTTs         []*float64 `json:"raw_rtts"` // nil entries mark losses
}

// Received reports how many probes in the batch succeeded.
func (r Result) Received() int {
	return r.PacketsSent - r.PacketsLost
}

// Options tune a battery run.
type Options struct {
	// Pings is the batch size per experiment. Default 200.
	Pings int
	// Interval is the inter-probe sleep. Default 200ms.
	Interval time.Duration
	// Strict aborts the run when a mutation command fails instead of
	// proceeding with a possibly meaningless experiment.
	Strict bool
	// OnProgress is called every 50 probes within a batch; may be nil.
	OnProgress func(label string, done, total int)
	// OnResult is called as each experiment completes; may be nil.
	OnResult func(Result)
}

// Orchestrator sequences the fixed experiment battery: baseline, each
// guarded setting disabled on its own, then everything disabled together.
// Experiments run strictly sequentially; settings are global host state,
// so concurrent experiments would corrupt each other.
type Orchestrator struct {
	guard      *settings.Guard
	prober     probe.Prober
	classifier sample.Classifier
	opts       Options

	// sleep is injectable so tests don't wait out settle delays.
	sleep func(ctx context.Context, d time.Duration)
}

func NewOrchestrator(guard *settings.Guard, prober probe.Prober, classifier sample.Classifier, opts Options) *Orchestrator {
	if opts.Pings <= 0 {
		opts.Pings = DefaultPings
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Orchestrator{
		guard:      guard,
		prober:     prober,
		classifier: classifier,
		opts:       opts,
		sleep:      sleepCtx,
	}
}

// Run executes the battery against target and returns the ordered results.
//
// Privilege verification happens before any capture, so a run that cannot
// restore never mutates. RestoreAll is deferred on a fresh context and
// therefore executes on normal completion, on error and on cancellation:
// the host is never left perturbed.
func (o *Orchestrator) Run(ctx context.Context, target string) ([]Result, error) {
	if err := o.guard.VerifyPrivilege(ctx); err != nil {
		return nil, err
	}
	if err := o.guard.Capture(ctx); err != nil {
		return nil, fmt.Errorf("failed to capture original settings: %w", err)
	}
	defer func() {
		// Restoration must survive ctx cancellation.
		if err := o.guard.RestoreAll(context.Background()); err != nil {
			logrus.WithError(err).Error("restore after battery failed")
		}
	}()

	var results []Result

	baseline, err := o.runBatch(ctx, target, BaselineLabel, "current")
	if err != nil {
		return results, err
	}
	results = append(results, baseline)

	for _, name := range o.guard.Names() {
		if err := o.mutate(ctx, name, false); err != nil {
			return results, err
		}
		res, err := o.runBatch(ctx, target, name, "disabled")
		if err != nil {
			return results, err
		}
		results = append(results, res)
		// Incremental revert: back to enabled before the next experiment.
		if err := o.mutate(ctx, name, true); err != nil {
			return results, err
		}
	}

	for _, name := range o.guard.Names() {
		if err := o.mutate(ctx, name, false); err != nil {
			return results, err
		}
	}
	combined, err := o.runBatch(ctx, target, CombinedLabel, "enabled")
	if err != nil {
		return results, err
	}
	results = append(results, combined)

	return results, nil
}

// mutate applies one setting and waits out its settle delay. A failed
// mutation is surfaced as a warning and the run proceeds, unless Strict
// is set; silent proceeding risks attributing results to a setting that
// was never actually changed, so the warning is non-optional.
func (o *Orchestrator) mutate(ctx context.Context, name string, enabled bool) error {
	if err := o.guard.Apply(ctx, name, enabled); err != nil {
		if o.opts.Strict {
			return &apperrors.ExperimentError{Experiment: name, Err: err}
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"setting": name,
			"enabled": enabled,
		}).Warn("mutation failed, experiment may measure an unchanged host")
		return nil
	}
	if delay := o.guard.SettleDelay(name); delay > 0 {
		o.sleep(ctx, delay)
	}
	return nil
}

// runBatch sends the fixed-size probe batch and reduces it to a Result.
func (o *Orchestrator) runBatch(ctx context.Context, target, label, value string) (Result, error) {
	logrus.WithFields(logrus.Fields{"experiment": label, "value": value, "pings": o.opts.Pings}).Info("experiment started")

	samples := make([]sample.Sample, 0, o.opts.Pings)
	var prev *float64
	for i := 0; i < o.opts.Pings; i++ {
		select {
		case <-ctx.Done():
			return Result{}, &apperrors.ExperimentError{Experiment: label, Err: ctx.Err()}
		default:
		}

		res := o.prober.Probe(ctx, target)
		var s sample.Sample
		s, prev = o.classifier.Classify(i+1, time.Now(), res, prev)
		samples = append(samples, s)

		if o.opts.OnProgress != nil && (i+1)%50 == 0 {
			o.opts.OnProgress(label, i+1, o.opts.Pings)
		}
		if i+1 < o.opts.Pings {
			o.sleep(ctx, o.opts.Interval)
		}
	}

	result := reduce(label, value, samples, o.classifier.SpikeThresholdMs)
	logrus.WithFields(logrus.Fields{
		"experiment": label,
		"avg_ms":     result.AvgLatencyMs,
		"max_ms":     result.MaxLatencyMs,
		"jitter_ms":  result.AvgJitterMs,
		"spike_pct":  result.SpikePercentage,
	}).Info("experiment finished")

	if o.opts.OnResult != nil {
		o.opts.OnResult(result)
	}
	return result, nil
}

// reduce folds a batch of classified samples into one Result. Losses are
// kept as nil markers in the raw series and never contribute to latency
// or jitter statistics.
func reduce(label, value string, samples []sample.Sample, spikeThresholdMs float64) Result {
	result := Result{
		SettingName:  label,
		SettingValue: value,
		PacketsSent:  len(samples),
		RawRTTs:      make([]*float64, 0, len(samples)),
	}

	var sum, min, max float64
	var jitterSum float64
	var jitterCount, received int

	for _, s := range samples {
		if !s.Success {
			result.PacketsLost++
			result.RawRTTs = append(result.RawRTTs, nil)
			continue
		}
		rtt := s.RTTMs
		result.RawRTTs = append(result.RawRTTs, &rtt)

		received++
		sum += rtt
		if received == 1 || rtt < min {
			min = rtt
		}
		if rtt > max {
			max = rtt
		}
		if received > 1 {
			jitterSum += s.JitterMs
			jitterCount++
		}
		if rtt > spikeThresholdMs {
			result.SpikeCount++
		}
	}

	if received > 0 {
		result.AvgLatencyMs = round2(sum / float64(received))
		result.MinLatencyMs = round2(min)
		result.MaxLatencyMs = round2(max)
		result.SpikePercentage = round1(float64(result.SpikeCount) / float64(received) * 100)
	}
	if jitterCount > 0 {
		result.AvgJitterMs = round2(jitterSum / float64(jitterCount))
	}
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
