package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AdamLovattDevOps/slow-wifi/internal/probe"
	"github.com/AdamLovattDevOps/slow-wifi/internal/sample"
)

// DefaultInterval is the wait between consecutive probes.
const DefaultInterval = 200 * time.Millisecond

// Summary is the machine-readable result of a monitoring session.
type Summary struct {
	Target          string   `json:"target"`
	DurationSeconds float64  `json:"duration_seconds"`
	TotalPackets    int      `json:"total_packets"`
	PacketLossPct   float64  `json:"packet_loss_pct"`
	AvgLatencyMs    float64  `json:"avg_latency_ms"`
	MaxLatencyMs    float64  `json:"max_latency_ms"`
	AvgJitterMs     float64  `json:"avg_jitter_ms"`
	StabilityScore  string   `json:"stability_score"`
	Diagnosis       []string `json:"diagnosis"`
}

// stats are the running aggregates of the probe loop. The loop is the
// single writer; the interim reporter reads under the mutex.
type stats struct {
	sent        int
	received    int
	rttSum      float64
	rttMax      float64
	jitterSum   float64
	jitterCount int
	spikes      int
	highJitter  int
}

// Monitor drives the prober in a fixed-interval loop until its context is
// cancelled, classifying every probe and accumulating running statistics.
type Monitor struct {
	target     string
	prober     probe.Prober
	classifier sample.Classifier
	interval   time.Duration

	// OnSample is invoked for every classified sample, in sequence order.
	// Used by the CLI for per-row display; may be nil.
	OnSample func(sample.Sample)

	mu      sync.Mutex
	stats   stats
	prevRTT *float64
}

func New(target string, prober probe.Prober, classifier sample.Classifier, interval time.Duration) *Monitor {
	if interval < 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		target:     target,
		prober:     prober,
		classifier: classifier,
		interval:   interval,
	}
}

// Run probes until ctx is cancelled, then synchronously computes the final
// summary. When zero probes were sent before cancellation, no summary is
// emitted and ok is false; this short-circuit is deliberate so an immediate
// interrupt never produces a summary built from division by zero.
func (m *Monitor) Run(ctx context.Context) (Summary, bool) {
	logrus.WithFields(logrus.Fields{
		"target":   m.target,
		"interval": m.interval,
	}).Info("monitor started")

	seq := 1
	for {
		select {
		case <-ctx.Done():
			return m.finish()
		default:
		}

		res := m.prober.Probe(ctx, m.target)
		now := time.Now()

		m.mu.Lock()
		s, prev := m.classifier.Classify(seq, now, res, m.prevRTT)
		m.prevRTT = prev
		m.record(s)
		m.mu.Unlock()

		if m.OnSample != nil {
			m.OnSample(s)
		}
		seq++

		select {
		case <-ctx.Done():
			return m.finish()
		case <-time.After(m.interval):
		}
	}
}

// record updates the aggregates for one sample. Callers hold m.mu.
func (m *Monitor) record(s sample.Sample) {
	m.stats.sent++
	if !s.Success {
		return
	}
	m.stats.received++
	m.stats.rttSum += s.RTTMs
	if s.RTTMs > m.stats.rttMax {
		m.stats.rttMax = s.RTTMs
	}
	// Jitter is defined only from the second success onward.
	if m.stats.received > 1 {
		m.stats.jitterSum += s.JitterMs
		m.stats.jitterCount++
	}
	switch s.Status {
	case sample.StatusLagSpike:
		m.stats.spikes++
	case sample.StatusHighJitter:
		m.stats.highJitter++
	}
}

func (m *Monitor) finish() (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats.sent == 0 {
		logrus.Info("monitor stopped before any probe was sent, no summary")
		return Summary{}, false
	}
	s := m.summaryLocked()
	logrus.WithFields(logrus.Fields{
		"packets":   s.TotalPackets,
		"loss_pct":  s.PacketLossPct,
		"stability": s.StabilityScore,
	}).Info("monitor stopped")
	return s, true
}

// Snapshot returns the summary built from the aggregates so far. ok is
// false when nothing has been sent yet.
func (m *Monitor) Snapshot() (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats.sent == 0 {
		return Summary{}, false
	}
	return m.summaryLocked(), true
}

func (m *Monitor) summaryLocked() Summary {
	st := m.stats
	lossPct := float64(st.sent-st.received) / float64(st.sent) * 100
	var avgRTT, avgJitter float64
	if st.received > 0 {
		avgRTT = st.rttSum / float64(st.received)
	}
	if st.jitterCount > 0 {
		avgJitter = st.jitterSum / float64(st.jitterCount)
	}

	score := "GOOD"
	if lossPct > 0 || avgJitter > 5 {
		score = "POOR"
	}

	diagnosis := []string{}
	if lossPct > 0 {
		diagnosis = append(diagnosis, "Packet Loss detected (Wi-Fi interference or hardware fault)")
	}
	if avgJitter > 4 {
		diagnosis = append(diagnosis, "High Jitter (Mouse floatiness imminent)")
	}
	if float64(st.spikes) > float64(st.sent)*0.05 {
		diagnosis = append(diagnosis, "Frequent Latency Spikes (Background process interruption)")
	}

	return Summary{
		Target:          m.target,
		DurationSeconds: round2(float64(st.sent) * m.interval.Seconds()),
		TotalPackets:    st.sent,
		PacketLossPct:   round2(lossPct),
		AvgLatencyMs:    round2(avgRTT),
		MaxLatencyMs:    round2(st.rttMax),
		AvgJitterMs:     round2(avgJitter),
		StabilityScore:  score,
		Diagnosis:       diagnosis,
	}
}

// SpikeCount reports the number of spike samples observed so far.
func (m *Monitor) SpikeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.spikes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
