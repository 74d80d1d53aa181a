package sample

import (
	"time"

	"github.com/AdamLovattDevOps/slow-wifi/internal/probe"
)

// Default classification thresholds, overridable per Classifier.
const (
	DefaultSpikeThresholdMs  = 15.0
	DefaultJitterThresholdMs = 5.0
)

// Status tags a classified sample.
type Status string

const (
	StatusOK         Status = "OK"
	StatusHighJitter Status = "HIGH JITTER"
	StatusLagSpike   Status = "LAG SPIKE"
	StatusPacketLoss Status = "PACKET LOSS"
)

// Sample is one classified probe measurement. Immutable once produced.
type Sample struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	RTTMs     float64   `json:"rtt_ms"`
	Success   bool      `json:"success"`
	JitterMs  float64   `json:"jitter_ms"`
	Status    Status    `json:"status"`
}

// Classifier assigns a status to each probe outcome. Classification is a
// pure function of the outcome and the previous successful RTT.
type Classifier struct {
	SpikeThresholdMs  float64
	JitterThresholdMs float64
}

func NewClassifier(spikeMs, jitterMs float64) Classifier {
	if spikeMs <= 0 {
		spikeMs = DefaultSpikeThresholdMs
	}
	if jitterMs <= 0 {
		jitterMs = DefaultJitterThresholdMs
	}
	return Classifier{SpikeThresholdMs: spikeMs, JitterThresholdMs: jitterMs}
}

// Classify builds a Sample from a probe result and the previous successful
// RTT (nil when no success has been observed yet). It returns the sample
// and the previous-RTT value the caller should carry into the next call.
//
// A loss does not reset jitter continuity: the first success after a loss
// computes its jitter against the last success before the loss.
func (c Classifier) Classify(seq int, ts time.Time, res probe.Result, prevRTT *float64) (Sample, *float64) {
	if !res.Success {
		return Sample{
			Seq:       seq,
			Timestamp: ts,
			Success:   false,
			Status:    StatusPacketLoss,
		}, prevRTT
	}

	s := Sample{
		Seq:       seq,
		Timestamp: ts,
		RTTMs:     res.RTTMs,
		Success:   true,
	}
	if prevRTT != nil {
		s.JitterMs = abs(res.RTTMs - *prevRTT)
	}

	switch {
	case res.RTTMs > c.SpikeThresholdMs:
		s.Status = StatusLagSpike
	case prevRTT != nil && s.JitterMs > c.JitterThresholdMs:
		s.Status = StatusHighJitter
	default:
		s.Status = StatusOK
	}

	rtt := res.RTTMs
	return s, &rtt
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
