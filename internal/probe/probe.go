package probe

import (
	"context"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/AdamLovattDevOps/slow-wifi/internal/execx"
)

// Result is the outcome of a single echo probe.
type Result struct {
	RTTMs   float64
	Success bool
}

// Prober issues one echo probe per call. Implementations must not return
// a Go error for a lost or timed-out probe; loss is a Result, not a failure.
type Prober interface {
	Probe(ctx context.Context, target string) Result
}

// rttPattern matches the round-trip time field of ping output on
// macOS ("time=14.6 ms"), Linux ("time=0.045 ms") and Windows ("time=14ms").
var rttPattern = regexp.MustCompile(`time[=<]([0-9.]+)`)

// ExecPinger probes by spawning the platform ping utility and parsing
// its output. One external process per probe; callers control the rate.
type ExecPinger struct {
	runner  execx.Runner
	timeout time.Duration
	goos    string
}

func NewExecPinger(runner execx.Runner, timeout time.Duration) *ExecPinger {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ExecPinger{runner: runner, timeout: timeout, goos: runtime.GOOS}
}

// Probe sends a single echo request. A malformed target, a timeout and an
// unreachable host all map to an unsuccessful Result so a measurement loop
// can keep going after a bad probe.
func (p *ExecPinger) Probe(ctx context.Context, target string) Result {
	name, args := p.command(target)

	// Bound the spawned process independently of ping's own timeout flag.
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout+2*time.Second)
	defer cancel()

	out, err := p.runner.Output(probeCtx, name, args...)
	if err != nil && out == "" {
		return Result{}
	}
	return ParseRTT(out)
}

// command builds the single-shot ping invocation for the current platform.
func (p *ExecPinger) command(target string) (string, []string) {
	timeoutMs := strconv.Itoa(int(p.timeout.Milliseconds()))
	switch p.goos {
	case "windows":
		return "ping", []string{"-n", "1", "-w", timeoutMs, target}
	default:
		return "ping", []string{"-c", "1", "-W", timeoutMs, target}
	}
}

// ParseRTT extracts the round-trip time from raw ping output. Output
// without a parseable time field is reported as a loss.
func ParseRTT(output string) Result {
	m := rttPattern.FindStringSubmatch(output)
	if m == nil {
		return Result{}
	}
	rtt, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Result{}
	}
	return Result{RTTMs: rtt, Success: true}
}
