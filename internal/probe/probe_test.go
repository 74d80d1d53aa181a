package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRunner struct {
	out  string
	err  error
	name string
	args []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

func TestParseRTT(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		wantRTT float64
		wantOK  bool
	}{
		{
			name:    "macos reply",
			output:  "64 bytes from 192.168.0.243: icmp_seq=0 ttl=64 time=14.627 ms",
			wantRTT: 14.627,
			wantOK:  true,
		},
		{
			name:    "linux reply",
			output:  "64 bytes from 192.168.0.1: icmp_seq=1 ttl=64 time=0.045 ms",
			wantRTT: 0.045,
			wantOK:  true,
		},
		{
			name:    "windows reply",
			output:  "Reply from 192.168.0.1: bytes=32 time=14ms TTL=64",
			wantRTT: 14,
			wantOK:  true,
		},
		{
			name:   "timeout",
			output: "Request timeout for icmp_seq 0",
			wantOK: false,
		},
		{
			name:   "empty output",
			output: "",
			wantOK: false,
		},
		{
			name:   "unreachable",
			output: "ping: cannot resolve no.such.host: Unknown host",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRTT(tt.output)
			if got.Success != tt.wantOK {
				t.Fatalf("Success = %v, want %v", got.Success, tt.wantOK)
			}
			if tt.wantOK && got.RTTMs != tt.wantRTT {
				t.Fatalf("RTTMs = %v, want %v", got.RTTMs, tt.wantRTT)
			}
		})
	}
}

func TestExecPinger_Probe(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{out: "64 bytes from 10.0.0.1: icmp_seq=0 ttl=64 time=3.21 ms"}
	p := NewExecPinger(runner, time.Second)

	res := p.Probe(context.Background(), "10.0.0.1")
	if !res.Success || res.RTTMs != 3.21 {
		t.Fatalf("got %+v, want success with 3.21ms", res)
	}
	if runner.name != "ping" {
		t.Fatalf("command = %q, want ping", runner.name)
	}
	if got := runner.args[len(runner.args)-1]; got != "10.0.0.1" {
		t.Fatalf("target arg = %q", got)
	}
}

func TestExecPinger_ProbeFailureIsLoss(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("exit status 2")}
	p := NewExecPinger(runner, time.Second)

	res := p.Probe(context.Background(), "definitely not an address")
	if res.Success {
		t.Fatal("malformed target must map to a loss, not a success")
	}
}

func TestExecPinger_ProbeLossWithOutput(t *testing.T) {
	t.Parallel()

	// ping exits non-zero on loss but still prints a summary; the prober
	// must report a plain loss, not propagate the error.
	runner := &fakeRunner{
		out: "1 packets transmitted, 0 packets received, 100.0% packet loss",
		err: errors.New("exit status 2"),
	}
	p := NewExecPinger(runner, time.Second)

	if res := p.Probe(context.Background(), "10.0.0.1"); res.Success {
		t.Fatalf("got %+v, want loss", res)
	}
}
