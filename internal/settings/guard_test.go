package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/AdamLovattDevOps/slow-wifi/pkg/errors"
)

// fakeHost emulates the host commands the guard issues, tracking live
// sysctl values, the AWDL interface state and Bluetooth power.
type fakeHost struct {
	sysctl   map[string]string
	awdlUp   bool
	btOn     bool
	history  []string
	failures map[string]error // command prefix -> injected error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		sysctl: map[string]string{
			"net.inet.tcp.delayed_ack":  "3",
			"net.inet.tcp.doautorcvbuf": "1",
		},
		awdlUp:   true,
		btOn:     true,
		failures: make(map[string]error),
	}
}

func (f *fakeHost) Output(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.history = append(f.history, cmd)
	for prefix, err := range f.failures {
		if strings.HasPrefix(cmd, prefix) {
			return "", err
		}
	}

	switch {
	case cmd == "sudo -n true":
		return "", nil
	case name == "sysctl" && len(args) == 1:
		return fmt.Sprintf("%s: %s", args[0], f.sysctl[args[0]]), nil
	case strings.HasPrefix(cmd, "sudo sysctl -w "):
		kv := strings.SplitN(args[len(args)-1], "=", 2)
		f.sysctl[kv[0]] = kv[1]
		return "", nil
	case cmd == "ifconfig awdl0":
		if f.awdlUp {
			return "awdl0: flags=8943\n\tstatus: active", nil
		}
		return "awdl0: flags=8902\n\tstatus: inactive", nil
	case strings.HasPrefix(cmd, "sudo ifconfig awdl0 "):
		f.awdlUp = args[len(args)-1] == "up"
		return "", nil
	case cmd == "blueutil --power":
		if f.btOn {
			return "1", nil
		}
		return "0", nil
	case strings.HasPrefix(cmd, "blueutil --power "):
		f.btOn = args[len(args)-1] == "1"
		return "", nil
	}
	return "", fmt.Errorf("unexpected command: %s", cmd)
}

func (f *fakeHost) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

func newTestGuard(t *testing.T, host *fakeHost) *Guard {
	t.Helper()
	orig := hasBlueutil
	hasBlueutil = func() bool { return true }
	t.Cleanup(func() { hasBlueutil = orig })
	return NewGuard(host)
}

func TestCapture_RecordsEverySetting(t *testing.T) {
	host := newFakeHost()
	g := newTestGuard(t, host)
	ctx := context.Background()

	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}

	want := map[string]string{
		"TCP Delayed ACK":          "3",
		"TCP Send/Recv Autotuning": "1",
		"AWDL":                     "on",
		"Bluetooth":                "on",
	}
	got := g.Captured()
	if len(got) != len(want) {
		t.Fatalf("captured %d settings, want %d: %v", len(got), len(want), got)
	}
	for name, value := range want {
		if got[name] != value {
			t.Fatalf("captured[%q] = %q, want %q", name, got[name], value)
		}
	}
}

func TestCapture_Twice(t *testing.T) {
	g := newTestGuard(t, newFakeHost())
	ctx := context.Background()
	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := g.Capture(ctx); !errors.Is(err, apperrors.ErrAlreadyCaptured) {
		t.Fatalf("second capture = %v, want ErrAlreadyCaptured", err)
	}
}

func TestApply_RequiresPrivilege(t *testing.T) {
	g := newTestGuard(t, newFakeHost())
	err := g.Apply(context.Background(), "TCP Delayed ACK", false)
	if !errors.Is(err, apperrors.ErrPrivilegeRequired) {
		t.Fatalf("apply without verify = %v, want ErrPrivilegeRequired", err)
	}
}

func TestApply_RequiresCapture(t *testing.T) {
	g := newTestGuard(t, newFakeHost())
	ctx := context.Background()
	if err := g.VerifyPrivilege(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	err := g.Apply(ctx, "TCP Delayed ACK", false)
	if !errors.Is(err, apperrors.ErrNotCaptured) {
		t.Fatalf("apply before capture = %v, want ErrNotCaptured", err)
	}
}

func TestApply_UnknownSetting(t *testing.T) {
	g := newTestGuard(t, newFakeHost())
	ctx := context.Background()
	if err := g.VerifyPrivilege(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := g.Apply(ctx, "IPv9", false); !errors.Is(err, apperrors.ErrUnknownSetting) {
		t.Fatalf("apply unknown = %v, want ErrUnknownSetting", err)
	}
}

func TestVerifyPrivilege_Failure(t *testing.T) {
	host := newFakeHost()
	host.failures["sudo -n true"] = errors.New("sudo: a password is required")
	g := newTestGuard(t, host)

	err := g.VerifyPrivilege(context.Background())
	if !errors.Is(err, apperrors.ErrPrivilegeRequired) {
		t.Fatalf("verify = %v, want ErrPrivilegeRequired", err)
	}
}

func TestRestoreAll_RoundTrip(t *testing.T) {
	host := newFakeHost()
	g := newTestGuard(t, host)
	ctx := context.Background()

	if err := g.VerifyPrivilege(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	captured := g.Captured()

	// Perturb everything, as the all-disabled experiment does.
	for _, name := range g.Names() {
		if err := g.Apply(ctx, name, false); err != nil {
			t.Fatalf("apply %s: %v", name, err)
		}
	}
	if host.sysctl["net.inet.tcp.delayed_ack"] != "0" || host.awdlUp || host.btOn {
		t.Fatal("mutations did not reach the host")
	}

	if err := g.RestoreAll(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// The captured snapshot must equal the live values read back.
	for name, original := range captured {
		live, err := g.ReadCurrent(ctx, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if live != original {
			t.Fatalf("%s: live = %q, captured = %q", name, live, original)
		}
	}
}

func TestRestoreAll_Idempotent(t *testing.T) {
	host := newFakeHost()
	g := newTestGuard(t, host)
	ctx := context.Background()

	if err := g.VerifyPrivilege(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := g.Apply(ctx, "TCP Delayed ACK", false); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := g.RestoreAll(ctx); err != nil {
		t.Fatalf("first restore: %v", err)
	}
	stateAfterOnce := fmt.Sprintf("%v/%v/%v", host.sysctl, host.awdlUp, host.btOn)

	if err := g.RestoreAll(ctx); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	stateAfterTwice := fmt.Sprintf("%v/%v/%v", host.sysctl, host.awdlUp, host.btOn)

	if stateAfterOnce != stateAfterTwice {
		t.Fatalf("restore not idempotent: %s vs %s", stateAfterOnce, stateAfterTwice)
	}
}

func TestRestoreAll_BeforeCaptureIsNoop(t *testing.T) {
	host := newFakeHost()
	g := newTestGuard(t, host)
	if err := g.RestoreAll(context.Background()); err != nil {
		t.Fatalf("restore before capture = %v, want nil", err)
	}
	if len(host.history) != 0 {
		t.Fatalf("restore before capture issued commands: %v", host.history)
	}
}

func TestRestoreAll_ContinuesPastFailures(t *testing.T) {
	host := newFakeHost()
	g := newTestGuard(t, host)
	ctx := context.Background()

	if err := g.VerifyPrivilege(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := g.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
	for _, name := range g.Names() {
		if err := g.Apply(ctx, name, false); err != nil {
			t.Fatalf("apply %s: %v", name, err)
		}
	}

	// First sysctl restore fails; the rest must still be attempted.
	host.failures["sudo sysctl -w net.inet.tcp.delayed_ack"] = errors.New("boom")

	err := g.RestoreAll(ctx)
	if err == nil {
		t.Fatal("expected restore error")
	}
	if host.sysctl["net.inet.tcp.doautorcvbuf"] != "1" || !host.awdlUp || !host.btOn {
		t.Fatal("later restores skipped after an earlier failure")
	}
}
