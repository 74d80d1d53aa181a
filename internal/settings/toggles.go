package settings

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/AdamLovattDevOps/slow-wifi/internal/execx"
)

// Toggle names used by the guard and the orchestrator.
const (
	ToggleAWDL      = "AWDL"
	ToggleBluetooth = "Bluetooth"
)

// Toggle is an interface-level on/off switch that doesn't fit the
// declarative Descriptor shape: its read and set paths are command
// sequences rather than a single parameter write.
type Toggle struct {
	Name string
	// SettleDelay is how long the interface needs after flipping before
	// measurements are meaningful again.
	SettleDelay time.Duration
	// Available reports whether the toggle can be mutated on this host.
	Available func(ctx context.Context, r execx.Runner) bool
	Read      func(ctx context.Context, r execx.Runner) string
	Set       func(ctx context.Context, r execx.Runner, on bool) error
}

// Toggles returns the two out-of-catalog switches, in experiment order.
func Toggles() []Toggle {
	return []Toggle{
		{
			Name:        ToggleAWDL,
			SettleDelay: time.Second,
			Available: func(context.Context, execx.Runner) bool {
				return true
			},
			Read: func(ctx context.Context, r execx.Runner) string {
				out, _ := r.Output(ctx, "ifconfig", "awdl0")
				return ParseAWDL(out)
			},
			Set: func(ctx context.Context, r execx.Runner, on bool) error {
				state := "down"
				if on {
					state = "up"
				}
				return r.Run(ctx, "sudo", "ifconfig", "awdl0", state)
			},
		},
		{
			Name:        ToggleBluetooth,
			SettleDelay: 2 * time.Second,
			Available: func(context.Context, execx.Runner) bool {
				return hasBlueutil()
			},
			Read: func(ctx context.Context, r execx.Runner) string {
				if out, err := r.Output(ctx, "blueutil", "--power"); err == nil {
					if strings.TrimSpace(out) == "1" {
						return "on"
					}
					return "off"
				}
				out, _ := r.Output(ctx, "system_profiler", "SPBluetoothDataType")
				return ParseBluetoothProfile(out)
			},
			Set: func(ctx context.Context, r execx.Runner, on bool) error {
				val := "0"
				if on {
					val = "1"
				}
				return r.Run(ctx, "blueutil", "--power", val)
			},
		},
	}
}

// ParseAWDL maps ifconfig output to "on"/"off" based on interface status.
func ParseAWDL(raw string) string {
	if strings.Contains(strings.ToLower(raw), "status: active") {
		return "on"
	}
	return "off"
}

// ParseBluetoothProfile maps system_profiler output to "on"/"off".
func ParseBluetoothProfile(raw string) string {
	if strings.Contains(raw, "State: On") {
		return "on"
	}
	return "off"
}

// hasBlueutil reports whether the blueutil helper is installed. Without it
// the Bluetooth state can still be read but not mutated.
var hasBlueutil = func() bool {
	_, err := exec.LookPath("blueutil")
	return err == nil
}
