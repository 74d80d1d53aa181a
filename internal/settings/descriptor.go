package settings

import (
	"strings"
)

// Descriptor declares one perturbable host network setting as a capability
// table: how to read it, how to parse the raw read output, and how to set
// an arbitrary value. Enable/disable are expressed as values fed to SetCmd
// so restoration can reuse the same path with the captured original.
type Descriptor struct {
	Name         string
	ReadCmd      []string
	Parse        func(raw string) string
	SetCmd       func(value string) []string
	EnableValue  string
	DisableValue string
	RequiresSudo bool
}

// Registry is the static, ordered catalog of declarative settings.
// Order is experiment order; it never changes at runtime.
func Registry() []Descriptor {
	return []Descriptor{
		{
			Name:    "TCP Delayed ACK",
			ReadCmd: []string{"sysctl", "net.inet.tcp.delayed_ack"},
			Parse:   ParseSysctl,
			SetCmd: func(value string) []string {
				return []string{"sudo", "sysctl", "-w", "net.inet.tcp.delayed_ack=" + value}
			},
			EnableValue:  "3",
			DisableValue: "0",
			RequiresSudo: true,
		},
		{
			Name:    "TCP Send/Recv Autotuning",
			ReadCmd: []string{"sysctl", "net.inet.tcp.doautorcvbuf"},
			Parse:   ParseSysctl,
			SetCmd: func(value string) []string {
				return []string{"sudo", "sysctl", "-w", "net.inet.tcp.doautorcvbuf=" + value}
			},
			EnableValue:  "1",
			DisableValue: "0",
			RequiresSudo: true,
		},
	}
}

// ParseSysctl extracts the value from output like
// "net.inet.tcp.delayed_ack: 3".
func ParseSysctl(raw string) string {
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		return strings.TrimSpace(raw[i+1:])
	}
	return strings.TrimSpace(raw)
}
