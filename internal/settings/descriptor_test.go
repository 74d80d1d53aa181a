package settings

import "testing"

func TestParseSysctl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"net.inet.tcp.delayed_ack: 3", "3"},
		{"net.inet.tcp.doautorcvbuf: 1", "1"},
		{"  0  ", "0"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseSysctl(tt.raw); got != tt.want {
			t.Fatalf("ParseSysctl(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseAWDL(t *testing.T) {
	t.Parallel()

	up := "awdl0: flags=8943<UP,BROADCAST,SMART,RUNNING>\n\tstatus: active"
	if got := ParseAWDL(up); got != "on" {
		t.Fatalf("active interface = %q, want on", got)
	}
	down := "awdl0: flags=8902\n\tstatus: inactive"
	if got := ParseAWDL(down); got != "off" {
		t.Fatalf("inactive interface = %q, want off", got)
	}
	if got := ParseAWDL(""); got != "off" {
		t.Fatalf("missing interface = %q, want off", got)
	}
}

func TestParseBluetoothProfile(t *testing.T) {
	t.Parallel()

	on := "Bluetooth:\n  Bluetooth Controller:\n    State: On"
	if got := ParseBluetoothProfile(on); got != "on" {
		t.Fatalf("powered controller = %q, want on", got)
	}
	if got := ParseBluetoothProfile("State: Off"); got != "off" {
		t.Fatalf("powered-off controller = %q, want off", got)
	}
}

func TestRegistry_Shape(t *testing.T) {
	t.Parallel()

	reg := Registry()
	if len(reg) != 2 {
		t.Fatalf("registry has %d entries, want 2", len(reg))
	}
	for _, d := range reg {
		if d.Name == "" || len(d.ReadCmd) == 0 || d.Parse == nil || d.SetCmd == nil {
			t.Fatalf("descriptor %+v is incomplete", d.Name)
		}
		if d.EnableValue == d.DisableValue {
			t.Fatalf("descriptor %s: enable and disable values are equal", d.Name)
		}
		set := d.SetCmd(d.DisableValue)
		if len(set) == 0 || set[0] != "sudo" {
			t.Fatalf("descriptor %s: set command %v must go through sudo", d.Name, set)
		}
	}
}
