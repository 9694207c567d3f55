package driver

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
)

const projectorYAML = `
device_id: lounge-projector
name: Lounge Projector
manufacturer: Epson
model: EH-LS12000B
transport:
  kind: mqtt
capabilities: [projector]
warmup: 45s
queue_capacity: 8
power_states:
  on: "POWR=1"
  off: "POWR=0"
commands:
  - name: power_on
    group: power
    priority: highest
    role: power_on
    payload: "%1POWR 1\r"
  - name: power_off
    group: power
    priority: highest
    role: power_off
    payload: "%1POWR 0\r"
  - name: power_query
    group: power
    priority: low
    polling: true
    payload: "%1POWR ?\r"
  - name: input_hdmi1
    group: input
    payload_hex: "25 31 49 4e 50 54 20 33 31 0d"
  - name: volume_up
    group: volume
`

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "projector.yaml", projectorYAML)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	if m.DeviceID != "lounge-projector" {
		t.Errorf("DeviceID = %q", m.DeviceID)
	}
	if m.Warmup != 45*time.Second {
		t.Errorf("Warmup = %v, want 45s", m.Warmup)
	}
	if m.Source != path {
		t.Errorf("Source = %q, want %q", m.Source, path)
	}

	table, err := m.Table()
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if table.Len() != 5 {
		t.Errorf("table has %d commands, want 5", table.Len())
	}

	input, err := table.Get("input_hdmi1")
	if err != nil {
		t.Fatalf("Get(input_hdmi1) error = %v", err)
	}
	if !bytes.Equal(input.Payload, []byte("%1INPT 31\r")) {
		t.Errorf("hex payload = %q", input.Payload)
	}

	vol, _ := table.Get("volume_up")
	if vol.Priority != command.PriorityNormal {
		t.Errorf("default priority = %v, want normal", vol.Priority)
	}

	power, _ := table.Get("power_on")
	if string(power.Payload) != "%1POWR 1\r" {
		t.Errorf("text payload = %q", power.Payload)
	}
	if table.Role("power_off") != command.RolePowerOff {
		t.Errorf("power_off role = %q", table.Role("power_off"))
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	if _, err := LoadManifest("/nonexistent/device.yaml"); err == nil {
		t.Error("LoadManifest() expected error for missing file")
	}
}

func TestParseManifest_UnknownField(t *testing.T) {
	_, err := ParseManifest([]byte(projectorYAML + "\nwarm_up: 10s\n"))
	if !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("ParseManifest() error = %v, want ErrInvalidManifest", err)
	}
}

func TestManifest_Validate(t *testing.T) {
	base := func() *Manifest {
		m, err := ParseManifest([]byte(projectorYAML))
		if err != nil {
			t.Fatalf("ParseManifest() error = %v", err)
		}
		return m
	}

	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr error
	}{
		{"valid", func(*Manifest) {}, nil},
		{"bad id", func(m *Manifest) { m.DeviceID = "Lounge Projector" }, ErrInvalidManifest},
		{"missing name", func(m *Manifest) { m.Name = "" }, ErrInvalidManifest},
		{"missing transport", func(m *Manifest) { m.Transport.Kind = "" }, ErrInvalidManifest},
		{"no capabilities", func(m *Manifest) { m.Capabilities = nil }, ErrInvalidManifest},
		{"negative warmup", func(m *Manifest) { m.Warmup = -time.Second }, ErrInvalidManifest},
		{"huge queue", func(m *Manifest) { m.QueueCapacity = maxQueueCap + 1 }, ErrInvalidManifest},
		{"no commands", func(m *Manifest) { m.Commands = nil }, ErrInvalidManifest},
		{"both payloads", func(m *Manifest) { m.Commands[0].PayloadHex = "00" }, ErrInvalidManifest},
		{"bad hex", func(m *Manifest) { m.Commands[4].PayloadHex = "zz" }, ErrInvalidManifest},
		{"bad priority", func(m *Manifest) { m.Commands[4].Priority = "urgent" }, ErrInvalidManifest},
		{"duplicate command", func(m *Manifest) { m.Commands[4].Name = "power_on" }, command.ErrDuplicateCommand},
		{"bad group", func(m *Manifest) { m.Commands[4].Group = "lasers" }, command.ErrInvalidCommand},
		{"role outside power", func(m *Manifest) { m.Commands[4].Role = command.RolePowerOn }, command.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadManifestDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "b-projector.yaml", projectorYAML)
	writeManifest(t, dir, "a-amp.yml", `
device_id: lounge-amp
name: Lounge Amp
transport: {kind: loopback}
capabilities: [receiver]
commands:
  - {name: power_on, group: power, role: power_on}
  - {name: mute, group: audio}
`)
	writeManifest(t, dir, "README.md", "not a manifest")
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755); err != nil {
		t.Fatal(err)
	}

	manifests, err := LoadManifestDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestDir() error = %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("loaded %d manifests, want 2", len(manifests))
	}
	if manifests[0].DeviceID != "lounge-amp" || manifests[1].DeviceID != "lounge-projector" {
		t.Errorf("order = %s, %s; want file name order", manifests[0].DeviceID, manifests[1].DeviceID)
	}
}

func TestLoadManifestDir_Duplicate(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "one.yaml", projectorYAML)
	writeManifest(t, dir, "two.yaml", projectorYAML)

	_, err := LoadManifestDir(dir)
	if !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("LoadManifestDir() error = %v, want ErrDuplicateDevice", err)
	}
}

func TestLoadManifestDir_Missing(t *testing.T) {
	if _, err := LoadManifestDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("LoadManifestDir() expected error for missing dir")
	}
}
