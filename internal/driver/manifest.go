package driver

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-av/internal/command"
)

// Manifest limits.
const (
	maxNameLength = 100
	maxCommands   = 500
	maxQueueCap   = 1024
	idPattern     = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var idRegex = regexp.MustCompile(idPattern)

// Manifest is one device's driver description, loaded from YAML.
//
// Zero values for queue_mode, supports_local_timer, the durations and
// queue_capacity mean "use the device class default".
type Manifest struct {
	DeviceID     string        `yaml:"device_id"`
	Name         string        `yaml:"name"`
	Manufacturer string        `yaml:"manufacturer,omitempty"`
	Model        string        `yaml:"model,omitempty"`
	Transport    TransportSpec `yaml:"transport"`
	Capabilities []Capability  `yaml:"capabilities"`

	QueueMode          *bool         `yaml:"queue_mode,omitempty"`
	SupportsLocalTimer *bool         `yaml:"supports_local_timer,omitempty"`
	QueueCapacity      int           `yaml:"queue_capacity,omitempty"`
	Warmup             time.Duration `yaml:"warmup,omitempty"`
	Cooldown           time.Duration `yaml:"cooldown,omitempty"`
	PollInterval       time.Duration `yaml:"poll_interval,omitempty"`
	ResponseTimeout    time.Duration `yaml:"response_timeout,omitempty"`

	PowerStates PowerStates   `yaml:"power_states,omitempty"`
	Commands    []CommandSpec `yaml:"commands"`

	// Source is the file the manifest was loaded from.
	Source string `yaml:"-"`
}

// TransportSpec selects and configures a transport.
type TransportSpec struct {
	Kind     string            `yaml:"kind"`
	Settings map[string]string `yaml:"settings,omitempty"`
}

// PowerStates are substrings that identify power poll replies.
type PowerStates struct {
	On  string `yaml:"on,omitempty"`
	Off string `yaml:"off,omitempty"`
}

// CommandSpec is one command entry in a manifest.
type CommandSpec struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Group       command.Group `yaml:"group"`
	Priority    string        `yaml:"priority,omitempty"`
	Polling     bool          `yaml:"polling,omitempty"`
	Role        command.Role  `yaml:"role,omitempty"`
	Payload     string        `yaml:"payload,omitempty"`
	PayloadHex  string        `yaml:"payload_hex,omitempty"`
}

// payload returns the raw bytes for the command.
func (c CommandSpec) payload() ([]byte, error) {
	if c.PayloadHex == "" {
		if c.Payload == "" {
			return nil, nil
		}
		return []byte(c.Payload), nil
	}
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(c.PayloadHex)
	return hex.DecodeString(cleaned)
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	m.Source = path
	return m, nil
}

// ParseManifest decodes and validates a manifest. Unknown fields are
// rejected so typos do not silently fall back to defaults.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: parsing: %w", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestDir loads every *.yaml and *.yml file in dir, sorted by file
// name. Device ids must be unique across the directory.
func LoadManifestDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	manifests := make([]*Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := LoadManifest(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[m.DeviceID]; dup {
			return nil, fmt.Errorf("%w: %s in %s and %s",
				ErrDuplicateDevice, m.DeviceID, filepath.Base(prev), filepath.Base(p))
		}
		seen[m.DeviceID] = p
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Validate checks the manifest and returns every problem found.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidManifest}, args...)...))
	}

	if !idRegex.MatchString(m.DeviceID) {
		add("device_id %q must be lowercase letters, digits and hyphens", m.DeviceID)
	}
	if m.Name == "" {
		add("name is required")
	} else if len(m.Name) > maxNameLength {
		add("name exceeds %d characters", maxNameLength)
	}
	if m.Transport.Kind == "" {
		add("transport.kind is required")
	}
	if len(m.Capabilities) == 0 {
		add("at least one capability is required")
	}
	if m.QueueCapacity < 0 || m.QueueCapacity > maxQueueCap {
		add("queue_capacity must be between 0 and %d", maxQueueCap)
	}
	for field, d := range map[string]time.Duration{
		"warmup":           m.Warmup,
		"cooldown":         m.Cooldown,
		"poll_interval":    m.PollInterval,
		"response_timeout": m.ResponseTimeout,
	} {
		if d < 0 {
			add("%s must not be negative", field)
		}
	}

	if len(m.Commands) == 0 {
		add("at least one command is required")
	}
	if len(m.Commands) > maxCommands {
		add("more than %d commands", maxCommands)
	}
	for i, c := range m.Commands {
		if c.Payload != "" && c.PayloadHex != "" {
			add("command %d (%s): payload and payload_hex are exclusive", i, c.Name)
		}
		if _, err := c.payload(); err != nil {
			add("command %d (%s): payload_hex: %v", i, c.Name, err)
		}
		if c.Priority != "" {
			if _, err := command.ParsePriority(c.Priority); err != nil {
				add("command %d (%s): %v", i, c.Name, err)
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if _, err := m.Table(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return nil
}

// Table builds the immutable command table for the manifest. Commands with
// no priority default to normal.
func (m *Manifest) Table() (*command.Table, error) {
	entries := make([]command.Entry, 0, len(m.Commands))
	for _, c := range m.Commands {
		priority := command.PriorityNormal
		if c.Priority != "" {
			p, err := command.ParsePriority(c.Priority)
			if err != nil {
				return nil, err
			}
			priority = p
		}
		payload, err := c.payload()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		entries = append(entries, command.Entry{
			Descriptor: command.Descriptor{
				Name:        c.Name,
				Description: c.Description,
				Group:       c.Group,
				Priority:    priority,
				IsPolling:   c.Polling,
				Payload:     payload,
			},
			Role: c.Role,
		})
	}
	return command.NewTable(entries)
}

// HasCapability reports whether the manifest lists tag.
func (m *Manifest) HasCapability(tag Capability) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
