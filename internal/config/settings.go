package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the user-editable settings file.
type Settings struct {
	Notifications map[string]bool  `yaml:"notifications,omitempty"`
	Providers     []ProviderConfig `yaml:"providers"`
	Thresholds    Thresholds       `yaml:"thresholds"`
}

// Thresholds drive alerting and status colours.
type Thresholds struct {
	Warning  int           `yaml:"warning"`
	Critical int           `yaml:"critical"`
	Pacing   time.Duration `yaml:"pacing"`
}

// ProviderConfig describes one polled usage endpoint. The response body is
// treated as opaque JSON; each limit names the paths that locate its values.
type ProviderConfig struct {
	Headers  map[string]string `yaml:"headers,omitempty"`
	Auth     AuthConfig        `yaml:"auth,omitempty"`
	Name     string            `yaml:"name"`
	Key      string            `yaml:"key"`
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method,omitempty"`
	Limits   []LimitConfig     `yaml:"limits"`
	Timeout  time.Duration     `yaml:"timeout,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty"`
}

// AuthConfig names the environment variable holding a provider secret.
// Type is "cookie" or "bearer".
type AuthConfig struct {
	Type string `yaml:"type,omitempty"`
	Env  string `yaml:"env,omitempty"`
}

// LimitConfig locates one limit inside a provider response. Either PctPath or
// UsedPath together with LimitPath must be set.
type LimitConfig struct {
	Label     string `yaml:"label"`
	PctPath   string `yaml:"pct_path,omitempty"`
	UsedPath  string `yaml:"used_path,omitempty"`
	LimitPath string `yaml:"limit_path,omitempty"`
	ResetPath string `yaml:"reset_path,omitempty"`
}

// Alert kinds used as suffixes of notification toggles.
const (
	NotifyWarning = "warning"
	NotifyReset   = "reset"
	NotifyPacing  = "pacing"
)

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Notifications: map[string]bool{},
		Thresholds: Thresholds{
			Warning:  80,
			Critical: 95,
			Pacing:   30 * time.Minute,
		},
	}
}

// NotificationEnabled reports whether the toggle <provider>_<kind> is on.
// Unknown toggles default to on.
func (s *Settings) NotificationEnabled(provider, kind string) bool {
	if on, ok := s.Notifications[provider+"_"+kind]; ok {
		return on
	}
	return true
}

// Provider returns the provider with the given key.
func (s *Settings) Provider(key string) (ProviderConfig, bool) {
	for _, p := range s.Providers {
		if p.Key == key {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Validate checks provider definitions.
func (s *Settings) Validate() error {
	seen := make(map[string]bool)
	for i, p := range s.Providers {
		if p.Key == "" || p.URL == "" {
			return fmt.Errorf("provider %d: key and url are required", i)
		}
		if seen[p.Key] {
			return fmt.Errorf("provider %q: duplicate key", p.Key)
		}
		seen[p.Key] = true
		for _, l := range p.Limits {
			if l.PctPath == "" && (l.UsedPath == "" || l.LimitPath == "") {
				return fmt.Errorf("provider %q limit %q: pct_path or used_path+limit_path required", p.Key, l.Label)
			}
		}
	}
	return nil
}

func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if s.Notifications == nil {
		s.Notifications = def.Notifications
	}
	if s.Thresholds.Warning <= 0 {
		s.Thresholds.Warning = def.Thresholds.Warning
	}
	if s.Thresholds.Critical <= 0 {
		s.Thresholds.Critical = def.Thresholds.Critical
	}
	if s.Thresholds.Pacing <= 0 {
		s.Thresholds.Pacing = def.Thresholds.Pacing
	}
}

// LoadSettings reads the settings file. A missing file yields defaults. A file
// that cannot be parsed is moved aside to <path>.bak and defaults are returned
// along with the parse error so the caller can report it.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("reading settings: %w", err)
	}

	s := &Settings{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return DefaultSettings(), quarantine(path, err)
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), quarantine(path, err)
	}
	s.applyDefaults()
	return s, nil
}

func quarantine(path string, cause error) error {
	backup := path + ".bak"
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("settings corrupt (%v), backup failed: %w", cause, err)
	}
	return fmt.Errorf("settings corrupt, moved to %s: %w", backup, cause)
}

// SaveSettings writes the settings file atomically.
func SaveSettings(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
