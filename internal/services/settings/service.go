// Package settings provides the user settings file with watching and persistence.
package settings

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

// EventType defines the type of settings event.
type EventType int

const (
	EventSettingsLoaded EventType = iota
	EventSettingsChanged
	EventError
)

// Event represents a settings service event.
type Event struct {
	Error    error
	Settings *config.Settings
	Type     EventType
}

// Service owns the settings file, reloading it when it changes on disk.
type Service struct {
	mu            sync.RWMutex
	settings      *config.Settings
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// New loads the settings file, creating it with defaults when missing, and
// starts watching it. A corrupt file is moved aside and defaults are used;
// the problem is reported as an EventError rather than failing startup.
func New(filePath string) (*Service, error) {
	s := &Service{
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	_, statErr := os.Stat(filePath)
	settings, loadErr := config.LoadSettings(filePath)
	s.settings = settings

	if errors.Is(statErr, os.ErrNotExist) {
		if err := config.SaveSettings(filePath, settings); err != nil {
			return nil, fmt.Errorf("failed to create settings file: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	if loadErr != nil {
		logger.Warn("settings file unusable, using defaults", "path", filePath, "error", loadErr)
		s.sendEvent(Event{Type: EventError, Error: loadErr})
	}
	s.sendEvent(Event{Type: EventSettingsLoaded, Settings: s.Get()})

	return s, nil
}

// Events returns the event channel for subscribing to settings changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Path returns the settings file path.
func (s *Service) Path() string {
	return s.filePath
}

// Get returns a copy of the current settings.
func (s *Service) Get() *config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.settings)
}

// SetNotification persists a single notification toggle such as
// "claude_pacing".
func (s *Service) SetNotification(name string, on bool) error {
	s.mu.Lock()
	next := clone(s.settings)
	next.Notifications[name] = on
	if err := config.SaveSettings(s.filePath, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.settings = next
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSettingsChanged, Settings: clone(next)})
	return nil
}

// ToggleNotification flips a toggle (unset toggles count as on) and returns
// its new state.
func (s *Service) ToggleNotification(name string) (bool, error) {
	s.mu.RLock()
	on, ok := s.settings.Notifications[name]
	s.mu.RUnlock()
	if !ok {
		on = true
	}
	if err := s.SetNotification(name, !on); err != nil {
		return on, err
	}
	return !on, nil
}

func clone(src *config.Settings) *config.Settings {
	dst := *src
	dst.Notifications = maps.Clone(src.Notifications)
	if dst.Notifications == nil {
		dst.Notifications = map[string]bool{}
	}
	dst.Providers = slices.Clone(src.Providers)
	for i := range dst.Providers {
		dst.Providers[i].Headers = maps.Clone(dst.Providers[i].Headers)
		dst.Providers[i].Limits = slices.Clone(dst.Providers[i].Limits)
	}
	return &dst
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory so atomic renames are seen.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads settings after an external edit. An unusable
// file keeps the settings already in memory.
func (s *Service) handleFileChange() {
	settings, err := config.LoadSettings(s.filePath)
	if err != nil {
		logger.Warn("settings reload failed", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSettingsChanged, Settings: clone(settings)})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	close(s.stopChan)

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
