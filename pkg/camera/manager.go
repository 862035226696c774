package camera

import (
	"errors"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedUpdate is returned by Update for bodies that are not a JSON object of
// Config fields.
var ErrMalformedUpdate = errors.New("camera: malformed config update")

// Manager owns the live capture configuration. Changes are validated before they are
// stored and then handed to OnConfigChange outside the lock.
type Manager struct {
	mu     sync.RWMutex
	config Config

	OnConfigChange func(cfg Config) error
}

// NewManager starts from cfg. It is not validated until the first capture.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// Config returns the current configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Set replaces the configuration.
func (m *Manager) Set(cfg Config) error {
	return m.change(func(cur *Config) error {
		*cur = cfg
		return nil
	})
}

// Update merges a partial JSON object onto the current configuration. A "preset" key
// resets to that preset first; the remaining keys override it.
//
//	{"preset":"720p","mirror":false}
func (m *Manager) Update(patch []byte) error {
	var sel struct {
		Preset *string `json:"preset"`
	}
	if err := json.Unmarshal(patch, &sel); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}

	return m.change(func(cur *Config) error {
		if sel.Preset != nil {
			base, err := Preset(*sel.Preset)
			if err != nil {
				return err
			}
			*cur = base
		}
		if err := json.Unmarshal(patch, cur); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
		}
		return nil
	})
}

// Map returns the current configuration as a JSON object.
func (m *Manager) Map() map[string]interface{} {
	data, _ := json.Marshal(m.Config())
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

// change edits a copy under the lock and stores it only if it validates. The callback
// error is returned but the stored config stays.
func (m *Manager) change(edit func(*Config) error) error {
	m.mu.Lock()
	next := m.config
	if err := edit(&next); err != nil {
		m.mu.Unlock()
		return err
	}
	if problems := next.Validate(); len(problems) > 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, problems)
	}
	m.config = next
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(next); err != nil {
			return fmt.Errorf("camera: apply config: %w", err)
		}
	}
	return nil
}
