// Package configstore implements the Configuration Store component (spec.md
// §4.2/B): a keyed mapping of name to {value, readonly, visible, reboot},
// with opt-in persistence. The mutex-guarded map with a snapshot reader
// follows the same shape as
// backend/services/ocpp-server/internal/service/station_state.go and
// transaction_store.go.
package configstore

import (
	"fmt"
	"sort"
	"sync"
)

// Key is one configuration entry (spec.md §4.2).
type Key struct {
	Name     string
	Value    string
	Readonly bool
	Visible  bool
	Reboot   bool
}

// Store is the in-memory configuration key/value table.
type Store struct {
	mu   sync.RWMutex
	keys map[string]*Key
}

// New returns an empty Store.
func New() *Store {
	return &Store{keys: make(map[string]*Key)}
}

// Add inserts key, optionally overwriting an existing entry with the same
// name. When overwrite is false and the key already exists, Add is a no-op
// and returns false.
func (s *Store) Add(key Key, overwrite bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key.Name]; exists && !overwrite {
		return false
	}
	k := key
	s.keys[key.Name] = &k
	return true
}

// Get returns the named key.
func (s *Store) Get(name string) (Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[name]
	if !ok {
		return Key{}, false
	}
	return *k, true
}

// SetValue mutates the value of an existing key. It refuses to mutate a
// readonly key. It returns the key's Reboot flag so callers know whether the
// station must be reset after the change (spec.md §4.2).
func (s *Store) SetValue(name, value string) (reboot bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[name]
	if !ok {
		return false, fmt.Errorf("configstore: unknown key %q", name)
	}
	if k.Readonly {
		return false, fmt.Errorf("configstore: key %q is readonly", name)
	}
	k.Value = value
	return k.Reboot, nil
}

// Delete removes a key.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, name)
}

// GetConfiguration returns all keys visible to GetConfiguration callers
// (Visible == true), matching spec.md §4.2's visibility filter, sorted by
// name for deterministic output. If names is non-empty, only those keys are
// returned (still filtered by visibility), plus the list of names that were
// requested but unknown.
func (s *Store) GetConfiguration(names ...string) (found []Key, unknown []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(names) == 0 {
		for _, k := range s.keys {
			if k.Visible {
				found = append(found, *k)
			}
		}
		sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
		return found, nil
	}

	for _, name := range names {
		k, ok := s.keys[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if k.Visible {
			found = append(found, *k)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, unknown
}

// AllKeys returns every key regardless of visibility, used for persistence
// (spec.md §4.2 "saveConfiguration serializes configurationKey[]").
func (s *Store) AllKeys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Key, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
