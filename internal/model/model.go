// Package model implements the Connector/EVSE Model component (spec.md
// §4.2/C): the in-memory map of connectors and EVSEs, their status, running
// transactions, and charging profiles. It is the single synchronization
// boundary for station state, mirroring the mutex-guarded
// map-with-snapshot idiom of csms/internal/registry/registry.go: callers
// never hold a Connector pointer across a lock release, they either read a
// cloned snapshot or mutate through a closure run under the lock.
package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrBothContainersPresent and ErrNoContainerPresent enforce spec.md §3's
// "exactly one of connectors or evses is non-empty" invariant at
// construction time.
var (
	ErrBothContainersPresent = errors.New("model: station declares both connectors and evses")
	ErrNoContainerPresent    = errors.New("model: station declares neither connectors nor evses")
	ErrUnknownConnector      = errors.New("model: unknown connector id")
)

// Model is the Station's owned connector/EVSE state (spec.md §3 ownership
// note: "The Station exclusively owns its Connector/EVSE model").
type Model struct {
	mu sync.RWMutex

	usesEVSEs bool
	evses     map[int]*EVSE
	evseOf    map[int]int // connector id -> owning EVSE id (0 when usesEVSEs is false)

	connectors map[int]*Connector // flat index by connector id, regardless of mode
}

// NewConnectorModel builds a Model in Connectors mode. connectorIDs must
// include 0 for the station-wide pseudo-connector if useConnectorId0 is
// desired by the caller; this constructor does not add it implicitly.
func NewConnectorModel(connectorIDs []int) (*Model, error) {
	if len(connectorIDs) == 0 {
		return nil, ErrNoContainerPresent
	}
	m := &Model{
		connectors: make(map[int]*Connector, len(connectorIDs)),
		evseOf:     make(map[int]int, len(connectorIDs)),
	}
	for _, id := range connectorIDs {
		m.connectors[id] = NewConnector(id)
		m.evseOf[id] = 0
	}
	return m, nil
}

// NewEVSEModel builds a Model in EVSEs mode. evseConnectorIDs maps EVSE id
// to the connector ids it exposes.
func NewEVSEModel(evseConnectorIDs map[int][]int) (*Model, error) {
	if len(evseConnectorIDs) == 0 {
		return nil, ErrNoContainerPresent
	}
	m := &Model{
		usesEVSEs:  true,
		evses:      make(map[int]*EVSE, len(evseConnectorIDs)),
		connectors: make(map[int]*Connector),
		evseOf:     make(map[int]int),
	}
	for evseID, connectorIDs := range evseConnectorIDs {
		m.evses[evseID] = NewEVSE(evseID)
		for _, cid := range connectorIDs {
			m.connectors[cid] = NewConnector(cid)
			m.evseOf[cid] = evseID
		}
	}
	return m, nil
}

// ValidateContainers checks spec.md §3's XOR invariant against raw presence
// flags, used by the template reconciler before it even attempts to build a
// Model (spec.md §4.1 error conditions).
func ValidateContainers(hasConnectors, hasEVSEs bool) error {
	if hasConnectors && hasEVSEs {
		return ErrBothContainersPresent
	}
	if !hasConnectors && !hasEVSEs {
		return ErrNoContainerPresent
	}
	return nil
}

// UsesEVSEs reports whether the station was configured in EVSEs mode.
func (m *Model) UsesEVSEs() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usesEVSEs
}

// ConnectorIDs returns all known connector ids, ascending, including 0 if
// present.
func (m *Model) ConnectorIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int, 0, len(m.connectors))
	for id := range m.connectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// TransactionConnectorIDs returns connector ids excluding 0 — the set that
// receives per-connector boot/shutdown StatusNotifications (spec.md §4.4).
func (m *Model) TransactionConnectorIDs() []int {
	ids := m.ConnectorIDs()
	out := ids[:0]
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// NumberOfConnectors returns the count of non-zero connectors.
func (m *Model) NumberOfConnectors() int {
	return len(m.TransactionConnectorIDs())
}

// NumberOfEVSEs returns the count of EVSEs (0 when not in EVSEs mode).
func (m *Model) NumberOfEVSEs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.evses)
}

// EVSEOf returns the EVSE id owning connectorID, or 0 if the station is not
// in EVSEs mode or the connector is unknown.
func (m *Model) EVSEOf(connectorID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evseOf[connectorID]
}

// Connector returns a deep-enough copy of the connector state for reading
// outside the lock.
func (m *Model) Connector(id int) (*Connector, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connectors[id]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

// Mutate runs fn against the live Connector while holding the write lock.
// fn must not retain the pointer beyond its own scope.
func (m *Model) Mutate(id int, fn func(c *Connector)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connectors[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConnector, id)
	}
	fn(c)
	return nil
}

// RunningTransactionCount returns the number of connectors with an active
// transaction, used by the smart-charging resolver's powerSharedByConnectors
// divider (spec.md §4.5).
func (m *Model) RunningTransactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.connectors {
		if c.ID != 0 && c.TransactionStarted() {
			count++
		}
	}
	return count
}

// ConnectorProfiles returns a snapshot slice of the profiles attached to
// connectorID plus, when connectorID != 0, the station-wide (connector 0)
// profiles, unioned — matching spec.md §4.5 step 1.
func (m *Model) ConnectorProfiles(connectorID int) []*ChargingProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ChargingProfile
	if c, ok := m.connectors[connectorID]; ok {
		for _, p := range c.Profiles {
			cp := *p
			out = append(out, &cp)
		}
	}
	if connectorID != 0 {
		if station, ok := m.connectors[0]; ok {
			for _, p := range station.Profiles {
				cp := *p
				out = append(out, &cp)
			}
		}
	}
	return out
}

// StationSnapshot is a full read-only copy of the model for diagnostics and
// persistence (connectorsStatus / evsesStatus in the configuration file,
// spec.md §6).
type StationSnapshot struct {
	UsesEVSEs  bool
	Connectors map[int]*Connector
	EVSEs      map[int]*EVSE
}

// Snapshot returns a deep copy of the whole model.
func (m *Model) Snapshot() StationSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := StationSnapshot{
		UsesEVSEs:  m.usesEVSEs,
		Connectors: make(map[int]*Connector, len(m.connectors)),
	}
	for id, c := range m.connectors {
		snap.Connectors[id] = c.clone()
	}
	if m.usesEVSEs {
		snap.EVSEs = make(map[int]*EVSE, len(m.evses))
		for id, e := range m.evses {
			cp := *e
			snap.EVSEs[id] = &cp
		}
	}
	return snap
}
