package configstore

import "context"

// Persister is the named interface boundary spec.md §1 calls out for
// "persistence drivers (... SQL/NoSQL storage)" — an out-of-scope concern
// the core depends on only through this interface. The default, in-scope
// persistence path is the Template & Configuration Reconciler's JSON
// configuration file (spec.md §4.1/§6); a Persister is an additional,
// best-effort sink layered on top, never a replacement for it.
type Persister interface {
	SaveKeys(ctx context.Context, stationID string, keys []Key) error
	LoadKeys(ctx context.Context, stationID string) ([]Key, error)
}

// NopPersister discards saves and reports no prior keys; it is the default
// when no optional persister is configured.
type NopPersister struct{}

func (NopPersister) SaveKeys(ctx context.Context, stationID string, keys []Key) error {
	return nil
}

func (NopPersister) LoadKeys(ctx context.Context, stationID string) ([]Key, error) {
	return nil, nil
}
