package store

import "fmt"

// MultiStore fans writes out to several backends while treating the first
// as authoritative for Contains/Load, implementing spec §6's "--sqlite: use
// relational persistence alongside or instead of the text log."
type MultiStore struct {
	primary Store
	mirrors []Store
}

// NewMultiStore builds a MultiStore. primary answers Contains/Load; every
// backend (primary and mirrors) receives every Append.
func NewMultiStore(primary Store, mirrors ...Store) *MultiStore {
	return &MultiStore{primary: primary, mirrors: mirrors}
}

func (m *MultiStore) Contains(key string) bool { return m.primary.Contains(key) }

func (m *MultiStore) Append(rec Record) error {
	if err := m.primary.Append(rec); err != nil {
		return fmt.Errorf("primary store: %w", err)
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Append(rec); err != nil {
			return fmt.Errorf("mirror store: %w", err)
		}
	}
	return nil
}

func (m *MultiStore) Load() ([]Record, error) { return m.primary.Load() }

func (m *MultiStore) Close() error {
	var firstErr error
	if err := m.primary.Close(); err != nil {
		firstErr = err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
