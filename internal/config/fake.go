package config

// MemStore is an in-memory Store for tests.
type MemStore struct {
	// Stored is the current record; nil means nothing has been saved.
	Stored *ClockConfig

	// Saves counts successful Save calls.
	Saves int

	// SaveError, if set, is returned by Save and nothing is stored.
	SaveError error

	// LoadError, if set, is returned by Load.
	LoadError error
}

// NewMemStore returns an empty store; the first Load yields defaults.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns the stored record, or saves and returns defaults.
func (m *MemStore) Load() (ClockConfig, bool, error) {
	if m.LoadError != nil {
		return ClockConfig{}, false, m.LoadError
	}
	if m.Stored == nil {
		cfg := Defaults()
		if err := m.Save(cfg); err != nil {
			return cfg, true, err
		}
		return cfg, true, nil
	}
	return *m.Stored, false, nil
}

// Save records cfg.
func (m *MemStore) Save(cfg ClockConfig) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	c := cfg
	m.Stored = &c
	m.Saves++
	return nil
}
