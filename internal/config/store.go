package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Signature tags the persisted layout. Bump it whenever ClockConfig changes
// shape; a stored record with any other signature is replaced by defaults.
const Signature = "LC01"

// Store loads and saves the settings record.
type Store interface {
	// Load returns the stored settings. If nothing valid is stored, the
	// defaults are written back and returned with fresh set to true.
	Load() (cfg ClockConfig, fresh bool, err error)

	// Save persists cfg. It returns only after the write is durable.
	Save(cfg ClockConfig) error
}

type document struct {
	Signature string      `yaml:"signature"`
	Settings  ClockConfig `yaml:"settings"`
}

// FileStore keeps the settings as a YAML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the settings file. A missing file, an unparseable file or a
// signature mismatch is treated as first boot.
func (s *FileStore) Load() (ClockConfig, bool, error) {
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", s.path).Msg("no stored settings; writing defaults")
		return s.reset()
	case err != nil:
		return ClockConfig{}, false, fmt.Errorf("read settings: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("stored settings unreadable; writing defaults")
		return s.reset()
	}
	if doc.Signature != Signature {
		log.Info().Str("stored", doc.Signature).Str("want", Signature).Msg("settings signature mismatch; writing defaults")
		return s.reset()
	}
	return doc.Settings, false, nil
}

func (s *FileStore) reset() (ClockConfig, bool, error) {
	cfg := Defaults()
	if err := s.Save(cfg); err != nil {
		return cfg, true, err
	}
	return cfg, true, nil
}

// Save writes the settings atomically: a temp file in the same directory is
// synced and then renamed over the previous file.
func (s *FileStore) Save(cfg ClockConfig) error {
	b, err := yaml.Marshal(document{Signature: Signature, Settings: cfg})
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
