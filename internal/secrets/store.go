// Package secrets stores local secret values (signing keys, explorer API
// keys) in a YAML file readable only by the current user.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a secret does not exist.
var ErrNotFound = errors.New("secret not found")

// File is the on-disk layout.
type File struct {
	Secrets map[string]Secret `yaml:"secrets"`
}

// Secret is one stored value.
type Secret struct {
	Value     string `yaml:"value"`
	Note      string `yaml:"note,omitempty"`
	UpdatedAt string `yaml:"updated_at,omitempty"`
}

// Store reads and writes a secrets file. It implements config.Lookup.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store backed by path. The file is created on first write.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the value stored under name. Read errors are treated as
// "not present" so a broken secrets file never supplies a value.
func (s *Store) Lookup(name string) (string, bool) {
	f, err := s.load()
	if err != nil {
		return "", false
	}
	sec, ok := f.Secrets[name]
	if !ok || sec.Value == "" {
		return "", false
	}
	return sec.Value, true
}

// Get returns the secret stored under name.
func (s *Store) Get(name string) (Secret, error) {
	f, err := s.load()
	if err != nil {
		return Secret{}, err
	}
	sec, ok := f.Secrets[name]
	if !ok {
		return Secret{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return sec, nil
}

// Set stores value under name, replacing any previous value.
func (s *Store) Set(name, value, note string) error {
	if name == "" {
		return errors.New("secret name cannot be empty")
	}
	if value == "" {
		return errors.New("secret value cannot be empty")
	}

	f, err := s.load()
	if err != nil {
		return err
	}
	f.Secrets[name] = Secret{
		Value:     value,
		Note:      note,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}
	return s.write(f)
}

// Delete removes name. Deleting a missing secret returns ErrNotFound.
func (s *Store) Delete(name string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Secrets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(f.Secrets, name)
	return s.write(f)
}

// Names returns the stored names, sorted.
func (s *Store) Names() ([]string, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Secrets))
	for name := range f.Secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// load reads the file; a missing file is an empty store.
func (s *Store) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{Secrets: make(map[string]Secret)}, nil
		}
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", s.path, err)
	}
	if f.Secrets == nil {
		f.Secrets = make(map[string]Secret)
	}
	return &f, nil
}

func (s *Store) write(f *File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating secrets directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding secrets file: %w", err)
	}

	// WriteFile keeps the mode of an existing file, so chmod explicitly.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return os.Chmod(s.path, 0600)
}
