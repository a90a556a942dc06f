package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const profileFileExt = ".json"

// Store persists profiles as JSON documents, one file per profile,
// named by record ID. Writes go through a temporary file followed by
// an atomic rename so a crash never leaves a partial record behind.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if missing.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("profile: store directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save validates and writes one profile record.
// A malformed record is rejected before any file is touched.
func (s *Store) Save(p *Profile) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.ID, err)
	}

	return atomicWrite(s.path(p.ID), data)
}

// Load reads one profile record by ID.
func (s *Store) Load(id string) (*Profile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading profile %s: %w", id, err)
	}

	return decodeProfile(data, id)
}

// LoadAll reads every profile record in the store directory.
// Files that fail to decode or validate are skipped and returned by
// name so the caller can report them; they are never deleted.
func (s *Store) LoadAll() (profiles []*Profile, malformed []string, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading profile dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), profileFileExt) {
			continue
		}

		data, readErr := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if readErr != nil {
			malformed = append(malformed, entry.Name())
			continue
		}

		id := strings.TrimSuffix(entry.Name(), profileFileExt)
		p, decErr := decodeProfile(data, id)
		if decErr != nil {
			malformed = append(malformed, entry.Name())
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, malformed, nil
}

// Delete removes one profile record. Deleting a missing record fails
// with ErrNotFound.
func (s *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	return nil
}

// path returns the file path for a profile ID.
func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+profileFileExt)
}

// decodeProfile parses and validates one record, checking that the
// embedded ID matches the file it came from.
func decodeProfile(data []byte, id string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := ValidateProfile(&p); err != nil {
		return nil, err
	}
	if p.ID != id {
		return nil, fmt.Errorf("%w: file %s contains id %s", ErrMalformedRecord, id, p.ID)
	}
	return &p, nil
}

// atomicWrite writes data to path via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
