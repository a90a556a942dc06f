package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// State holds cross-run bench state that is not part of any profile
// record, currently just the last-used profile.
type State struct {
	LastProfileID string `json:"last_profile_id,omitempty"`
}

// LoadState reads the state file. A missing file is not an error and
// yields zero state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt state file only loses the last selection.
		return &State{}, nil
	}
	return &st, nil
}

// SaveState writes the state file atomically.
func SaveState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return atomicWrite(path, data)
}
