package profile

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/status"
)

// Manager is the owning module for profile records. It holds the only
// mutable copies in memory, owns all writes to the Store, and tracks
// the current profile selection across runs.
//
// All mutations follow the same discipline: clone the cached record,
// apply the change to the clone, persist the clone, and only then
// replace the cache entry. A failed save therefore leaves both the
// cache and the file untouched.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	store     *Store
	statePath string
	statusMgr *status.Manager
	logger    *logging.Logger

	mu        sync.RWMutex
	profiles  map[string]*Profile
	currentID string
}

// NewManager loads all profile records and restores the last-used
// selection from the state file. Malformed record files are reported
// through the status sink and skipped, never deleted.
func NewManager(store *Store, statePath string, statusMgr *status.Manager, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.Default()
	}

	m := &Manager{
		store:     store,
		statePath: statePath,
		statusMgr: statusMgr,
		logger:    logger,
		profiles:  make(map[string]*Profile),
	}

	profiles, malformed, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	for _, name := range malformed {
		statusMgr.Warning("skipping malformed profile file %q", name)
	}

	st, err := LoadState(statePath)
	if err != nil {
		return nil, err
	}
	if st.LastProfileID != "" {
		if _, ok := m.profiles[st.LastProfileID]; ok {
			m.currentID = st.LastProfileID
		}
	}

	logger.Info("profiles loaded",
		"count", len(m.profiles),
		"malformed", len(malformed),
		"selected", m.currentID != "",
	)
	return m, nil
}

// Create makes a new profile with the given name, persists it and
// selects it. Names must be unique, compared case-insensitively.
func (m *Manager) Create(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTakenLocked(name, "") {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	now := time.Now().UTC()
	p := &Profile{
		ID:        GenerateID(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Save(p); err != nil {
		m.statusMgr.Error("creating profile %q failed: %v", name, err)
		return nil, err
	}

	m.profiles[p.ID] = p
	m.currentID = p.ID
	m.persistStateLocked()

	m.statusMgr.Info("profile %q created", p.Name)
	return p.DeepCopy(), nil
}

// Rename changes a profile's name with the same uniqueness rule as Create.
func (m *Manager) Rename(id, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.nameTakenLocked(newName, id) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}

	return m.commitLocked(p, func(cpy *Profile) error {
		cpy.Name = strings.TrimSpace(newName)
		return nil
	})
}

// Delete removes a profile record and clears the selection if it was
// the current one.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := m.store.Delete(id); err != nil {
		m.statusMgr.Error("deleting profile %q failed: %v", p.Name, err)
		return err
	}

	delete(m.profiles, id)
	if m.currentID == id {
		m.currentID = ""
	}
	m.persistStateLocked()

	m.statusMgr.Info("profile %q deleted", p.Name)
	return nil
}

// Select makes the given profile current and remembers it across runs.
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.currentID = id
	m.persistStateLocked()
	return nil
}

// CurrentProfile returns a copy of the selected profile, or nil when
// none is selected.
func (m *Manager) CurrentProfile() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentID == "" {
		return nil
	}
	return m.profiles[m.currentID].DeepCopy()
}

// Get returns a copy of one profile by ID.
func (m *Manager) Get(id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.DeepCopy(), nil
}

// Profiles returns copies of all profiles sorted by name.
func (m *Manager) Profiles() []*Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// SetAttribute sets one free-form attribute on the current profile.
func (m *Manager) SetAttribute(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: empty attribute key", ErrMalformedRecord)
	}
	return m.mutateCurrent(func(cpy *Profile) error {
		if cpy.Attributes == nil {
			cpy.Attributes = make(map[string]any)
		}
		cpy.Attributes[key] = deepCopyValue(value)
		return nil
	})
}

// SetStorageLocation records where measurement output is stored.
func (m *Manager) SetStorageLocation(location string) error {
	return m.mutateCurrent(func(cpy *Profile) error {
		cpy.StorageLocation = location
		return nil
	})
}

// SetLastSampleID records the most recent sample identifier.
func (m *Manager) SetLastSampleID(sampleID string) error {
	return m.mutateCurrent(func(cpy *Profile) error {
		cpy.LastSampleID = sampleID
		return nil
	})
}

// AddDevice adds a device geometry to the current profile, assigning
// it a fresh ID, and selects it.
func (m *Manager) AddDevice(d DeviceGeometry) (*DeviceGeometry, error) {
	d.ID = GenerateID()
	if err := ValidateDevice(&d); err != nil {
		return nil, err
	}

	err := m.mutateCurrent(func(cpy *Profile) error {
		cpy.Devices = append(cpy.Devices, d)
		cpy.LastSelectedDeviceID = d.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.DeepCopy(), nil
}

// UpdateDevice replaces a device geometry on the current profile.
func (m *Manager) UpdateDevice(d DeviceGeometry) error {
	if err := ValidateDevice(&d); err != nil {
		return err
	}
	return m.mutateCurrent(func(cpy *Profile) error {
		for i := range cpy.Devices {
			if cpy.Devices[i].ID == d.ID {
				cpy.Devices[i] = d
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, d.ID)
	})
}

// RemoveDevice deletes a device geometry from the current profile.
func (m *Manager) RemoveDevice(deviceID string) error {
	return m.mutateCurrent(func(cpy *Profile) error {
		for i := range cpy.Devices {
			if cpy.Devices[i].ID == deviceID {
				cpy.Devices = append(cpy.Devices[:i], cpy.Devices[i+1:]...)
				if cpy.LastSelectedDeviceID == deviceID {
					cpy.LastSelectedDeviceID = ""
				}
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	})
}

// SelectDevice marks a device as the one being worked on.
func (m *Manager) SelectDevice(deviceID string) error {
	return m.mutateCurrent(func(cpy *Profile) error {
		if _, ok := cpy.Device(deviceID); !ok {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
		}
		cpy.LastSelectedDeviceID = deviceID
		return nil
	})
}

// Stats reports cache counters for diagnostics.
type Stats struct {
	Profiles int    `json:"profiles"`
	Selected string `json:"selected,omitempty"`
}

// GetStats returns current manager statistics.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Profiles: len(m.profiles),
		Selected: m.currentID,
	}
}

// mutateCurrent applies a mutation to the selected profile with the
// clone-save-commit discipline.
func (m *Manager) mutateCurrent(mutate func(*Profile) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentID == "" {
		return ErrNoSelection
	}
	return m.commitLocked(m.profiles[m.currentID], mutate)
}

// commitLocked clones p, applies mutate, persists and swaps the cache
// entry. Callers must hold m.mu.
func (m *Manager) commitLocked(p *Profile, mutate func(*Profile) error) error {
	cpy := p.DeepCopy()
	if err := mutate(cpy); err != nil {
		return err
	}
	cpy.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(cpy); err != nil {
		m.statusMgr.Error("saving profile %q failed: %v", p.Name, err)
		return err
	}

	m.profiles[cpy.ID] = cpy
	return nil
}

// nameTakenLocked reports whether name is used by any profile other
// than excludeID. Callers must hold m.mu.
func (m *Manager) nameTakenLocked(name, excludeID string) bool {
	needle := strings.ToLower(strings.TrimSpace(name))
	for id, p := range m.profiles {
		if id == excludeID {
			continue
		}
		if strings.ToLower(p.Name) == needle {
			return true
		}
	}
	return false
}

// persistStateLocked writes the cross-run state file. Failures are
// reported but do not fail the calling operation. Callers must hold m.mu.
func (m *Manager) persistStateLocked() {
	st := &State{LastProfileID: m.currentID}
	if err := SaveState(m.statePath, st); err != nil {
		m.statusMgr.Warning("saving bench state failed: %v", err)
	}
}
