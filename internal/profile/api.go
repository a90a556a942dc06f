package profile

import (
	"github.com/elworkbench/workbench-core/internal/status"
)

// Owner is the narrow persistence interface the capability delegates
// writes to. The Manager implements it; holding only this interface
// keeps the API free of any dependency on the full owning module.
type Owner interface {
	// CurrentProfile returns a copy of the selected profile, or nil.
	CurrentProfile() *Profile

	// SetAttribute persists one free-form attribute on the current profile.
	SetAttribute(key string, value any) error

	// SetLastSampleID persists the most recent sample identifier.
	SetLastSampleID(sampleID string) error

	// SelectDevice persists the device selection on the current profile.
	SelectDevice(deviceID string) error
}

// API is the profile capability registered with the broker. Getters
// hand out copies only; every mutation is delegated to the Owner and
// converted into a failure result plus a status report, never a panic.
type API struct {
	owner     Owner
	statusMgr *status.Manager
}

// NewAPI creates the profile capability around its owning module.
func NewAPI(owner Owner, statusMgr *status.Manager) *API {
	return &API{
		owner:     owner,
		statusMgr: statusMgr,
	}
}

// IsSelected reports whether a profile is currently selected.
func (a *API) IsSelected() bool {
	return a.owner.CurrentProfile() != nil
}

// CurrentProfile returns a copy of the selected profile, or nil when
// none is selected. Mutating the returned value never affects stored
// state; changes must go through the setters.
func (a *API) CurrentProfile() *Profile {
	return a.owner.CurrentProfile()
}

// Attribute returns one free-form attribute of the current profile.
// The second return is false when no profile is selected or the key
// is absent.
func (a *API) Attribute(key string) (any, bool) {
	p := a.owner.CurrentProfile()
	if p == nil {
		return nil, false
	}
	v, ok := p.Attributes[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}

// SetAttribute stores one free-form attribute on the current profile.
// The write is delegated to the owning module; a failed write is
// reported through the status channel and returned as an error.
func (a *API) SetAttribute(key string, value any) error {
	if err := a.owner.SetAttribute(key, value); err != nil {
		a.statusMgr.Warning("storing profile attribute %q failed: %v", key, err)
		return err
	}
	return nil
}

// SetLastSampleID records the most recent sample identifier.
func (a *API) SetLastSampleID(sampleID string) error {
	if err := a.owner.SetLastSampleID(sampleID); err != nil {
		a.statusMgr.Warning("storing last sample id failed: %v", err)
		return err
	}
	return nil
}

// CurrentDevice returns a copy of the device last selected on the
// current profile. The second return is false when no profile is
// selected or the profile has no device selection.
func (a *API) CurrentDevice() (*DeviceGeometry, bool) {
	p := a.owner.CurrentProfile()
	if p == nil || p.LastSelectedDeviceID == "" {
		return nil, false
	}
	return p.Device(p.LastSelectedDeviceID)
}

// SelectDevice changes the device selection on the current profile.
func (a *API) SelectDevice(deviceID string) error {
	if err := a.owner.SelectDevice(deviceID); err != nil {
		a.statusMgr.Warning("selecting device failed: %v", err)
		return err
	}
	return nil
}

// CurrentDeviceAreaM2 returns the selected device's area in m² for
// current-density normalisation. The second return is false when no
// device is selected.
func (a *API) CurrentDeviceAreaM2() (float64, bool) {
	d, ok := a.CurrentDevice()
	if !ok {
		return 0, false
	}
	return d.AreaM2(), true
}
