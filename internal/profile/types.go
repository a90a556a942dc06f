package profile

import (
	"math"
	"time"
)

// Shape identifies a sample-device geometry.
type Shape string

// Supported device shapes.
const (
	ShapeRectangle Shape = "rectangle"
	ShapeCircle    Shape = "circle"
)

// AllShapes returns every supported shape.
func AllShapes() []Shape {
	return []Shape{ShapeRectangle, ShapeCircle}
}

// micrometersPerMeter converts the stored µm dimensions to SI.
const micrometersPerMeter = 1e6

// DeviceGeometry describes one device on a sample: its name and the
// physical dimensions used to normalise measured currents to current
// density. Dimensions are stored in micrometres, areas in µm².
type DeviceGeometry struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Shape    Shape   `json:"shape"`
	WidthUM  float64 `json:"width_um,omitempty"`
	LengthUM float64 `json:"length_um,omitempty"`
	RadiusUM float64 `json:"radius_um,omitempty"`

	// AreaUM2 overrides the derived area when CustomArea is set.
	AreaUM2    float64 `json:"area_um2,omitempty"`
	CustomArea bool    `json:"custom_area"`
}

// Area returns the device area in µm², deriving it from the shape
// unless a custom area is set.
func (d *DeviceGeometry) Area() float64 {
	if d.CustomArea {
		return d.AreaUM2
	}
	switch d.Shape {
	case ShapeCircle:
		return math.Pi * d.RadiusUM * d.RadiusUM
	default:
		return d.WidthUM * d.LengthUM
	}
}

// AreaM2 returns the device area in m².
func (d *DeviceGeometry) AreaM2() float64 {
	return d.Area() / (micrometersPerMeter * micrometersPerMeter)
}

// DeepCopy creates an independent copy of the DeviceGeometry.
func (d *DeviceGeometry) DeepCopy() *DeviceGeometry {
	if d == nil {
		return nil
	}
	cpy := *d
	return &cpy
}

// Profile is one persisted measurement profile: the sample being
// measured, its devices and free-form acquisition settings.
type Profile struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Measurement bookkeeping
	StorageLocation string `json:"storage_location,omitempty"`
	LastSampleID    string `json:"last_sample_id,omitempty"`

	// Devices on the sample and the one last worked on.
	Devices              []DeviceGeometry `json:"devices,omitempty"`
	LastSelectedDeviceID string           `json:"last_selected_device_id,omitempty"`

	// Attributes holds capability-specific settings keyed by name.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Profile.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for copy isolation
// at the capability boundary.
func (p *Profile) DeepCopy() *Profile {
	if p == nil {
		return nil
	}

	cpy := *p // Shallow copy of value fields

	if p.Devices != nil {
		cpy.Devices = make([]DeviceGeometry, len(p.Devices))
		copy(cpy.Devices, p.Devices)
	}

	cpy.Attributes = deepCopyMap(p.Attributes)

	return &cpy
}

// Device returns a copy of the device with the given ID, if present.
func (p *Profile) Device(deviceID string) (*DeviceGeometry, bool) {
	for i := range p.Devices {
		if p.Devices[i].ID == deviceID {
			return p.Devices[i].DeepCopy(), true
		}
	}
	return nil, false
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []float64:
		cpy := make([]float64, len(val))
		copy(cpy, val)
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}
