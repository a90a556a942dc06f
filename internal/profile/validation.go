package profile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxAttributeKeys  = 50
	maxDevicesPerFile = 200
	maxStringValueLen = 1024
	maxAttributeDepth = 5
)

// ValidateProfile performs comprehensive validation on a profile record.
// Returns an error describing the first validation failure found.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrMalformedRecord)
	}

	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if err := ValidateName(p.Name); err != nil {
		return err
	}

	if len(p.Devices) > maxDevicesPerFile {
		return fmt.Errorf("%w: too many devices (max %d)", ErrMalformedRecord, maxDevicesPerFile)
	}
	for i := range p.Devices {
		if err := ValidateDevice(&p.Devices[i]); err != nil {
			return fmt.Errorf("device %d: %w", i, err)
		}
	}

	if len(p.Attributes) > maxAttributeKeys {
		return fmt.Errorf("%w: too many attributes (max %d)", ErrMalformedRecord, maxAttributeKeys)
	}
	if err := validateAttributes(p.Attributes, 0); err != nil {
		return err
	}

	return nil
}

// ValidateDevice validates one device geometry record.
func ValidateDevice(d *DeviceGeometry) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrMalformedRecord)
	}

	if err := ValidateID(d.ID); err != nil {
		return err
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}

	switch d.Shape {
	case ShapeRectangle, ShapeCircle:
	default:
		return fmt.Errorf("%w: unknown shape %q", ErrMalformedRecord, d.Shape)
	}

	if d.WidthUM < 0 || d.LengthUM < 0 || d.RadiusUM < 0 || d.AreaUM2 < 0 {
		return fmt.Errorf("%w: negative dimension", ErrMalformedRecord)
	}

	return nil
}

// ValidateID checks that an identifier is a well-formed UUID v4.
// Every persisted record must carry one; a record without it is
// rejected before any file is written.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: id %q is not a UUID", ErrMalformedRecord, id)
	}
	if parsed.Version() != 4 {
		return fmt.Errorf("%w: id %q is not version 4", ErrMalformedRecord, id)
	}
	return nil
}

// ValidateName checks that a record name is non-empty and within limits.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// validateAttributes bounds attribute nesting and string sizes.
func validateAttributes(m map[string]any, depth int) error {
	if depth > maxAttributeDepth {
		return fmt.Errorf("%w: attributes nested too deeply", ErrMalformedRecord)
	}
	for k, v := range m {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: attribute key too long", ErrMalformedRecord)
		}
		switch val := v.(type) {
		case string:
			if len(val) > maxStringValueLen {
				return fmt.Errorf("%w: attribute %q value too long", ErrMalformedRecord, k)
			}
		case map[string]any:
			if err := validateAttributes(val, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// GenerateID creates a new UUID v4 for a record.
func GenerateID() string {
	return uuid.New().String()
}
