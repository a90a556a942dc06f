package volatile

import (
	"fmt"
	"sync"
)

// Standard slot names wired at startup.
const (
	SlotSpectrumWavelengths = "spectrum_wavelengths"
	SlotSpectrumIntensities = "spectrum_intensities"
	SlotSweepLevels         = "sweep_levels"
	SlotSweepVoltages       = "sweep_voltages"
	SlotSweepCurrents       = "sweep_currents"
)

// Producer identities for the standard slots.
const (
	ProducerSpectro = "spectro"
	ProducerSweep   = "sweep"
)

// slot holds the most recent value of one transient data stream.
type slot struct {
	mu        sync.RWMutex
	producer  string
	samples   []float64
	populated bool
}

// Buffer is the set of named overwrite-in-place slots for transient
// measurement data. Slots are declared once at startup with a producer
// identity; writes from any other identity are rejected.
//
// Reads return a snapshot copy, never a live reference. An empty slot
// reads as (nil, false) rather than an error so consumers can branch
// without fault handling.
//
// Thread Safety:
//   - Set and Get on one slot are atomic with respect to each other.
//   - No ordering is guaranteed across different slots.
type Buffer struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewBuffer creates an empty Buffer with no declared slots.
func NewBuffer() *Buffer {
	return &Buffer{
		slots: make(map[string]*slot),
	}
}

// DeclareSlot registers a slot with its single producer identity.
// Declaring the same name twice fails.
func (b *Buffer) DeclareSlot(name, producer string) error {
	if name == "" {
		return fmt.Errorf("%w: empty slot name", ErrInvalidSlot)
	}
	if producer == "" {
		return fmt.Errorf("%w: empty producer for slot %q", ErrInvalidSlot, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.slots[name]; exists {
		return fmt.Errorf("%w: %q", ErrSlotDeclared, name)
	}
	b.slots[name] = &slot{producer: producer}
	return nil
}

// Set overwrites the slot's contents with a copy of samples.
// Only the declared producer may write; previous contents are discarded.
func (b *Buffer) Set(name, producer string, samples []float64) error {
	s, err := b.lookup(name)
	if err != nil {
		return err
	}

	if producer != s.producer {
		return fmt.Errorf("%w: slot %q belongs to %q, write from %q",
			ErrNotProducer, name, s.producer, producer)
	}

	snapshot := make([]float64, len(samples))
	copy(snapshot, samples)

	s.mu.Lock()
	s.samples = snapshot
	s.populated = true
	s.mu.Unlock()

	return nil
}

// Get returns a snapshot of the slot's contents. The second return is
// false when the slot has never been written (the no-data sentinel) or
// the slot is not declared.
func (b *Buffer) Get(name string) ([]float64, bool) {
	s, err := b.lookup(name)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.populated {
		return nil, false
	}

	snapshot := make([]float64, len(s.samples))
	copy(snapshot, s.samples)
	return snapshot, true
}

// Producer returns the declared producer identity for a slot.
func (b *Buffer) Producer(name string) (string, bool) {
	s, err := b.lookup(name)
	if err != nil {
		return "", false
	}
	return s.producer, true
}

// Slots returns the declared slot names, in no particular order.
func (b *Buffer) Slots() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.slots))
	for name := range b.slots {
		names = append(names, name)
	}
	return names
}

// lookup resolves a slot by name.
func (b *Buffer) lookup(name string) (*slot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, exists := b.slots[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrSlotNotDeclared, name)
	}
	return s, nil
}
