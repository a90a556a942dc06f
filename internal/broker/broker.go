package broker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/status"
	"github.com/elworkbench/workbench-core/internal/volatile"
)

// Standard capability names registered at startup.
const (
	CapabilityProfile = "profile"
	CapabilitySMU     = "smu"
	CapabilitySpectro = "spectro"
)

// Broker is the dependency-injection root handed to every consumer
// module. It maps capability names to their API instances and carries
// the volatile buffer and the status sink.
//
// It is constructed exactly once at startup, before any consumer, and
// lives until process shutdown. Registration faults are wiring bugs
// and should abort startup.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The Broker holds no long-lived locks; capability calls run outside
//     its mutex.
type Broker struct {
	mu           sync.RWMutex
	capabilities map[string]any

	buffer    *volatile.Buffer
	statusMgr *status.Manager
	logger    *logging.Logger
}

// New creates a Broker around the shared buffer and status sink.
func New(buffer *volatile.Buffer, statusMgr *status.Manager, logger *logging.Logger) *Broker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Broker{
		capabilities: make(map[string]any),
		buffer:       buffer,
		statusMgr:    statusMgr,
		logger:       logger,
	}
}

// RegisterCapability binds a capability API under a name.
// Binding a name twice fails; registration must complete before any
// consumer resolves the capability.
func (b *Broker) RegisterCapability(name string, api any) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCapability)
	}
	if api == nil {
		return fmt.Errorf("%w: nil instance for %q", ErrInvalidCapability, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.capabilities[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCapability, name)
	}
	b.capabilities[name] = api

	b.logger.Info("capability registered", "name", name)
	return nil
}

// Capability returns the API bound under name. Side-effect free.
func (b *Broker) Capability(name string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	api, exists := b.capabilities[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCapabilityNotFound, name)
	}
	return api, nil
}

// Resolve returns the capability bound under name, asserted to type T.
// A bound capability of the wrong type is reported as not found; both
// cases are wiring faults.
func Resolve[T any](b *Broker, name string) (T, error) {
	var zero T

	api, err := b.Capability(name)
	if err != nil {
		return zero, err
	}

	typed, ok := api.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q bound to %T", ErrCapabilityNotFound, name, api)
	}
	return typed, nil
}

// CapabilityNames returns the registered names, sorted.
func (b *Broker) CapabilityNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.capabilities))
	for name := range b.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Volatile returns the shared transient-data buffer.
func (b *Broker) Volatile() *volatile.Buffer {
	return b.buffer
}

// GetVolatile reads a buffer slot. ok is false when the slot has never
// been written; an empty slot is an ordinary outcome, not a fault.
func (b *Broker) GetVolatile(slot string) (samples []float64, ok bool) {
	return b.buffer.Get(slot)
}

// SetVolatile overwrites a buffer slot on behalf of producer. The slot
// must have been declared for that producer at startup.
func (b *Broker) SetVolatile(slot, producer string, samples []float64) error {
	return b.buffer.Set(slot, producer, samples)
}

// Status returns the shared status sink.
func (b *Broker) Status() *status.Manager {
	return b.statusMgr
}
