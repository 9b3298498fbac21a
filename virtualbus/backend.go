package virtualbus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned when no device is registered at a location.
var ErrNotFound = errors.New("virtualbus: device not found")

// Backend is the registry of devices currently plugged into the virtual bus.
// Writers (topology loads) must be serialized by the caller; readers may run
// concurrently with them.
type Backend struct {
	mu      sync.RWMutex
	devices []*Device
	logger  *slog.Logger
}

// New creates an empty backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger}
}

// FlushDevices removes every registered device.
func (b *Backend) FlushDevices() {
	b.mu.Lock()
	n := len(b.devices)
	b.devices = nil
	b.mu.Unlock()
	if n > 0 {
		b.logger.Debug("flushed virtual devices", "count", n)
	}
}

// AddDevice publishes a fully built device.
func (b *Backend) AddDevice(d *Device) error {
	if d == nil {
		return errors.New("virtualbus: nil device")
	}
	if !d.Built() {
		return fmt.Errorf("virtualbus: device %s not built", d)
	}
	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()
	b.logger.Debug("added virtual device", "device", d.String())
	return nil
}

// ReplaceDevices swaps the registered devices for devs in one step. Readers
// see either the old or the new set, never a mix.
func (b *Backend) ReplaceDevices(devs []*Device) error {
	for _, d := range devs {
		if d == nil || !d.Built() {
			return fmt.Errorf("virtualbus: cannot publish unbuilt device %v", d)
		}
	}
	next := make([]*Device, len(devs))
	copy(next, devs)
	b.mu.Lock()
	prev := len(b.devices)
	b.devices = next
	b.mu.Unlock()
	b.logger.Debug("replaced virtual devices", "previous", prev, "count", len(next))
	return nil
}

// Devices returns a snapshot of the registered devices in registration order.
func (b *Backend) Devices() []*Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Device, len(b.devices))
	copy(out, b.devices)
	return out
}

// Len returns the number of registered devices.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.devices)
}

// Device returns the device at bus/address.
func (b *Backend) Device(bus, address uint8) (*Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, d := range b.devices {
		if d.Bus == bus && d.Address == address {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: bus %d address %d", ErrNotFound, bus, address)
}

// Fingerprint returns a hex BLAKE2b-256 digest over the location and the
// descriptor bytes of every registered device, in registration order.
// Two backends loaded from equivalent topologies share a fingerprint.
func (b *Backend) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	for _, d := range b.Devices() {
		h.Write([]byte{d.Bus, d.Address})
		h.Write(d.Descriptor.Bytes())
		for _, c := range d.Configurations {
			h.Write(c.Bytes())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
