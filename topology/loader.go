package topology

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alia5/usbtopo/virtualbus"
)

// Loader loads topology documents into a backend.
// A Loader is not safe for concurrent Load calls.
type Loader struct {
	backend *virtualbus.Backend
	logger  *slog.Logger
}

// NewLoader creates a loader publishing to backend.
func NewLoader(backend *virtualbus.Backend, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{backend: backend, logger: logger}
}

// Backend returns the backend devices are published to.
func (l *Loader) Backend() *virtualbus.Backend { return l.backend }

// Load reads a YAML stream, builds every entry in order and validates the
// resulting bus. rc is closed before Load returns.
//
// On failure the backend may hold a partial topology; call Unload before
// loading again.
func (l *Loader) Load(rc io.ReadCloser) error {
	defer rc.Close()
	return l.load(newYAMLDocuments(rc))
}

// LoadTOML is Load for a TOML document, which always holds a single entry.
func (l *Loader) LoadTOML(rc io.ReadCloser) error {
	defer rc.Close()
	return l.load(newTOMLDocument(rc))
}

// LoadFile loads a file, as TOML when its extension is .toml and as YAML
// otherwise.
func (l *Loader) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	l.logger.Debug("loading topology file", "file", path)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return l.LoadTOML(f)
	}
	return l.Load(f)
}

func (l *Loader) load(docs documentSource) error {
	entries := 0
	for {
		entry, err := docs.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		if err := buildEntry(l.backend, entry, l.logger); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrInvalidConfiguration, entries, err)
		}
		entries++
	}
	if err := Validate(l.backend.Devices()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	l.logger.Info("loaded virtual USB topology", "entries", entries, "devices", l.backend.Len())
	return nil
}

// ReloadFile loads path into a staging backend and, only once it loads and
// validates, swaps the staged devices into the loader's backend. On failure
// the current topology stays in place.
func (l *Loader) ReloadFile(path string) error {
	staging := NewLoader(virtualbus.New(l.logger), l.logger)
	if err := staging.LoadFile(path); err != nil {
		return err
	}
	return l.backend.ReplaceDevices(staging.backend.Devices())
}

// Unload removes every device from the backend. It is idempotent.
func (l *Loader) Unload() {
	l.backend.FlushDevices()
}

// VirtualDevice returns the device registered at bus/address, or an error
// wrapping virtualbus.ErrNotFound.
func (l *Loader) VirtualDevice(bus, address uint8) (*virtualbus.Device, error) {
	return l.backend.Device(bus, address)
}
