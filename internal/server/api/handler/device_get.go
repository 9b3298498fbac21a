package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Alia5/usbtopo/internal/server/api"
	"github.com/Alia5/usbtopo/virtualbus"
)

// DeviceGet returns a handler for "device/{bus}/{address}". The optional
// argument "raw" adds hex descriptor bytes to the reply.
func DeviceGet(b *virtualbus.Backend) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		bus, err := uintParam(req, "bus")
		if err != nil {
			return err
		}
		addr, err := uintParam(req, "address")
		if err != nil {
			return err
		}
		dev, err := b.Device(bus, addr)
		if errors.Is(err, virtualbus.ErrNotFound) {
			return fmt.Errorf("device not found: bus %d address %d", bus, addr)
		}
		if err != nil {
			return err
		}
		raw := len(req.Args) > 0 && req.Args[0] == "raw"
		payload, err := json.Marshal(Describe(dev, raw))
		if err != nil {
			return err
		}
		logger.Debug("described device", "device", dev.String(), "raw", raw)
		res.JSON = string(payload)
		return nil
	}
}

func uintParam(req *api.Request, name string) (uint8, error) {
	s, ok := req.Params[name]
	if !ok {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return uint8(n), nil
}
