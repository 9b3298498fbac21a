package handler

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Alia5/usbtopo/apitypes"
	"github.com/Alia5/usbtopo/internal/server/api"
	"github.com/Alia5/usbtopo/topology"
)

// TopologyReload returns a handler that reloads path into l's backend. The
// new topology replaces the old one only when it loads and validates; on
// failure the served devices are left untouched.
func TopologyReload(l *topology.Loader, path string) api.HandlerFunc {
	var mu sync.Mutex
	return func(_ *api.Request, res *api.Response, logger *slog.Logger) error {
		mu.Lock()
		defer mu.Unlock()
		if err := l.ReloadFile(path); err != nil {
			return err
		}
		b := l.Backend()
		logger.Info("topology reloaded", "file", path, "devices", b.Len())
		payload, err := json.Marshal(apitypes.TopologyReloadResponse{Devices: b.Len(), Fingerprint: b.Fingerprint()})
		if err != nil {
			return err
		}
		res.JSON = string(payload)
		return nil
	}
}
