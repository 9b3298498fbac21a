package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/usbtopo/apitypes"
	"github.com/Alia5/usbtopo/internal/server/api"
)

// Ping returns a handler for the "ping" endpoint: server identity and
// version.
func Ping(version string) api.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(_ *api.Request, res *api.Response, _ *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "usbtopo", Version: version})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
