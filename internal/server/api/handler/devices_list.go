package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/usbtopo/apitypes"
	"github.com/Alia5/usbtopo/internal/server/api"
	"github.com/Alia5/usbtopo/virtualbus"
)

// DevicesList returns a handler listing every device of the backend in
// registration order.
func DevicesList(b *virtualbus.Backend) api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, _ *slog.Logger) error {
		devs := b.Devices()
		out := make([]apitypes.Device, 0, len(devs))
		for _, d := range devs {
			out = append(out, Summarize(d))
		}
		payload, err := json.Marshal(apitypes.DevicesListResponse{Devices: out, Fingerprint: b.Fingerprint()})
		if err != nil {
			return err
		}
		res.JSON = string(payload)
		return nil
	}
}
