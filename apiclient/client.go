// Package apiclient is a client for the usbtopo query API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alia5/usbtopo/apitypes"
)

// Client wraps a Transport with typed request helpers.
type Client struct{ transport *Transport }

// New returns a client for the server listening on addr (host:port).
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport returns a client using t, typically a mock transport.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	line, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](line)
}

// DevicesList lists every device of the served topology.
func (c *Client) DevicesList() (*apitypes.DevicesListResponse, error) {
	return c.DevicesListCtx(context.Background())
}

func (c *Client) DevicesListCtx(ctx context.Context) (*apitypes.DevicesListResponse, error) {
	line, err := c.transport.DoCtx(ctx, "devices/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DevicesListResponse](line)
}

// Device returns the resolved descriptor tree of the device at bus/address.
func (c *Client) Device(bus, address uint8) (*apitypes.DeviceDetail, error) {
	return c.DeviceCtx(context.Background(), bus, address)
}

func (c *Client) DeviceCtx(ctx context.Context, bus, address uint8) (*apitypes.DeviceDetail, error) {
	params := map[string]string{
		"bus":     fmt.Sprintf("%d", bus),
		"address": fmt.Sprintf("%d", address),
	}
	line, err := c.transport.DoCtx(ctx, "device/{bus}/{address}", nil, params)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DeviceDetail](line)
}

// TopologyReload asks the server to reload its topology file.
func (c *Client) TopologyReload() (*apitypes.TopologyReloadResponse, error) {
	return c.TopologyReloadCtx(context.Background())
}

func (c *Client) TopologyReloadCtx(ctx context.Context) (*apitypes.TopologyReloadResponse, error) {
	line, err := c.transport.DoCtx(ctx, "topology/reload", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.TopologyReloadResponse](line)
}

func parse[T any](line string) (*T, error) {
	if line == "" {
		return nil, errors.New("empty response")
	}
	var ae apitypes.ApiError
	if err := json.Unmarshal([]byte(line), &ae); err == nil && ae.Error != "" {
		return nil, errors.New(ae.Error)
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
