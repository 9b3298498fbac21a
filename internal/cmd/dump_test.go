package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	th "github.com/Alia5/usbtopo/internal/testing"
)

func TestDumpJSON(t *testing.T) {
	var out bytes.Buffer
	d := &Dump{File: th.WriteTopology(t, "two.yaml", th.TwoDevices), Format: "json", out: &out}
	require.NoError(t, d.Run(slog.Default()))

	var doc dumpDocument
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Len(t, doc.Fingerprint, 64)
	require.Len(t, doc.Devices, 2)
	assert.Equal(t, "FTDI", doc.Devices[0].Manufacturer)
	assert.Empty(t, doc.Devices[0].Raw)

	ifaces := doc.Devices[1].Configurations[0].Interfaces
	require.Len(t, ifaces, 2)
	assert.Equal(t, "0x83", ifaces[1].Endpoints[0].Address)
	assert.Equal(t, uint16(64), ifaces[1].Endpoints[0].MaxPacketSize)
}

func TestDumpYAMLRaw(t *testing.T) {
	var out bytes.Buffer
	d := &Dump{File: th.WriteTopology(t, "two.yaml", th.TwoDevices), Format: "yaml", Raw: true, out: &out}
	require.NoError(t, d.Run(slog.Default()))

	var doc struct {
		Devices []struct {
			Bus            uint8  `yaml:"bus"`
			Raw            string `yaml:"raw"`
			Configurations []struct {
				Attributes string `yaml:"attributes"`
				MaxPower   int    `yaml:"maxpower"`
				Raw        string `yaml:"raw"`
			} `yaml:"configurations"`
		} `yaml:"devices"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Devices, 2)
	assert.Equal(t, uint8(2), doc.Devices[1].Bus)
	assert.Equal(t, "12010002", doc.Devices[0].Raw[:8])
	cfg := doc.Devices[0].Configurations[0]
	assert.Equal(t, "0xc0", cfg.Attributes)
	assert.Equal(t, 100, cfg.MaxPower)
	// 9 + 9 + 7 + 7 bytes
	assert.Len(t, cfg.Raw, 64)
}

func TestDumpInvalidTopology(t *testing.T) {
	var out bytes.Buffer
	d := &Dump{File: th.WriteTopology(t, "bad.yaml", "devices: [{}]\n"), out: &out}
	assert.Error(t, d.Run(slog.Default()))
	assert.Empty(t, out.String())
}
