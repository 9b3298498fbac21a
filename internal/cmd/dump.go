package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/usbtopo/apitypes"
	"github.com/Alia5/usbtopo/internal/server/api/handler"
	"github.com/Alia5/usbtopo/topology"
	"github.com/Alia5/usbtopo/virtualbus"
)

// Dump prints the resolved descriptor tree of a topology file.
type Dump struct {
	File   string `arg:"" type:"existingfile" help:"Topology file (.yaml, .yml or .toml)"`
	Format string `help:"Output format" enum:"yaml,json" default:"yaml" short:"f"`
	Raw    bool   `help:"Include raw descriptor bytes in hex"`

	out io.Writer
}

type dumpDocument struct {
	Fingerprint string                  `json:"fingerprint" yaml:"fingerprint"`
	Devices     []apitypes.DeviceDetail `json:"devices" yaml:"devices"`
}

// Run is called by kong when the dump command is executed.
func (d *Dump) Run(logger *slog.Logger) error {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	l := topology.NewLoader(virtualbus.New(logger), logger)
	defer l.Unload()
	if err := l.LoadFile(d.File); err != nil {
		return err
	}

	doc := dumpDocument{Fingerprint: l.Backend().Fingerprint()}
	for _, dev := range l.Backend().Devices() {
		doc.Devices = append(doc.Devices, handler.Describe(dev, d.Raw))
	}

	switch d.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", d.Format)
	}
}
