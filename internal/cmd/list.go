package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Alia5/usbtopo/apiclient"
)

// List prints the devices of a running usbtopo server.
type List struct {
	Addr    string        `help:"Query API address" default:"localhost:3250" env:"USBTOPO_API_ADDR"`
	Timeout time.Duration `help:"Request timeout" default:"5s"`

	out io.Writer
}

// Run is called by kong when the list command is executed.
func (l *List) Run(logger *slog.Logger) error {
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.Timeout)
	defer cancel()

	resp, err := apiclient.New(l.Addr).DevicesListCtx(ctx)
	if err != nil {
		return fmt.Errorf("query %s: %w", l.Addr, err)
	}
	logger.Debug("listed devices", "addr", l.Addr, "count", len(resp.Devices))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tADDR\tVID:PID\tSPEED\tCONFIGS\tACCESS")
	for _, d := range resp.Devices {
		access := "rw"
		if d.NoAccess {
			access = "none"
		}
		fmt.Fprintf(tw, "%03d\t%03d\t%s:%s\t%s\t%d\t%s\n", d.Bus, d.Address, strings.TrimPrefix(d.Vid, "0x"), strings.TrimPrefix(d.Pid, "0x"), d.Speed, d.Configurations, access)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "fingerprint %s\n", resp.Fingerprint)
	return nil
}
