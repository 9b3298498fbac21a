package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Alia5/usbtopo/topology"
	"github.com/Alia5/usbtopo/virtualbus"
)

// Check loads every file and reports its device count and fingerprint.
type Check struct {
	Files    []string `arg:"" type:"existingfile" help:"Topology files (.yaml, .yml or .toml)"`
	Parallel int      `help:"Files checked at once (0: one per CPU)" default:"0"`

	out io.Writer
}

type checkResult struct {
	devices     int
	fingerprint string
	err         error
}

// Run is called by kong when the check command is executed. Files are
// loaded concurrently, each into its own backend; the report keeps the
// order of the arguments.
func (c *Check) Run(logger *slog.Logger) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	limit := c.Parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]checkResult, len(c.Files))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, f := range c.Files {
		g.Go(func() error {
			results[i] = checkFile(f, logger)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, f := range c.Files {
		r := results[i]
		if r.err != nil {
			logger.Error("topology check failed", "file", f, "error", r.err)
			fmt.Fprintf(out, "%s: FAIL: %v\n", f, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", f, r.err))
			continue
		}
		fmt.Fprintf(out, "%s: OK: %d device(s), fingerprint %s\n", f, r.devices, r.fingerprint)
	}
	return errors.Join(errs...)
}

func checkFile(path string, logger *slog.Logger) checkResult {
	l := topology.NewLoader(virtualbus.New(logger), logger.With("file", path))
	defer l.Unload()
	if err := l.LoadFile(path); err != nil {
		return checkResult{err: err}
	}
	b := l.Backend()
	return checkResult{devices: b.Len(), fingerprint: b.Fingerprint()}
}
