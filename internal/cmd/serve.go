package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/usbtopo/internal/server/api"
	"github.com/Alia5/usbtopo/internal/server/api/handler"
	"github.com/Alia5/usbtopo/topology"
	"github.com/Alia5/usbtopo/virtualbus"
)

// Serve loads a topology and answers queries about it until interrupted.
type Serve struct {
	File      string           `arg:"" type:"existingfile" help:"Topology file (.yaml, .yml or .toml)"`
	APIServer api.ServerConfig `embed:"" prefix:"api."`

	// Version is reported by ping.
	Version string `kong:"-"`
}

// Run is called by kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.run(ctx, logger, nil)
}

// run serves until ctx is done. started, when set, receives the bound
// address once the API is listening.
func (s *Serve) run(ctx context.Context, logger *slog.Logger, started func(addr string)) error {
	loader := topology.NewLoader(virtualbus.New(logger), logger)
	defer loader.Unload()
	if err := loader.LoadFile(s.File); err != nil {
		return err
	}

	srv := api.New(s.APIServer.Addr, s.APIServer, logger)
	r := srv.Router()
	r.Register("ping", handler.Ping(s.Version))
	r.Register("devices/list", handler.DevicesList(loader.Backend()))
	r.Register("device/{bus}/{address}", handler.DeviceGet(loader.Backend()))
	r.Register("topology/reload", handler.TopologyReload(loader, s.File))
	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("Serving virtual USB topology", "file", s.File, "addr", srv.Addr(), "devices", loader.Backend().Len())
	if started != nil {
		started(srv.Addr())
	}

	<-ctx.Done()
	logger.Info("Shutting down query API")
	srv.Close()
	return nil
}
