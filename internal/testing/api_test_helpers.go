// Package testing holds helpers shared by the server and command tests.
package testing

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/Alia5/usbtopo/internal/server/api"
	"github.com/Alia5/usbtopo/topology"
	"github.com/Alia5/usbtopo/virtualbus"
)

// TwoDevices is a small topology with one device on each of two buses.
const TwoDevices = `
devices:
  - bus: 1
    address: 1
    speed: high
    serial: FT1ABC1
    descriptor: {vid: 0x403, pid: 0x6014, manufacturer: FTDI, product: FT232H}
    configurations:
      - descriptor: {attributes: [selfpowered], maxpower: 100}
  - bus: 2
    address: 5
    noaccess: true
    descriptor: {vid: 0x403, pid: 0x6010, usb: 0x110}
    configurations:
      - interfaces:
          - repeat: 2
`

// WriteTopology writes content to a file in a temporary directory and
// returns its path. name picks the extension and therefore the format.
func WriteTopology(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write topology: %v", err)
	}
	return path
}

// NewLoader returns a loader over a fresh backend, unloaded at test end.
// A non-empty path is loaded right away.
func NewLoader(t *testing.T, path string) *topology.Loader {
	t.Helper()
	l := topology.NewLoader(virtualbus.New(slog.Default()), slog.Default())
	t.Cleanup(l.Unload)
	if path != "" {
		if err := l.LoadFile(path); err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
	}
	return l
}

// StartAPIServer starts an API server on a free loopback port and lets
// register add the handlers under test. It returns the address and a
// function stopping the server.
func StartAPIServer(t *testing.T, register func(r *api.Router)) (addr string, done func()) {
	t.Helper()
	srv := api.New("127.0.0.1:0", api.ServerConfig{}, slog.Default())
	if register != nil {
		register(srv.Router())
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}
	return srv.Addr(), srv.Close
}

// ExecCmd sends one raw command line and returns the response line without
// its newline.
func ExecCmd(t *testing.T, addr, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()
	if _, err := fmt.Fprintf(c, "%s\n", cmd); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read failed: %v", err)
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line
}
