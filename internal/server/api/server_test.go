package api_test

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/usbtopo/internal/server/api"
)

func startServer(t *testing.T, cfg api.ServerConfig) *api.Server {
	t.Helper()
	srv := api.New("127.0.0.1:0", cfg, slog.Default())
	srv.Router().Register("echo/{word}", func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		res.JSON = fmt.Sprintf(`{"word":%q,"args":%d}`, req.Params["word"], len(req.Args))
		return nil
	})
	srv.Router().Register("fail", func(*api.Request, *api.Response, *slog.Logger) error {
		return errors.New("boom")
	})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func TestServerSession(t *testing.T) {
	srv := startServer(t, api.ServerConfig{})
	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()
	r := bufio.NewReader(c)

	exchange := func(line string) string {
		_, err := fmt.Fprintf(c, "%s\n", line)
		require.NoError(t, err)
		resp, err := r.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSuffix(resp, "\n")
	}

	assert.Equal(t, `{"word":"hello","args":2}`, exchange("echo/hello a b"))
	assert.Equal(t, `{"error":"boom"}`, exchange("fail"))
	assert.Equal(t, `{"error":"unknown path"}`, exchange("nope"))
	// blank lines are skipped
	assert.Equal(t, `{"word":"again","args":0}`, exchange("\necho/again"))
}

func TestServerClosesIdleConnections(t *testing.T) {
	srv := startServer(t, api.ServerConfig{ConnectionTimeout: 50 * time.Millisecond})
	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = c.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestServerCloseEndsOpenConnections(t *testing.T) {
	srv := api.New("127.0.0.1:0", api.ServerConfig{}, nil)
	require.NoError(t, srv.Start())
	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		srv.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
