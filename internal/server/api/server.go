// Package api serves read access to a loaded topology over a line protocol:
// each request is "<path> [args...]\n" and is answered by one JSON line.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// Server is the TCP query API.
type Server struct {
	addr   string
	config ServerConfig
	logger *slog.Logger
	router *Router

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server listening on addr once started. Register handlers on
// Router before calling Start.
func New(addr string, config ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		config: config,
		logger: logger,
		router: NewRouter(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (a *Server) Router() *Router { return a.router }

func (a *Server) Config() ServerConfig { return a.config }

// Addr returns the bound address once started, the configured one before.
func (a *Server) Addr() string {
	if a.ln != nil {
		return a.ln.Addr().String()
	}
	return a.addr
}

// Start listens on the configured address and serves in the background.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("API listening", "addr", ln.Addr().String())
	a.wg.Add(1)
	go a.serve()
	return nil
}

// Close stops accepting, cancels open connections and waits for them.
func (a *Server) Close() {
	a.cancel()
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.wg.Wait()
}

func (a *Server) serve() {
	defer a.wg.Done()
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("API server stopped")
			} else {
				a.logger.Error("API accept error", "error", err)
			}
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleConn(c)
		}()
	}
}

func writeError(w io.Writer, msg string) {
	problem, _ := json.Marshal(map[string]string{"error": msg})
	fmt.Fprintf(w, "%s\n", problem)
}

func writeOK(w io.Writer, payload string) {
	fmt.Fprintf(w, "%s\n", payload)
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connCtx, connCancel := context.WithCancel(a.ctx)
	defer connCancel()
	stop := context.AfterFunc(connCtx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	logger := a.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	for {
		if a.config.ConnectionTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(a.config.ConnectionTimeout))
		}
		line, err := r.ReadString('\n')
		if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF), connCtx.Err() != nil:
			case errors.As(err, &ne) && ne.Timeout():
				logger.Debug("api connection idle, closing")
			default:
				logger.Error("read api line", "error", err)
			}
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		path := strings.ToLower(fields[0])
		logger.Debug("api cmd", "cmd", strings.TrimSpace(line))

		h, params := a.router.Match(path)
		if h == nil {
			logger.Warn("api unknown path", "path", path)
			writeError(conn, "unknown path")
			continue
		}
		req := &Request{Ctx: connCtx, Params: params, Args: fields[1:]}
		res := &Response{}
		if err := h(req, res, logger); err != nil {
			logger.Warn("api handler error", "path", path, "error", err)
			writeError(conn, err.Error())
			continue
		}
		writeOK(conn, res.JSON)
	}
}
