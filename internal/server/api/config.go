package api

import "time"

// ServerConfig is the query API section of the serve command.
type ServerConfig struct {
	Addr              string        `help:"Query API listen address" default:"localhost:3250" env:"USBTOPO_API_ADDR"`
	ConnectionTimeout time.Duration `help:"Idle time after which a client connection is closed" default:"30s" env:"USBTOPO_API_TIMEOUT"`
}
