// Package config defines the usbtopo command line and its config file
// layout.
package config

import (
	"github.com/Alia5/usbtopo/internal/cmd"
)

type Log struct {
	Level string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"USBTOPO_LOG_LEVEL"`
	File  string `help:"Log file path (default: none; logs only to console)" env:"USBTOPO_LOG_FILE"`
}

// CLI is the root command structure for kong.
type CLI struct {
	Config string `help:"Config file (JSON, YAML or TOML)" type:"path" env:"USBTOPO_CONFIG"`
	Log    `embed:"" prefix:"log."`

	Check cmd.Check `cmd:"" help:"Load and validate topology files"`
	Dump  cmd.Dump  `cmd:"" help:"Print the resolved topology of a file"`
	Serve cmd.Serve `cmd:"" help:"Load a topology and serve it over the query API"`
	List  cmd.List  `cmd:"" help:"List the devices of a running server"`
}
