//go:build !windows

package configpaths

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SystemConfigDir returns the directory read first for settings. Root uses
// /etc/usbtopo, everyone else their user directory.
func SystemConfigDir() (string, error) {
	if unix.Geteuid() == 0 {
		return filepath.Join("/etc", appDir), nil
	}
	return DefaultConfigDir()
}
