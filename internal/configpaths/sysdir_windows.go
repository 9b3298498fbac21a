//go:build windows

package configpaths

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// SystemConfigDir returns the directory read first for settings. Elevated
// processes use %ProgramData%\usbtopo.
func SystemConfigDir() (string, error) {
	if windows.GetCurrentProcessToken().IsElevated() {
		if pd := os.Getenv("ProgramData"); pd != "" {
			return filepath.Join(pd, appDir), nil
		}
	}
	return DefaultConfigDir()
}
