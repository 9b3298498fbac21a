// Package configpaths lists the files the usbtopo CLI reads its settings from.
package configpaths

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "usbtopo"

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

// ConfigCandidatePaths returns, per format, the config files to try in
// priority order. An explicit userCfg is the only candidate of its format
// and suppresses the default locations.
func ConfigCandidatePaths(userCfg string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if userCfg != "" {
		switch strings.ToLower(filepath.Ext(userCfg)) {
		case ".json":
			return []string{userCfg}, nil, nil
		case ".toml":
			return nil, nil, []string{userCfg}
		default:
			return nil, []string{userCfg}, nil
		}
	}

	var dirs []string
	if dir, err := SystemConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir, err := DefaultConfigDir(); err == nil && (len(dirs) == 0 || dirs[0] != dir) {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		base := filepath.Join(dir, "config")
		if dir == "." {
			base = appDir
		}
		jsonPaths = append(jsonPaths, base+".json")
		yamlPaths = append(yamlPaths, base+".yaml", base+".yml")
		tomlPaths = append(tomlPaths, base+".toml")
	}
	return jsonPaths, yamlPaths, tomlPaths
}
