package core

import (
	"cmp"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const EnvConfigFile = "CPULOAD_CONFIG"

// DefaultConfigFile returns config file used when none is given explicitly.
// File might not exist.
func DefaultConfigFile() string {
	return cmp.Or(
		os.Getenv(EnvConfigFile),
		filepath.Join(xdg.ConfigHome, "cpuload", "config.jsonnet"),
	)
}
