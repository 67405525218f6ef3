package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
)

const envHome = "PAGEFLOW_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the pageflow home directory.
//
// Resolution order:
//  1. $PAGEFLOW_HOME environment variable (~ expanded)
//  2. ~/.pageflow
//  3. Current working directory
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogsDir returns <home>/logs.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		if expanded, err := homedir.Expand(env); err == nil {
			return expanded
		}
		return env
	}

	if dir, err := homedir.Dir(); err == nil && dir != "" {
		return filepath.Join(dir, ".pageflow")
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
