package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "seca-scan"

// getDataDir returns the appropriate data directory for the current OS
// following the XDG Base Directory layout on Linux/Unix. It does not create it.
func getDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// Windows: %LOCALAPPDATA%\seca-scan
		baseDir := os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		return filepath.Join(baseDir, appDirName), nil

	case "darwin":
		// macOS: ~/Library/Application Support/seca-scan
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		return filepath.Join(homeDir, "Library", "Application Support", appDirName), nil

	default:
		// Priority: $XDG_DATA_HOME/seca-scan > ~/.local/share/seca-scan
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, appDirName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".local", "share", appDirName), nil
	}
}

// defaultResultsDir is where --save writes reports when results_dir is not configured.
func defaultResultsDir() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "results"), nil
}
