package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	consts "github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

// setupTestAppContext installs an AppContext backed by a temporary results
// directory and a fresh CLI config. The returned func restores the previous state.
func setupTestAppContext(t *testing.T) func() {
	t.Helper()

	original := globalAppContext
	originalConfig := *cliConfig

	resultsDir := filepath.Join(t.TempDir(), "results")
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}

	*cliConfig = *newCLIConfig()
	globalAppContext = &AppContext{
		Logger:     zaptest.NewLogger(t).Sugar(),
		ResultsDir: resultsDir,
		Config:     cliConfig,
	}

	return func() {
		globalAppContext = original
		*cliConfig = originalConfig
	}
}
