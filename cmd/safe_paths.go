package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	consts "github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/khanhnv2901/seca-scan/internal/shared/security"
)

// resolveReportPath places a saved report at <resultsDir>/<scanID>/<name>.
// Scan IDs are used as directory names, so they must be single path segments.
func resolveReportPath(resultsDir, scanID, name string) (string, error) {
	if err := security.ValidateSegment(scanID); err != nil {
		return "", fmt.Errorf("invalid scan ID: %w", err)
	}
	if err := security.ValidateSegment(name); err != nil {
		return "", fmt.Errorf("invalid report name: %w", err)
	}
	return security.ResolveWithin(resultsDir, scanID, name)
}

func ensureReportPath(resultsDir, scanID, name string) (string, error) {
	path, err := resolveReportPath(resultsDir, scanID, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}
	return path, nil
}

// writeFileAtomic writes data through a temporary file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(consts.DefaultFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
