package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// ResolveWithin joins the provided path elements under the given base directory and ensures
// the resulting path never traverses outside of that base. The returned path is absolute.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	joined := filepath.Join(append([]string{cleanBase}, elems...)...)
	target, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", domainerrors.ErrPathEscape, target)
	}

	return target, nil
}

// ValidateSegment rejects names that cannot be used as a single directory or file name.
func ValidateSegment(name string) error {
	switch name {
	case "":
		return errors.New("path segment is required")
	case ".", "..":
		return fmt.Errorf("path segment %q is reserved", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", domainerrors.ErrPathEscape, name)
	}
	return nil
}
