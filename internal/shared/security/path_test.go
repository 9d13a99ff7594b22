package security

import (
	"errors"
	"path/filepath"
	"testing"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

func TestResolveWithin(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		elems   []string
		want    string
		wantErr bool
	}{
		{name: "nested", elems: []string{"scan-1", "report.json"}, want: filepath.Join(base, "scan-1", "report.json")},
		{name: "base itself", elems: nil, want: base},
		{name: "dot segments inside base", elems: []string{"a", "..", "b"}, want: filepath.Join(base, "b")},
		{name: "escape", elems: []string{"..", "etc", "passwd"}, wantErr: true},
		{name: "parent", elems: []string{".."}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(base, tt.elems...)
			if tt.wantErr {
				if !errors.Is(err, domainerrors.ErrPathEscape) {
					t.Fatalf("ResolveWithin(%v) error = %v, want ErrPathEscape", tt.elems, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveWithin(%v) unexpected error: %v", tt.elems, err)
			}
			if got != tt.want {
				t.Errorf("ResolveWithin(%v) = %s, want %s", tt.elems, got, tt.want)
			}
		})
	}

	if _, err := ResolveWithin(""); err == nil {
		t.Fatal("expected error for empty base")
	}
}

func TestValidateSegment(t *testing.T) {
	for _, name := range []string{"5d1c2e0a-8a5e-4b8e-9a76-6f0f2d1f1a77", "report.json"} {
		if err := ValidateSegment(name); err != nil {
			t.Errorf("ValidateSegment(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := ValidateSegment(name); err == nil {
			t.Errorf("ValidateSegment(%q) expected error", name)
		}
	}
}
