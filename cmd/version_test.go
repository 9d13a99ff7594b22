package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		_ = versionCmd.Flags().Set("verbose", "false")
	})

	versionCmd.Run(versionCmd, nil)
	if got := buf.String(); got != "SECA-SCAN version "+Version+"\n" {
		t.Fatalf("unexpected short version: %q", got)
	}

	buf.Reset()
	if err := versionCmd.Flags().Set("verbose", "true"); err != nil {
		t.Fatalf("set verbose: %v", err)
	}
	versionCmd.Run(versionCmd, nil)
	for _, want := range []string{"Git Commit:", "Go Version:", "OS/Arch:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected verbose output to contain %q:\n%s", want, buf.String())
		}
	}
}
