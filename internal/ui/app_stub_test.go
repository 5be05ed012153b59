//go:build !fyne

package ui

import (
	"strings"
	"testing"
)

func TestHeadlessRunExplainsHowToBuildEditor(t *testing.T) {
	for _, dir := range []string{"", t.TempDir()} {
		err := Run(dir)
		if err == nil {
			t.Fatalf("Run(%q) succeeded in a headless build", dir)
		}
		msg := err.Error()
		for _, want := range []string{"UI not built", "-tags fyne", "./cmd/gocomicbubbles ui"} {
			if !strings.Contains(msg, want) {
				t.Fatalf("message %q missing %q", msg, want)
			}
		}
	}
}
