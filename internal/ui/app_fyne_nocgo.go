//go:build fyne && !cgo

package ui

import "fmt"

// Run reports that the Fyne editor needs cgo for OpenGL. Compiled for
// -tags fyne builds with cgo disabled.
func Run(_ string) error {
	return fmt.Errorf("the bubble editor requires cgo (OpenGL). Enable cgo and install a C toolchain, then run: CGO_ENABLED=1 go run -tags fyne ./cmd/gocomicbubbles ui [workspaceDir]")
}
