// Package ui provides the Bubble Tea TUI for marketmon.
package ui

import "github.com/abelbrown/marketmon/internal/controller"

// StateChanged carries a controller snapshot into the program.
// Snapshots older than the one already rendered are ignored.
type StateChanged struct {
	State controller.State
}
