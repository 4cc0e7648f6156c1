package common

import "errors"

// ErrModulePaused is returned by Guard when the named module is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the pause switch for a vault module. The daemon wires a
// concrete view at startup; engines treat a nil view as "never paused".
type PauseView interface {
	IsPaused(module string) bool
}

// Guard is the shared pause check run at the top of every mutating engine
// operation.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
