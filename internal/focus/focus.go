// Package focus reports whether a terminal window has keyboard focus.
package focus

import "github.com/Digni/winterm/internal/winapi"

// WindowFocused reports whether hwnd, or a window it owns, is the foreground
// window. Returns false if detection fails.
func WindowFocused(sys winapi.System, hwnd winapi.HWND) bool {
	if hwnd == 0 {
		return false
	}
	fg := sys.ForegroundWindow()
	if fg == 0 {
		return false
	}
	if fg == hwnd {
		return true
	}
	// Dialogs and popups of the terminal are owned by its main window.
	return sys.Ancestor(fg, winapi.GARootOwner) == hwnd
}
