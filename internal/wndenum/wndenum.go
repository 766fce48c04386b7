// Package wndenum searches the top-level windows of the desktop.
package wndenum

import (
	"fmt"

	"github.com/Digni/winterm/internal/winapi"
)

// Match reports whether a window created by thread tid of process pid is the
// one searched for.
type Match func(tid, pid uint32) bool

// ByThread matches windows created by thread tid.
func ByThread(tid uint32) Match {
	return func(t, _ uint32) bool { return tid != 0 && t == tid }
}

// ByProcess matches windows owned by process pid.
func ByProcess(pid uint32) Match {
	return func(t, p uint32) bool { return pid != 0 && t != 0 && p == pid }
}

// Find returns the first top-level window accepted by match, in enumeration
// order, or 0 if none is. Enumeration stops at the first match.
func Find(sys winapi.System, match Match) (winapi.HWND, error) {
	var found winapi.HWND
	err := sys.EnumWindows(func(hwnd winapi.HWND) bool {
		tid, pid := sys.WindowThreadProcessID(hwnd)
		if tid == 0 || !match(tid, pid) {
			return true
		}
		found = hwnd
		return false
	})
	if err != nil {
		return 0, fmt.Errorf("enumerate windows: %w", err)
	}
	return found, nil
}
