// Package procinfo opens processes with minimal rights and reports what
// they are.
package procinfo

import (
	"path/filepath"
	"strings"

	"github.com/Digni/winterm/internal/native"
	"github.com/Digni/winterm/internal/winapi"
)

// Open opens pid with the requested access and hands ownership of the handle
// to the returned guard.
func Open(sys winapi.System, pid uint32, access uint32) (*native.Guard[winapi.Handle], error) {
	h, err := sys.OpenProcess(access, pid)
	if err != nil {
		return nil, err
	}
	return native.NewHandle(sys, h), nil
}

// BaseName returns the executable name of the process behind h without
// directory or extension. It returns "" if the image path cannot be queried,
// which is common for processes owned by another user.
func BaseName(sys winapi.System, h winapi.Handle) string {
	if h == 0 {
		return ""
	}
	path, err := sys.QueryFullProcessImageName(h)
	if err != nil {
		return ""
	}
	return stripImagePath(path)
}

func stripImagePath(path string) string {
	// Image paths are Windows paths regardless of the build platform.
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// NameOf opens pid just long enough to read its base name.
func NameOf(sys winapi.System, pid uint32) string {
	g, err := Open(sys, pid, winapi.ProcessQueryLimitedInformation)
	if err != nil {
		return ""
	}
	defer g.Release()
	return BaseName(sys, g.Raw())
}
