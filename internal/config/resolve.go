package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type SourceType string

const (
	SourceEnvironment SourceType = "environment"
	SourceConfigFile  SourceType = "config_file"
	SourceDefaults    SourceType = "defaults"
)

// SourceSelection records which config source won and why.
type SourceSelection struct {
	Type   SourceType
	Path   string
	Reason string
}

type resolveFileState int

const (
	resolveFilePresent resolveFileState = iota
	resolveFileMissing
	resolveFileUnreadable
)

type ResolveOptions struct {
	EnvPath       string
	PreferredPath string
	inspectFile   func(path string) (resolveFileState, error)
}

func inspectConfigFile(path string) (resolveFileState, error) {
	f, err := os.Open(path)
	if err == nil {
		_ = f.Close()
		return resolveFilePresent, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return resolveFileMissing, nil
	}

	if errors.Is(err, fs.ErrPermission) {
		return resolveFileUnreadable, nil
	}

	return resolveFileMissing, fmt.Errorf("inspect config file %q: %w", path, err)
}

func resolveDefaultPath(preferredOverride string) (string, error) {
	if preferredOverride != "" {
		return preferredOverride, nil
	}

	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	return path, nil
}

// ResolveConfigSource returns a single deterministic config winner without parsing.
// An explicit environment path always wins; a missing file there is reported
// by the loader rather than silently replaced by defaults.
func ResolveConfigSource(opts ResolveOptions) (SourceSelection, error) {
	if opts.EnvPath != "" {
		return SourceSelection{Type: SourceEnvironment, Path: opts.EnvPath, Reason: "selected by " + EnvConfigPath}, nil
	}

	inspect := opts.inspectFile
	if inspect == nil {
		inspect = inspectConfigFile
	}

	path, err := resolveDefaultPath(opts.PreferredPath)
	if err != nil {
		return SourceSelection{}, err
	}

	state, err := inspect(path)
	if err != nil {
		return SourceSelection{}, err
	}

	switch state {
	case resolveFilePresent:
		return SourceSelection{Type: SourceConfigFile, Path: path, Reason: "selected config path"}, nil
	case resolveFileUnreadable:
		return SourceSelection{Type: SourceDefaults, Path: path, Reason: "config path is unreadable, using defaults"}, nil
	}

	return SourceSelection{Type: SourceDefaults, Reason: "no config file or environment path found"}, nil
}
