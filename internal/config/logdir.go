package config

import (
	"os"
	"path/filepath"
	"strings"
)

// relativeLogDir is used when no per-user directory can be determined. A
// config that names it explicitly is moved to the per-user directory.
const relativeLogDir = "logs"

type logDirResolverOptions struct {
	getenv       func(string) string
	userCacheDir func() (string, error)
}

func defaultLogDir() string {
	return resolveDefaultLogDir(logDirResolverOptions{})
}

// resolveDefaultLogDir prefers %LOCALAPPDATA%\winterm\Logs. Without it the
// user cache directory is used, which is also what non-Windows builds get.
func resolveDefaultLogDir(opts logDirResolverOptions) string {
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	userCacheDir := opts.userCacheDir
	if userCacheDir == nil {
		userCacheDir = os.UserCacheDir
	}

	if localAppData := strings.TrimSpace(getenv("LOCALAPPDATA")); localAppData != "" {
		return filepath.Join(localAppData, "winterm", "Logs")
	}

	cacheDir, err := userCacheDir()
	if err != nil || strings.TrimSpace(cacheDir) == "" {
		return relativeLogDir
	}
	return filepath.Join(cacheDir, "winterm", "Logs")
}

func normalizeLoggingDir(dir string) string {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return dir
	}
	if filepath.Clean(trimmed) == relativeLogDir {
		return defaultLogDir()
	}
	return dir
}
