package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at an explicit
// config file.
const EnvConfigPath = "WINTERM_CONFIG"

type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Scan     ScanConfig     `yaml:"scan"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ResolverConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
	// HostProcess is the base name of the pseudo-console host.
	HostProcess string `yaml:"host_process"`
	// ExpectedTerminal is the base name a pseudo-console terminal must have.
	// Empty accepts any terminal.
	ExpectedTerminal string `yaml:"expected_terminal"`
}

type ScanConfig struct {
	InitialBufferBytes uint32 `yaml:"initial_buffer_bytes"`
	BufferMarginBytes  uint32 `yaml:"buffer_margin_bytes"`
	MaxAttempts        int    `yaml:"max_attempts"`
	JobTypeIndex       int    `yaml:"job_type_index"`
}

type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Fade     bool          `yaml:"fade"`
}

type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Resolver: ResolverConfig{
			PollInterval:     5 * time.Millisecond,
			PollAttempts:     200,
			HostProcess:      "OpenConsole",
			ExpectedTerminal: "WindowsTerminal",
		},
		Scan: ScanConfig{
			InitialBufferBytes: 0x200000,
			BufferMarginBytes:  0x1000,
			MaxAttempts:        16,
			JobTypeIndex:       7,
		},
		Watch: WatchConfig{
			Interval: 5 * time.Second,
			Fade:     true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        defaultLogDir(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(configDir, "winterm"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadResult is a parsed config together with where it came from.
type LoadResult struct {
	Config Config
	Source SourceSelection
}

// Load resolves the config source from the environment and the default path,
// then parses and validates it.
func Load() (LoadResult, error) {
	return LoadWithOptions(ResolveOptions{EnvPath: os.Getenv(EnvConfigPath)})
}

// LoadWithOptions is Load with explicit source resolution options.
func LoadWithOptions(opts ResolveOptions) (LoadResult, error) {
	source, err := ResolveConfigSource(opts)
	if err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{Config: DefaultConfig(), Source: source}
	if source.Type == SourceDefaults {
		return result, nil
	}

	data, err := os.ReadFile(source.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && source.Type == SourceEnvironment {
			return result, fmt.Errorf("config file from %s not found: %s", EnvConfigPath, source.Path)
		}
		return result, fmt.Errorf("read config: %w", err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return result, err
	}
	if err := Validate(cfg); err != nil {
		return result, fmt.Errorf("invalid config %s: %w", source.Path, err)
	}

	result.Config = cfg
	return result, nil
}

// LoadFromBytes parses YAML over the defaults. Keys absent from data keep
// their default values.
func LoadFromBytes(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Logging.Dir = normalizeLoggingDir(cfg.Logging.Dir)
	return cfg, nil
}

// Init creates a default config file if one doesn't exist.
func Init() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return initAt(path)
}

func initAt(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists at %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}
