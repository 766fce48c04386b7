package config

import (
	"fmt"
	"strings"
)

// Validate rejects values the resolver cannot work with.
func Validate(cfg Config) error {
	if cfg.Resolver.PollInterval <= 0 {
		return fmt.Errorf("resolver.poll_interval must be greater than 0")
	}
	if cfg.Resolver.PollAttempts <= 0 {
		return fmt.Errorf("resolver.poll_attempts must be greater than 0")
	}
	if strings.TrimSpace(cfg.Resolver.HostProcess) == "" {
		return fmt.Errorf("resolver.host_process is required")
	}

	if cfg.Scan.InitialBufferBytes == 0 {
		return fmt.Errorf("scan.initial_buffer_bytes must be greater than 0")
	}
	if cfg.Scan.MaxAttempts <= 0 {
		return fmt.Errorf("scan.max_attempts must be greater than 0")
	}
	if cfg.Scan.JobTypeIndex < 0 || cfg.Scan.JobTypeIndex > 255 {
		return fmt.Errorf("scan.job_type_index must be between 0 and 255")
	}

	if cfg.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than 0")
	}

	if err := validateLogging(cfg.Logging); err != nil {
		return err
	}

	return nil
}

func validateLogging(logging LoggingConfig) error {
	switch strings.ToLower(logging.Level) {
	case "error", "warn", "info", "debug":
		// valid
	default:
		return fmt.Errorf("logging.level must be one of error, warn, info, debug")
	}

	if logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be greater than 0")
	}

	if logging.MaxBackups <= 0 {
		return fmt.Errorf("logging.max_backups must be greater than 0")
	}

	if strings.TrimSpace(logging.Dir) == "" {
		return fmt.Errorf("logging.dir is required")
	}

	return nil
}
