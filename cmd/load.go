package cmd

import (
	"fmt"

	"github.com/Digni/winterm/internal/config"
	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/winterm"
	"github.com/spf13/cobra"
)

var loadConfigForCommand = config.Load

// commandSystem is the OS binding every command resolves against.
var commandSystem = winapi.Native

func printConfigSourceDetails(cmd *cobra.Command, source config.SourceSelection) {
	if source.Path == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "config: %s (%s)\n", source.Type, source.Reason)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "config: %s %s (%s)\n", source.Type, source.Path, source.Reason)
}

// newTracker builds a Tracker tuned by cfg.
func newTracker(sys winapi.System, cfg config.Config) *winterm.Tracker {
	objectType := uint8(handlescan.JobObjectType)
	if cfg.Scan.JobTypeIndex >= 0 && cfg.Scan.JobTypeIndex <= 255 {
		objectType = uint8(cfg.Scan.JobTypeIndex)
	}

	return winterm.New(
		winterm.WithSystem(sys),
		winterm.WithHostProcess(cfg.Resolver.HostProcess),
		winterm.WithExpectedTerminal(cfg.Resolver.ExpectedTerminal),
		winterm.WithPolling(cfg.Resolver.PollInterval, cfg.Resolver.PollAttempts),
		winterm.WithScan(cfg.Scan.InitialBufferBytes, cfg.Scan.BufferMarginBytes, cfg.Scan.MaxAttempts, objectType),
	)
}
