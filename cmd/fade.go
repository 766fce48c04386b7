package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Digni/winterm/internal/fade"
	"github.com/Digni/winterm/internal/logging"
	"github.com/spf13/cobra"
)

var fadeCmd = &cobra.Command{
	Use:       "fade [out|in|both]",
	Short:     "Fade the terminal window",
	Long:      `Fade the terminal window out, back in, or out and then in (the default).`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"out", "in", "both"},
	RunE: func(cmd *cobra.Command, args []string) error {
		modes, err := parseFadeModes(args)
		if err != nil {
			return err
		}

		loadResult, err := loadConfigForCommand()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		printConfigSourceDetails(cmd, loadResult.Source)
		cfg := loadResult.Config
		initializeCommandLogging(cmd.ErrOrStderr(), cfg.Logging, logging.RoleCLI)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sys := commandSystem()
		tracker := newTracker(sys, cfg)
		if err := tracker.Refresh(ctx); err != nil {
			return err
		}
		id, _ := tracker.Identity()

		for _, mode := range modes {
			if err := fadeWindow(ctx, sys, id.Window, mode); err != nil {
				return err
			}
			slog.Debug("fade.completed", append([]any{"mode", mode.String()}, identityFields(id)...)...)
		}
		return nil
	},
}

func parseFadeModes(args []string) ([]fade.Mode, error) {
	if len(args) == 0 {
		return []fade.Mode{fade.Out, fade.In}, nil
	}
	switch args[0] {
	case "out":
		return []fade.Mode{fade.Out}, nil
	case "in":
		return []fade.Mode{fade.In}, nil
	case "both":
		return []fade.Mode{fade.Out, fade.In}, nil
	default:
		return nil, fmt.Errorf("unknown fade mode %q", args[0])
	}
}

func init() {
	rootCmd.AddCommand(fadeCmd)
}
