package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/Digni/winterm/internal/config"
	"github.com/Digni/winterm/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	watchInterval time.Duration
	watchNoFade   bool
	watchCount    int
)

// watchWait blocks for d or until ctx is done.
var watchWait = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var outputIsTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-resolve the terminal window periodically",
	Long: `Resolve the terminal window, print it, optionally fade it, then wait and
resolve again. Drag the tab into another Windows Terminal window between
iterations to see the identity follow it.

The loop stops on Ctrl+C, after --count iterations, or with a non-zero exit
status as soon as resolution fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadResult, err := loadConfigForCommand()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		printConfigSourceDetails(cmd, loadResult.Source)
		cfg := loadResult.Config
		initializeCommandLogging(cmd.ErrOrStderr(), cfg.Logging, logging.RoleWatch)

		interval := cfg.Watch.Interval
		if watchInterval > 0 {
			interval = watchInterval
		}
		fadeEnabled := cfg.Watch.Fade && !watchNoFade

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt)
		defer stop()

		return runWatch(ctx, cmd.OutOrStdout(), interval, fadeEnabled, watchCount, cfg)
	},
}

func runWatch(ctx context.Context, out io.Writer, interval time.Duration, fadeEnabled bool, count int, cfg config.Config) error {
	sys := commandSystem()
	tracker := newTracker(sys, cfg)
	clearScreen := outputIsTerminal(out)

	for i := 1; count <= 0 || i <= count; i++ {
		opID := logging.NewOperationID()
		if err := tracker.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Error("watch.resolve.failed", "op_id", opID, "iteration", i, "error", err)
			return err
		}
		id, _ := tracker.Identity()
		slog.Info("watch.resolve.completed", append([]any{"op_id", opID, "iteration", i}, identityFields(id)...)...)

		if clearScreen {
			fmt.Fprint(out, "\x1b[H\x1b[2J")
		}
		fmt.Fprintf(out, "[%d] %s\n", i, time.Now().Format("15:04:05"))
		renderIdentity(out, id, tracker.Focused(), false)

		if fadeEnabled {
			if err := fadeOutIn(ctx, sys, id.Window); err != nil && ctx.Err() == nil {
				slog.Warn("watch.fade.failed", "op_id", opID, "error", err)
			}
		}

		if count > 0 && i == count {
			break
		}
		if err := watchWait(ctx, interval); err != nil {
			return nil
		}
	}
	return nil
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Time between resolutions (default from config)")
	watchCmd.Flags().BoolVar(&watchNoFade, "no-fade", false, "Do not fade the window after each resolution")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Stop after this many iterations (0 runs until interrupted)")

	rootCmd.AddCommand(watchCmd)
}
