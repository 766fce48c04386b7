package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Digni/winterm/internal/fade"
	"github.com/Digni/winterm/internal/logging"
	"github.com/Digni/winterm/internal/procinfo"
	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/winterm"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showFade    bool
	showVerbose bool
)

var describeProcess = procinfo.Describe

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the terminal window hosting this console",
	Long: `Resolve the terminal window once and print its handle, process and thread.

With --fade the window is faded out and back in so you can see which
window was found. With --verbose the terminal process is described in
more detail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		opID := logging.NewOperationID()

		sys := commandSystem()
		tracker := newTracker(sys, cfg)
		if err := tracker.Refresh(ctx); err != nil {
			slog.Error("show.resolve.failed", "op_id", opID, "error", err)
			return err
		}
		id, _ := tracker.Identity()
		slog.Info("show.resolve.completed", append([]any{"op_id", opID}, identityFields(id)...)...)

		renderIdentity(cmd.OutOrStdout(), id, tracker.Focused(), showVerbose)

		if showFade {
			if err := fadeOutIn(ctx, sys, id.Window); err != nil {
				slog.Warn("show.fade.failed", "op_id", opID, "error", err)
			}
		}
		return nil
	},
}

func identityFields(id winterm.Identity) []any {
	return logging.WindowFields(uint64(id.Window), id.PID, id.TID, id.BaseName)
}

func renderIdentity(w io.Writer, id winterm.Identity, focused, verbose bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Window", logging.FormatHWND(uint64(id.Window))})
	t.AppendRow(table.Row{"Process", id.BaseName})
	t.AppendRow(table.Row{"PID", id.PID})
	t.AppendRow(table.Row{"TID", id.TID})
	t.AppendRow(table.Row{"Focused", focused})

	if verbose {
		d, err := describeProcess(id.PID)
		if err != nil {
			slog.Debug("show.describe.failed", "pid", id.PID, "error", err)
		} else {
			t.AppendSeparator()
			t.AppendRow(table.Row{"Parent PID", d.ParentPID})
			t.AppendRow(table.Row{"User", d.Username})
			t.AppendRow(table.Row{"Command", d.Cmdline})
			if !d.Started.IsZero() {
				t.AppendRow(table.Row{"Started", d.Started.Format("2006-01-02 15:04:05")})
			}
		}
	}
	t.Render()
}

func fadeOutIn(ctx context.Context, sys winapi.System, hwnd winapi.HWND) error {
	for _, mode := range []fade.Mode{fade.Out, fade.In} {
		if err := fadeWindow(ctx, sys, hwnd, mode); err != nil {
			return err
		}
	}
	return nil
}

var fadeWindow = fade.Fade

func init() {
	showCmd.Flags().BoolVar(&showFade, "fade", false, "Fade the window out and back in")
	showCmd.Flags().BoolVarP(&showVerbose, "verbose", "v", false, "Describe the terminal process")

	rootCmd.AddCommand(showCmd)
}
