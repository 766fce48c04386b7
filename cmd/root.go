package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "winterm",
	Short:   "Identify the terminal window hosting this console",
	Version: Version,
	Long: `winterm finds the window that displays the console it runs in.

Under the classic console host that is the console window itself. Under
Windows Terminal the console window is hidden, and winterm follows the
pseudo-console host (OpenConsole) back to the terminal's top-level window.

Usage:
  winterm show                 Print the terminal window identity
  winterm show --fade          Also fade the window out and in
  winterm watch                Re-resolve periodically, e.g. after moving a tab
  winterm fade out             Fade the terminal window out
  winterm config init          Create default config file`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
