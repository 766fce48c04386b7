package cmd

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/Digni/winterm/internal/config"
	"github.com/Digni/winterm/internal/fade"
	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/logging"
	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/internal/winapi/winapitest"
	"github.com/spf13/cobra"
)

const (
	testConsole  winapi.HWND = 0x100
	testHost     winapi.HWND = 0x200
	testTerminal winapi.HWND = 0x900
)

// terminalDesktop is a shell running in a Windows Terminal tab.
func terminalDesktop() *winapitest.Fake {
	fake := winapitest.New()
	fake.Console = testConsole
	fake.Owner = testTerminal
	fake.Windows = []winapitest.Window{
		{HWND: testConsole, TID: 11, PID: 5000},
		{HWND: testHost, TID: 12, PID: 6000, RootOwner: testTerminal},
		{HWND: testTerminal, TID: 13, PID: 7000},
	}
	fake.AddProcess(5000, `C:\Windows\System32\cmd.exe`)
	fake.AddProcess(6000, `C:\Program Files\WindowsApps\OpenConsole.exe`).Handles[0x88] = winapitest.ProcessObject(5000)
	fake.AddProcess(7000, `C:\Program Files\WindowsApps\WindowsTerminal.exe`)
	fake.Table = []handlescan.Entry{{OwnerPID: 6000, ObjectType: handlescan.JobObjectType, Handle: 0x88}}
	return fake
}

type fadeCall struct {
	hwnd winapi.HWND
	mode fade.Mode
}

// stubCommand swaps the package seams for the duration of a test and returns
// the output buffer and the recorded fades.
func stubCommand(t *testing.T, fake *winapitest.Fake) (*cobra.Command, *bytes.Buffer, *[]fadeCall) {
	origLoad := loadConfigForCommand
	origSystem := commandSystem
	origBootstrap := commandLoggingBootstrap
	origFade := fadeWindow
	origWait := watchWait
	origIsTerminal := outputIsTerminal
	t.Cleanup(func() {
		loadConfigForCommand = origLoad
		commandSystem = origSystem
		commandLoggingBootstrap = origBootstrap
		fadeWindow = origFade
		watchWait = origWait
		outputIsTerminal = origIsTerminal
	})

	loadConfigForCommand = func() (config.LoadResult, error) {
		cfg := config.DefaultConfig()
		cfg.Resolver.PollInterval = time.Microsecond
		cfg.Resolver.PollAttempts = 3
		return config.LoadResult{Config: cfg, Source: config.SourceSelection{Type: config.SourceDefaults, Reason: "test"}}, nil
	}
	commandSystem = func() winapi.System { return fake }
	commandLoggingBootstrap = func(config.LoggingConfig, logging.Role) error { return nil }
	watchWait = func(context.Context, time.Duration) error { return nil }
	outputIsTerminal = func(io.Writer) bool { return false }

	var fades []fadeCall
	fadeWindow = func(_ context.Context, _ winapi.System, hwnd winapi.HWND, mode fade.Mode) error {
		fades = append(fades, fadeCall{hwnd: hwnd, mode: mode})
		return nil
	}

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &fades
}
