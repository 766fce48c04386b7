package procinfo

import (
	"os"
	"testing"

	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/internal/winapi/winapitest"
)

func TestStripImagePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{`C:\Program Files\WindowsApps\Microsoft.WindowsTerminal\WindowsTerminal.exe`, "WindowsTerminal"},
		{`C:\Windows\System32\conhost.exe`, "conhost"},
		{`OpenConsole.exe`, "OpenConsole"},
		{`/usr/bin/bash`, "bash"},
		{`C:\tools\no-extension`, "no-extension"},
		{``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := stripImagePath(tt.path); got != tt.want {
				t.Fatalf("stripImagePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestBaseNameEmptyOnQueryFailure(t *testing.T) {
	fake := winapitest.New()
	if got := BaseName(fake, 0x1234); got != "" {
		t.Fatalf("BaseName() = %q, want empty", got)
	}
	if got := BaseName(fake, 0); got != "" {
		t.Fatalf("BaseName(0) = %q, want empty", got)
	}
}

func TestNameOfClosesHandle(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(42, `C:\Windows\System32\cmd.exe`)

	if got := NameOf(fake, 42); got != "cmd" {
		t.Fatalf("NameOf() = %q, want %q", got, "cmd")
	}
	if fake.LiveHandles() != 0 {
		t.Fatalf("live handles = %d, want 0", fake.LiveHandles())
	}
}

func TestNameOfDeniedProcess(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(42, `cmd.exe`).Denied = true

	if got := NameOf(fake, 42); got != "" {
		t.Fatalf("NameOf() = %q, want empty", got)
	}
	if fake.HandlesOpened != 0 {
		t.Fatalf("handles opened = %d, want 0", fake.HandlesOpened)
	}
}

func TestOpenReturnsGuard(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(7, `x.exe`)

	g, err := Open(fake, 7, winapi.ProcessQueryLimitedInformation)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !g.Valid() {
		t.Fatal("expected a valid guard")
	}
	_ = g.Release()
	if fake.LiveHandles() != 0 {
		t.Fatalf("live handles = %d, want 0", fake.LiveHandles())
	}
}

func TestDescribeCurrentProcess(t *testing.T) {
	d, err := Describe(uint32(os.Getpid()))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if d.PID != int32(os.Getpid()) {
		t.Fatalf("PID = %d, want %d", d.PID, os.Getpid())
	}
}
