// Package resolver finds the window that actually displays this process's
// console session.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/internal/wndenum"
)

const (
	DefaultPollInterval = 5 * time.Millisecond
	DefaultPollAttempts = 200
)

// ErrResolution is returned, possibly wrapped, whenever the terminal window
// cannot be determined. Callers should test for it with errors.Is and not
// depend on the wrapped detail.
var ErrResolution = errors.New("terminal window could not be resolved")

// HostLocator finds the pseudo-console host process serving shellPID and
// returns 0 if there is none. The job handle heuristic in package correlate
// is the default; it depends on terminal internals and may need replacing.
type HostLocator interface {
	LocateHost(ctx context.Context, shellPID uint32) (uint32, error)
}

// Options tune the owner poll. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	PollAttempts int
	Logger       *slog.Logger
}

// Result is a resolved terminal window.
type Result struct {
	Window winapi.HWND
	// PseudoConsole is true when the console window had no icon and the
	// window was found through the pseudo-console host.
	PseudoConsole bool
}

// Resolver walks from the console window to the terminal window.
type Resolver struct {
	sys     winapi.System
	locator HostLocator
	opts    Options
}

var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// New returns a Resolver using locator for the pseudo-console case.
func New(sys winapi.System, locator HostLocator, opts Options) *Resolver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{sys: sys, locator: locator, opts: opts}
}

func fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...))
}

// Resolve returns the window hosting the console of the current process.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	logger := r.opts.Logger

	console := r.sys.ConsoleWindow()
	if console == 0 {
		return Result{}, fail("process has no console window")
	}

	// A classic console host window answers WM_GETICON. The hidden window of
	// a pseudo console does not.
	if r.sys.SendMessage(console, winapi.WMGetIcon, 0, 0) != 0 {
		logger.Debug("resolver.console.has_icon", "hwnd", uint64(console))
		return Result{Window: console}, nil
	}

	// The terminal takes ownership of the hidden window shortly after
	// creating its own, so the owner may not exist yet.
	if _, err := r.waitForOwner(ctx, console); err != nil {
		return Result{}, err
	}

	shellTID, shellPID := r.sys.WindowThreadProcessID(console)
	if shellTID == 0 {
		return Result{}, fail("console window thread lookup failed")
	}

	hostPID, err := r.locator.LocateHost(ctx, shellPID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: locate host: %w", ErrResolution, err)
	}
	if hostPID == 0 {
		return Result{}, fail("no pseudo-console host found for shell %d", shellPID)
	}

	hostWnd, err := wndenum.Find(r.sys, wndenum.ByProcess(hostPID))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if hostWnd == 0 {
		return Result{}, fail("pseudo-console host %d has no window", hostPID)
	}

	root := r.sys.Ancestor(hostWnd, winapi.GARootOwner)
	if root == 0 {
		return Result{}, fail("no root owner for host window %#x", uint64(hostWnd))
	}

	logger.Debug("resolver.terminal.resolved", "shell_pid", shellPID, "host_pid", hostPID, "hwnd", uint64(root))
	return Result{Window: root, PseudoConsole: true}, nil
}

// waitForOwner polls for the console window's owner. The owner it returns is
// the window the tab was created in; it is not updated when the tab moves,
// which is why the resolver does not use it as the answer.
func (r *Resolver) waitForOwner(ctx context.Context, console winapi.HWND) (winapi.HWND, error) {
	for i := 0; i < r.opts.PollAttempts; i++ {
		if err := sleep(ctx, r.opts.PollInterval); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrResolution, err)
		}
		if owner := r.sys.Window(console, winapi.GWOwner); owner != 0 {
			return owner, nil
		}
	}
	r.opts.Logger.Debug("resolver.owner.poll_timeout", "attempts", r.opts.PollAttempts, "interval", r.opts.PollInterval)
	return 0, fail("console window has no owner after %d polls", r.opts.PollAttempts)
}
