// Package winterm identifies the terminal window the current console
// application is displayed in.
//
// A console program can be hosted by the classic console host, in which case
// its console window is the visible window, or by a terminal such as Windows
// Terminal through a pseudo console, in which case the console window is a
// hidden stub and the real window belongs to another process. A Tracker
// resolves and caches the answer. Call Refresh again after the tab may have
// moved to another window; moves are not detected automatically.
package winterm

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Digni/winterm/internal/correlate"
	"github.com/Digni/winterm/internal/focus"
	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/procinfo"
	"github.com/Digni/winterm/internal/resolver"
	"github.com/Digni/winterm/internal/winapi"
)

// DefaultExpectedTerminal is the base name a pseudo-console terminal window
// must have to be accepted.
const DefaultExpectedTerminal = "WindowsTerminal"

// ErrResolution reports that the terminal window could not be determined.
var ErrResolution = resolver.ErrResolution

// ErrUnsupported is wrapped into the resolution error on platforms without
// the Win32 API.
var ErrUnsupported = winapi.ErrUnsupported

// HostLocator finds the pseudo-console host process serving a shell process.
type HostLocator = resolver.HostLocator

// HWND is a Win32 window handle.
type HWND = winapi.HWND

// Identity describes a terminal window.
type Identity struct {
	Window   HWND
	PID      uint32
	TID      uint32
	BaseName string // process name without extension
}

type settings struct {
	sys          winapi.System
	locator      HostLocator
	hostName     string
	expected     string
	objectType   uint8
	pollInterval time.Duration
	pollAttempts int
	scan         handlescan.Options
	logger       *slog.Logger
}

// Option configures a Tracker.
type Option func(*settings)

// WithSystem replaces the OS binding. The System interface is internal to
// this module, so the option only serves the module's own tests.
func WithSystem(sys winapi.System) Option {
	return func(s *settings) { s.sys = sys }
}

// WithHostLocator replaces the job handle heuristic used to find the
// pseudo-console host.
func WithHostLocator(l HostLocator) Option {
	return func(s *settings) { s.locator = l }
}

// WithHostProcess sets the base name of the pseudo-console host process.
func WithHostProcess(name string) Option {
	return func(s *settings) { s.hostName = name }
}

// WithExpectedTerminal sets the base name the terminal process must have
// when reached through a pseudo console. An empty name accepts any process.
func WithExpectedTerminal(name string) Option {
	return func(s *settings) { s.expected = name }
}

// WithPolling sets how often and how many times to check for the console
// window's owner.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(s *settings) {
		s.pollInterval = interval
		s.pollAttempts = attempts
	}
}

// WithScan tunes the system handle table query.
func WithScan(initialSize, margin uint32, maxAttempts int, objectType uint8) Option {
	return func(s *settings) {
		s.scan.InitialSize = initialSize
		s.scan.Margin = margin
		s.scan.MaxAttempts = maxAttempts
		s.objectType = objectType
	}
}

// WithLogger sets the logger for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Tracker caches the identity of the terminal window. It is safe for
// concurrent use; refreshes are serialised and readers see either the
// previous or the new identity, never a mix.
type Tracker struct {
	sys         winapi.System
	resolver    *resolver.Resolver
	expected    string
	logger      *slog.Logger
	unsupported bool

	refreshMu sync.Mutex
	mu        sync.RWMutex
	identity  Identity
	resolved  bool
}

// New returns an unresolved Tracker. Call Refresh before reading it.
func New(opts ...Option) *Tracker {
	s := settings{
		hostName:   correlate.DefaultHostName,
		expected:   DefaultExpectedTerminal,
		objectType: handlescan.JobObjectType,
	}
	for _, opt := range opts {
		opt(&s)
	}
	unsupported := false
	if s.sys == nil {
		s.sys = winapi.Native()
		unsupported = runtime.GOOS != "windows"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locator == nil {
		s.scan.Logger = s.logger
		s.locator = correlate.New(s.sys, handlescan.New(s.sys, s.scan),
			correlate.WithHostName(s.hostName),
			correlate.WithObjectType(s.objectType),
			correlate.WithLogger(s.logger),
		)
	}

	return &Tracker{
		sys: s.sys,
		resolver: resolver.New(s.sys, s.locator, resolver.Options{
			PollInterval: s.pollInterval,
			PollAttempts: s.pollAttempts,
			Logger:       s.logger,
		}),
		expected:    s.expected,
		logger:      s.logger,
		unsupported: unsupported,
	}
}

// Refresh resolves the terminal window again. On success the cached identity
// is replaced as a whole; on failure it is left untouched and an error
// wrapping ErrResolution is returned.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	id, err := t.resolve(ctx)
	if err != nil {
		t.logger.Warn("winterm.refresh.failed", "error", err)
		return err
	}

	t.mu.Lock()
	t.identity = id
	t.resolved = true
	t.mu.Unlock()

	t.logger.Info("winterm.refresh.completed", "hwnd", uint64(id.Window), "pid", id.PID, "tid", id.TID, "process", id.BaseName)
	return nil
}

func (t *Tracker) resolve(ctx context.Context) (Identity, error) {
	if t.unsupported {
		return Identity{}, fmt.Errorf("%w: %w", ErrResolution, winapi.ErrUnsupported)
	}

	res, err := t.resolver.Resolve(ctx)
	if err != nil {
		return Identity{}, err
	}

	tid, pid := t.sys.WindowThreadProcessID(res.Window)
	if tid == 0 {
		return Identity{}, fmt.Errorf("%w: terminal window thread lookup failed", ErrResolution)
	}

	name := procinfo.NameOf(t.sys, pid)
	if name == "" {
		return Identity{}, fmt.Errorf("%w: terminal process %d name unavailable", ErrResolution, pid)
	}
	if res.PseudoConsole && t.expected != "" && !strings.EqualFold(name, t.expected) {
		return Identity{}, fmt.Errorf("%w: terminal process is %q, want %q", ErrResolution, name, t.expected)
	}

	return Identity{Window: res.Window, PID: pid, TID: tid, BaseName: name}, nil
}

// Identity returns the cached identity and whether a refresh has succeeded.
func (t *Tracker) Identity() (Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.identity, t.resolved
}

// Window returns the cached terminal window handle.
func (t *Tracker) Window() HWND {
	id, _ := t.Identity()
	return id.Window
}

// PID returns the id of the process owning the terminal window.
func (t *Tracker) PID() uint32 {
	id, _ := t.Identity()
	return id.PID
}

// TID returns the id of the thread that created the terminal window.
func (t *Tracker) TID() uint32 {
	id, _ := t.Identity()
	return id.TID
}

// BaseName returns the terminal process name without extension.
func (t *Tracker) BaseName() string {
	id, _ := t.Identity()
	return id.BaseName
}

// Focused reports whether the cached terminal window is the foreground
// window. It is false before the first successful refresh.
func (t *Tracker) Focused() bool {
	id, ok := t.Identity()
	if !ok {
		return false
	}
	return focus.WindowFocused(t.sys, id.Window)
}

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// Default returns a process-wide Tracker, resolving it on first use. A
// failed first resolution is not cached; the next call tries again.
func Default() (*Tracker, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultTracker != nil {
		return defaultTracker, nil
	}
	t := New()
	if err := t.Refresh(context.Background()); err != nil {
		return nil, err
	}
	defaultTracker = t
	return t, nil
}
