// Package correlate finds the pseudo-console host serving a shell process.
//
// There is no documented way to ask which OpenConsole instance belongs to a
// given shell (microsoft/terminal#7434). The host keeps an open handle that
// refers to the shell's process object, so the correlator walks the system
// handle table looking for a process with the right name that holds such a
// handle. Handle values are only meaningful inside their owning process, and
// pids are recycled, so candidates are compared by object identity.
package correlate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/native"
	"github.com/Digni/winterm/internal/procinfo"
	"github.com/Digni/winterm/internal/winapi"
)

// DefaultHostName is the image base name of the pseudo-console host.
const DefaultHostName = "OpenConsole"

// Scanner is the handle table source.
type Scanner interface {
	Scan(objectType uint8) []handlescan.Entry
}

// Correlator locates the process named Name that holds an open handle to a
// target process.
type Correlator struct {
	sys        winapi.System
	scanner    Scanner
	name       string
	objectType uint8
	logger     *slog.Logger
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithHostName overrides the process name searched for.
func WithHostName(name string) Option {
	return func(c *Correlator) { c.name = name }
}

// WithObjectType overrides the object type index scanned for.
func WithObjectType(t uint8) Option {
	return func(c *Correlator) { c.objectType = t }
}

// WithLogger sets the logger used for per-candidate diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Correlator) { c.logger = l }
}

// New returns a Correlator reading handles from scanner.
func New(sys winapi.System, scanner Scanner, opts ...Option) *Correlator {
	c := &Correlator{
		sys:        sys,
		scanner:    scanner,
		name:       DefaultHostName,
		objectType: handlescan.JobObjectType,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocateHost returns the pid of the host process holding a handle to
// shellPID, or 0 if none was found.
func (c *Correlator) LocateHost(ctx context.Context, shellPID uint32) (uint32, error) {
	return c.Find(ctx, c.name, shellPID)
}

// Find returns the pid of a running process whose base name equals name and
// which holds an open handle to the same kernel object as targetPID. It
// returns 0 when no such process exists or it could not be determined. The
// only error is ctx's, when the search was interrupted.
func (c *Correlator) Find(ctx context.Context, name string, targetPID uint32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Snapshot first so the handle opened below is not part of it.
	entries := c.scanner.Scan(c.objectType)
	if len(entries) == 0 {
		c.logger.Debug("correlate.scan.empty", "target_pid", targetPID)
		return 0, nil
	}

	target, err := procinfo.Open(c.sys, targetPID, winapi.ProcessQueryLimitedInformation)
	if err != nil {
		c.logger.Debug("correlate.target.open_failed", "target_pid", targetPID, "error", err)
		return 0, nil
	}
	defer target.Release()

	owner := native.NewHandle(c.sys, 0)
	defer owner.Release()

	var ownerPID uint32
	for i, e := range entries {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		// The table is grouped by owner, so each owner is opened once per run.
		if i == 0 || e.OwnerPID != ownerPID {
			ownerPID = e.OwnerPID
			h, err := c.sys.OpenProcess(winapi.ProcessDupHandle|winapi.ProcessQueryLimitedInformation, ownerPID)
			if err != nil {
				h = 0
			}
			_ = owner.Reset(h)
		}
		if !owner.Valid() {
			continue
		}

		if c.matches(owner.Raw(), e.Handle, target.Raw(), name) {
			c.logger.Debug("correlate.match.found", "target_pid", targetPID, "host_pid", ownerPID, "handle", uint64(e.Handle))
			return ownerPID, nil
		}
	}
	return 0, nil
}

func (c *Correlator) matches(owner, handle, target winapi.Handle, name string) bool {
	h, err := c.sys.DuplicateHandle(owner, handle, winapi.ProcessQueryLimitedInformation)
	if err != nil {
		return false
	}
	dup := native.NewHandle(c.sys, h)
	defer dup.Release()

	if !c.sys.CompareObjectHandles(dup.Raw(), target) {
		return false
	}
	return strings.EqualFold(procinfo.BaseName(c.sys, owner), name)
}
