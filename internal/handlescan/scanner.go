// Package handlescan enumerates every open kernel object handle on the
// system through the undocumented SystemHandleInformation query.
package handlescan

import (
	"errors"
	"log/slog"
	"math"

	"github.com/Digni/winterm/internal/native"
	"github.com/Digni/winterm/internal/winapi"
)

const (
	// DefaultInitialSize is the first buffer size tried, 2 MiB.
	DefaultInitialSize = 0x200000
	// DefaultMargin is added to the size the system reports when growing.
	DefaultMargin = 0x1000
	// DefaultMaxAttempts bounds the grow-and-retry loop.
	DefaultMaxAttempts = 16
	// JobObjectType is the object type index of job objects.
	JobObjectType = 7
)

// Entry is one open handle as seen in the system-wide table. Object is an
// opaque kernel address used for identity only; it is never dereferenced.
type Entry struct {
	OwnerPID   uint32
	ObjectType uint8
	Flags      uint8
	Handle     winapi.Handle
	Object     uintptr
	Access     uint32
}

// Options tune the buffer growth loop. Zero values select the defaults.
type Options struct {
	InitialSize uint32
	Margin      uint32
	MaxAttempts int
	Logger      *slog.Logger
}

// Scanner reads the system handle table.
type Scanner struct {
	sys  winapi.System
	opts Options
}

// New returns a Scanner using sys.
func New(sys winapi.System, opts Options) *Scanner {
	if opts.InitialSize == 0 {
		opts.InitialSize = DefaultInitialSize
	}
	if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{sys: sys, opts: opts}
}

// Scan returns every handle whose object type equals objectType, in table
// order. Records of other types are skipped without being converted.
//
// An empty result means the table could not be read or held no matching
// handle; callers must not read it as proof that none exist.
func (s *Scanner) Scan(objectType uint8) []Entry {
	var entries []Entry
	s.each(objectType, func(e Entry) {
		entries = append(entries, e)
	})
	return entries
}

func (s *Scanner) each(objectType uint8, fn func(Entry)) {
	logger := s.opts.Logger
	size := s.opts.InitialSize

	p, err := s.sys.LocalAlloc(size)
	if err != nil {
		logger.Debug("handlescan.buffer.alloc_failed", "size", size, "error", err)
		return
	}
	block := native.NewMemory(s.sys, p)
	defer block.Release()

	for attempt := 1; ; attempt++ {
		required, err := s.sys.QuerySystemInformation(winapi.SystemHandleInformation, block.Raw(), size)
		if err == nil {
			break
		}
		if !errors.Is(err, winapi.ErrInfoLengthMismatch) {
			logger.Debug("handlescan.query.failed", "size", size, "error", err)
			return
		}
		if attempt >= s.opts.MaxAttempts {
			logger.Debug("handlescan.query.attempts_exhausted", "attempts", attempt, "size", size)
			return
		}

		next, ok := grow(size, required, s.opts.Margin)
		if !ok {
			logger.Debug("handlescan.buffer.too_large", "size", size, "required", required)
			return
		}
		logger.Debug("handlescan.buffer.grow", "from", size, "to", next, "required", required)

		// Free the old block before asking for the larger one.
		_ = block.Release()
		p, err := s.sys.LocalAlloc(next)
		if err != nil {
			logger.Debug("handlescan.buffer.alloc_failed", "size", next, "error", err)
			return
		}
		_ = block.Reset(p)
		size = next
	}

	decode(block.Raw(), size, func(r rawEntry) {
		if r.ObjectType != objectType {
			return
		}
		fn(r.entry())
	})
}

// grow returns the next buffer size: the size the system asked for plus
// margin, and never less than current plus margin. It reports false when
// that does not fit in 32 bits.
func grow(current, required, margin uint32) (uint32, bool) {
	base := required
	if base < current {
		base = current
	}
	if base > math.MaxUint32-margin {
		return 0, false
	}
	return base + margin, true
}
