package logging

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var correlationCounter uint64

// NewOperationID returns an id that ties together the log lines of one
// command invocation or one watch iteration.
func NewOperationID() string {
	return newCorrelationID("op")
}

// WindowFields returns the attributes logged for a resolved terminal window.
func WindowFields(hwnd uint64, pid, tid uint32, process string) []any {
	return []any{
		"hwnd", FormatHWND(hwnd),
		"pid", pid,
		"tid", tid,
		"process", normalizeProcess(process),
	}
}

// FormatHWND renders a window handle the way Windows tools print it.
func FormatHWND(hwnd uint64) string {
	return fmt.Sprintf("0x%08X", hwnd)
}

func newCorrelationID(prefix string) string {
	counter := atomic.AddUint64(&correlationCounter, 1)
	ts := time.Now().UTC().UnixMilli()
	return fmt.Sprintf("%s-%s-%s", prefix, strconv.FormatInt(ts, 36), strconv.FormatUint(counter, 36))
}

func normalizeProcess(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
