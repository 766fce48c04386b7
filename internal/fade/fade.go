// Package fade animates a window's opacity. It is used to show the user
// which window was identified as their terminal.
package fade

import (
	"context"
	"fmt"
	"time"

	"github.com/Digni/winterm/internal/winapi"
)

// Mode selects the fade direction.
type Mode int

const (
	Out Mode = iota
	In
)

func (m Mode) String() string {
	if m == In {
		return "in"
	}
	return "out"
}

const (
	step     = 3
	interval = time.Millisecond
)

var sleep = time.Sleep

// Fade makes hwnd a layered window and steps its alpha from opaque to
// transparent (Out) or back (In). It stops at the first failing call or when
// ctx is done; a fade that stops early leaves the window fully opaque.
func Fade(ctx context.Context, sys winapi.System, hwnd winapi.HWND, mode Mode) (err error) {
	if hwnd == 0 {
		return fmt.Errorf("fade %s: no window", mode)
	}

	style, err := sys.WindowLong(hwnd, winapi.GWLExStyle)
	if err != nil {
		return fmt.Errorf("fade %s: read style: %w", mode, err)
	}
	if _, err := sys.SetWindowLong(hwnd, winapi.GWLExStyle, style|winapi.WSExLayered); err != nil {
		return fmt.Errorf("fade %s: set layered style: %w", mode, err)
	}

	defer func() {
		if err != nil {
			_ = sys.SetLayeredWindowAttributes(hwnd, 0, 255, winapi.LWAAlpha)
		}
	}()

	for i := 0; i <= 255; i += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		alpha := byte(i)
		if mode == Out {
			alpha = byte(255 - i)
		}
		if err := sys.SetLayeredWindowAttributes(hwnd, 0, alpha, winapi.LWAAlpha); err != nil {
			return fmt.Errorf("fade %s: set alpha %d: %w", mode, alpha, err)
		}
		sleep(interval)
	}
	return nil
}
