// Package winapi is the thin binding layer between the terminal window
// resolution logic and the operating system. Everything above this package
// talks to System and never to a DLL directly, so the resolution logic can be
// exercised with fakes on any platform.
package winapi

import (
	"errors"
	"unsafe"
)

// HWND is a window handle.
type HWND uintptr

// Handle is a kernel object handle in some process's handle table.
type Handle uintptr

// InvalidHandle is the INVALID_HANDLE_VALUE sentinel.
const InvalidHandle = ^Handle(0)

// Process access rights.
const (
	ProcessDupHandle               = 0x0040
	ProcessQueryLimitedInformation = 0x1000
)

// Window messages and relationship selectors.
const (
	WMGetIcon   = 0x007F
	GWOwner     = 4
	GARootOwner = 3
)

// Extended window style bits and layered window flags used by the fade effect.
const (
	GWLExStyle  = -20
	WSExLayered = 0x00080000
	LWAAlpha    = 0x2
)

// SystemHandleInformation is the information class that returns every open
// handle on the system.
const SystemHandleInformation = 16

var (
	// ErrUnsupported is returned by every call on platforms without a Win32 API.
	ErrUnsupported = errors.New("winapi: not supported on this platform")

	// ErrInfoLengthMismatch reports that the buffer passed to
	// QuerySystemInformation was too small. The required size is returned
	// alongside it.
	ErrInfoLengthMismatch = errors.New("winapi: information length mismatch")
)

// System is the set of OS capabilities consumed by terminal window resolution.
type System interface {
	// ConsoleWindow returns the window associated with this process's console.
	ConsoleWindow() HWND
	SendMessage(hwnd HWND, msg uint32, wparam, lparam uintptr) uintptr
	Window(hwnd HWND, cmd uint32) HWND
	Ancestor(hwnd HWND, flags uint32) HWND
	ForegroundWindow() HWND
	// WindowThreadProcessID returns the creating thread id (0 on failure)
	// and the owning process id.
	WindowThreadProcessID(hwnd HWND) (tid, pid uint32)
	// EnumWindows calls fn for each top-level window until fn returns false.
	EnumWindows(fn func(HWND) bool) error

	OpenProcess(access uint32, pid uint32) (Handle, error)
	CurrentProcess() Handle
	QueryFullProcessImageName(h Handle) (string, error)
	// DuplicateHandle copies src from the table of srcProcess into the
	// table of the current process.
	DuplicateHandle(srcProcess, src Handle, access uint32) (Handle, error)
	CompareObjectHandles(a, b Handle) bool
	CloseHandle(h Handle) error

	// LocalAlloc returns a fixed block of size bytes that the garbage
	// collector neither moves nor frees. Release it with LocalFree.
	LocalAlloc(size uint32) (unsafe.Pointer, error)
	LocalFree(p unsafe.Pointer) error
	// QuerySystemInformation fills the size bytes at buf with the given
	// information class. On ErrInfoLengthMismatch, required holds the size
	// the call needed.
	QuerySystemInformation(class int32, buf unsafe.Pointer, size uint32) (required uint32, err error)

	WindowLong(hwnd HWND, index int32) (int32, error)
	SetWindowLong(hwnd HWND, index int32, value int32) (int32, error)
	SetLayeredWindowAttributes(hwnd HWND, key uint32, alpha byte, flags uint32) error
}
