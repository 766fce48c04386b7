//go:build windows

package winapi

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32   = windows.NewLazySystemDLL("kernel32.dll")
	kernelbase = windows.NewLazySystemDLL("kernelbase.dll")
	user32     = windows.NewLazySystemDLL("user32.dll")

	procGetConsoleWindow           = kernel32.NewProc("GetConsoleWindow")
	procCompareObjectHandles       = kernelbase.NewProc("CompareObjectHandles")
	procSendMessageW               = user32.NewProc("SendMessageW")
	procGetWindow                  = user32.NewProc("GetWindow")
	procGetAncestor                = user32.NewProc("GetAncestor")
	procGetWindowLongW             = user32.NewProc("GetWindowLongW")
	procSetWindowLongW             = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

// enumWindowsCallback is registered once; callbacks created with NewCallback
// are never released, so the per-call state travels through lParam.
var enumWindowsCallback = windows.NewCallback(func(hwnd windows.HWND, lparam uintptr) uintptr {
	state := (*enumState)(unsafe.Pointer(lparam))
	if state.fn(HWND(hwnd)) {
		return 1
	}
	state.stopped = true
	return 0
})

type enumState struct {
	fn      func(HWND) bool
	stopped bool
}

const localMemFixed = 0x0

type nativeSystem struct{}

// Native returns the System backed by the running Windows session.
func Native() System {
	return nativeSystem{}
}

func (nativeSystem) ConsoleWindow() HWND {
	r, _, _ := procGetConsoleWindow.Call()
	return HWND(r)
}

func (nativeSystem) SendMessage(hwnd HWND, msg uint32, wparam, lparam uintptr) uintptr {
	r, _, _ := procSendMessageW.Call(uintptr(hwnd), uintptr(msg), wparam, lparam)
	return r
}

func (nativeSystem) Window(hwnd HWND, cmd uint32) HWND {
	r, _, _ := procGetWindow.Call(uintptr(hwnd), uintptr(cmd))
	return HWND(r)
}

func (nativeSystem) Ancestor(hwnd HWND, flags uint32) HWND {
	r, _, _ := procGetAncestor.Call(uintptr(hwnd), uintptr(flags))
	return HWND(r)
}

func (nativeSystem) ForegroundWindow() HWND {
	return HWND(windows.GetForegroundWindow())
}

func (nativeSystem) WindowThreadProcessID(hwnd HWND) (uint32, uint32) {
	var pid uint32
	tid, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid)
	if err != nil {
		return 0, 0
	}
	return tid, pid
}

func (nativeSystem) EnumWindows(fn func(HWND) bool) error {
	state := &enumState{fn: fn}
	err := windows.EnumWindows(enumWindowsCallback, unsafe.Pointer(state))
	if err != nil && !state.stopped {
		return err
	}
	return nil
}

func (nativeSystem) OpenProcess(access uint32, pid uint32) (Handle, error) {
	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (nativeSystem) CurrentProcess() Handle {
	return Handle(windows.CurrentProcess())
}

func (nativeSystem) QueryFullProcessImageName(h Handle) (string, error) {
	var buf [1024]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(windows.Handle(h), 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func (nativeSystem) DuplicateHandle(srcProcess, src Handle, access uint32) (Handle, error) {
	var dup windows.Handle
	err := windows.DuplicateHandle(windows.Handle(srcProcess), windows.Handle(src), windows.CurrentProcess(), &dup, access, false, 0)
	if err != nil {
		return 0, err
	}
	return Handle(dup), nil
}

func (nativeSystem) CompareObjectHandles(a, b Handle) bool {
	if err := procCompareObjectHandles.Find(); err != nil {
		return false
	}
	r, _, _ := procCompareObjectHandles.Call(uintptr(a), uintptr(b))
	return r != 0
}

func (nativeSystem) CloseHandle(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (nativeSystem) LocalAlloc(size uint32) (unsafe.Pointer, error) {
	p, err := windows.LocalAlloc(localMemFixed, size)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(p), nil
}

func (nativeSystem) LocalFree(p unsafe.Pointer) error {
	_, err := windows.LocalFree(windows.Handle(uintptr(p)))
	return err
}

func (nativeSystem) QuerySystemInformation(class int32, buf unsafe.Pointer, size uint32) (uint32, error) {
	var required uint32
	err := windows.NtQuerySystemInformation(class, buf, size, &required)
	if errors.Is(err, windows.STATUS_INFO_LENGTH_MISMATCH) {
		return required, ErrInfoLengthMismatch
	}
	return required, err
}

func (nativeSystem) WindowLong(hwnd HWND, index int32) (int32, error) {
	r, _, err := procGetWindowLongW.Call(uintptr(hwnd), uintptr(index))
	if r == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return 0, err
	}
	return int32(r), nil
}

func (nativeSystem) SetWindowLong(hwnd HWND, index int32, value int32) (int32, error) {
	r, _, err := procSetWindowLongW.Call(uintptr(hwnd), uintptr(index), uintptr(value))
	if r == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return 0, err
	}
	return int32(r), nil
}

func (nativeSystem) SetLayeredWindowAttributes(hwnd HWND, key uint32, alpha byte, flags uint32) error {
	r, _, err := procSetLayeredWindowAttributes.Call(uintptr(hwnd), uintptr(key), uintptr(alpha), uintptr(flags))
	if r == 0 {
		return err
	}
	return nil
}
