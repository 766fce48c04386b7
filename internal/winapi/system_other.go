//go:build !windows

package winapi

import "unsafe"

type unsupportedSystem struct{}

// Native returns a System whose every call fails with ErrUnsupported.
func Native() System {
	return unsupportedSystem{}
}

func (unsupportedSystem) ConsoleWindow() HWND                                { return 0 }
func (unsupportedSystem) SendMessage(HWND, uint32, uintptr, uintptr) uintptr { return 0 }
func (unsupportedSystem) Window(HWND, uint32) HWND                           { return 0 }
func (unsupportedSystem) Ancestor(HWND, uint32) HWND                         { return 0 }
func (unsupportedSystem) ForegroundWindow() HWND                             { return 0 }
func (unsupportedSystem) WindowThreadProcessID(HWND) (uint32, uint32)        { return 0, 0 }
func (unsupportedSystem) EnumWindows(func(HWND) bool) error                  { return ErrUnsupported }
func (unsupportedSystem) OpenProcess(uint32, uint32) (Handle, error)         { return 0, ErrUnsupported }
func (unsupportedSystem) CurrentProcess() Handle                             { return InvalidHandle }
func (unsupportedSystem) QueryFullProcessImageName(Handle) (string, error) {
	return "", ErrUnsupported
}
func (unsupportedSystem) DuplicateHandle(Handle, Handle, uint32) (Handle, error) {
	return 0, ErrUnsupported
}
func (unsupportedSystem) CompareObjectHandles(Handle, Handle) bool  { return false }
func (unsupportedSystem) CloseHandle(Handle) error                  { return ErrUnsupported }
func (unsupportedSystem) LocalAlloc(uint32) (unsafe.Pointer, error) { return nil, ErrUnsupported }
func (unsupportedSystem) LocalFree(unsafe.Pointer) error            { return ErrUnsupported }
func (unsupportedSystem) QuerySystemInformation(int32, unsafe.Pointer, uint32) (uint32, error) {
	return 0, ErrUnsupported
}
func (unsupportedSystem) WindowLong(HWND, int32) (int32, error) { return 0, ErrUnsupported }
func (unsupportedSystem) SetWindowLong(HWND, int32, int32) (int32, error) {
	return 0, ErrUnsupported
}
func (unsupportedSystem) SetLayeredWindowAttributes(HWND, uint32, byte, uint32) error {
	return ErrUnsupported
}
