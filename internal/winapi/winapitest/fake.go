// Package winapitest provides an in-memory winapi.System for tests. It keeps
// per-process handle tables and counts every acquisition and release so tests
// can assert that nothing leaks or is freed twice.
package winapitest

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/winapi"
)

var (
	ErrAccessDenied = errors.New("winapitest: access denied")
	ErrNoSuchHandle = errors.New("winapitest: no such handle")
	ErrNoMemory     = errors.New("winapitest: out of memory")
)

// Object identifies a kernel object. Two handles refer to the same object
// when their Objects are equal.
type Object string

// ProcessObject is the object behind every handle to process pid.
func ProcessObject(pid uint32) Object {
	return Object(fmt.Sprintf("process:%d", pid))
}

// Process is a fake running process.
type Process struct {
	Image string
	// Denied makes OpenProcess fail for this process.
	Denied bool
	// Handles is the process's own handle table.
	Handles map[winapi.Handle]Object
}

// Window is a fake top-level window.
type Window struct {
	HWND      winapi.HWND
	TID       uint32
	PID       uint32
	RootOwner winapi.HWND
	ExStyle   int32
}

// Fake implements winapi.System.
type Fake struct {
	Console winapi.HWND
	// Icon is the reply to WM_GETICON sent to the console window.
	Icon uintptr
	// Owner appears as the console's owner after OwnerAfter GW_OWNER queries.
	Owner      winapi.HWND
	OwnerAfter int
	Foreground winapi.HWND
	// DetachedAncestors makes every GA_ROOTOWNER query fail.
	DetachedAncestors bool

	Windows   []Window
	Processes map[uint32]*Process

	// Table is the raw system handle table served by QuerySystemInformation.
	Table []handlescan.Entry
	// MinQuerySize, when set, overrides the size the table needs.
	MinQuerySize uint32
	// QueryErr fails QuerySystemInformation outright.
	QueryErr error
	// AllocLimit fails LocalAlloc for larger requests when non-zero.
	AllocLimit uint32

	OwnerQueries  int
	EnumVisited   int
	Queries       []uint32
	Opens         map[uint32]int
	Duplicates    int
	Compares      int
	Allocs        int
	Frees         int
	PeakBlocks    int
	HandlesOpened int
	HandlesClosed int
	BadReleases   int
	Alphas        []byte

	next   winapi.Handle
	open   map[winapi.Handle]Object
	memory map[unsafe.Pointer][]byte
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Processes: map[uint32]*Process{},
		Opens:     map[uint32]int{},
		next:      0x1000,
		open:      map[winapi.Handle]Object{},
		memory:    map[unsafe.Pointer][]byte{},
	}
}

// AddProcess registers a process and returns it for further setup.
func (f *Fake) AddProcess(pid uint32, image string) *Process {
	p := &Process{Image: image, Handles: map[winapi.Handle]Object{}}
	f.Processes[pid] = p
	return p
}

// LiveHandles returns the number of handles opened and not yet closed.
func (f *Fake) LiveHandles() int {
	return len(f.open)
}

// LiveBlocks returns the number of memory blocks allocated and not freed.
func (f *Fake) LiveBlocks() int {
	return len(f.memory)
}

func (f *Fake) ConsoleWindow() winapi.HWND {
	return f.Console
}

func (f *Fake) SendMessage(hwnd winapi.HWND, msg uint32, _, _ uintptr) uintptr {
	if hwnd == f.Console && msg == winapi.WMGetIcon {
		return f.Icon
	}
	return 0
}

func (f *Fake) Window(hwnd winapi.HWND, cmd uint32) winapi.HWND {
	if hwnd != f.Console || cmd != winapi.GWOwner {
		return 0
	}
	f.OwnerQueries++
	if f.OwnerQueries > f.OwnerAfter {
		return f.Owner
	}
	return 0
}

func (f *Fake) Ancestor(hwnd winapi.HWND, flags uint32) winapi.HWND {
	if flags != winapi.GARootOwner || f.DetachedAncestors {
		return 0
	}
	if w, ok := f.window(hwnd); ok {
		if w.RootOwner == 0 {
			return w.HWND
		}
		return w.RootOwner
	}
	return 0
}

func (f *Fake) ForegroundWindow() winapi.HWND {
	return f.Foreground
}

func (f *Fake) WindowThreadProcessID(hwnd winapi.HWND) (uint32, uint32) {
	if w, ok := f.window(hwnd); ok {
		return w.TID, w.PID
	}
	return 0, 0
}

func (f *Fake) window(hwnd winapi.HWND) (*Window, bool) {
	for i := range f.Windows {
		if f.Windows[i].HWND == hwnd {
			return &f.Windows[i], true
		}
	}
	return nil, false
}

func (f *Fake) EnumWindows(fn func(winapi.HWND) bool) error {
	for _, w := range f.Windows {
		f.EnumVisited++
		if !fn(w.HWND) {
			return nil
		}
	}
	return nil
}

func (f *Fake) OpenProcess(_ uint32, pid uint32) (winapi.Handle, error) {
	f.Opens[pid]++
	p, ok := f.Processes[pid]
	if !ok || p.Denied {
		return 0, ErrAccessDenied
	}
	return f.issue(ProcessObject(pid)), nil
}

func (f *Fake) issue(obj Object) winapi.Handle {
	f.next += 4
	f.open[f.next] = obj
	f.HandlesOpened++
	return f.next
}

func (f *Fake) CurrentProcess() winapi.Handle {
	return winapi.InvalidHandle
}

func (f *Fake) QueryFullProcessImageName(h winapi.Handle) (string, error) {
	obj, ok := f.open[h]
	if !ok {
		return "", ErrNoSuchHandle
	}
	for pid, p := range f.Processes {
		if ProcessObject(pid) == obj {
			return p.Image, nil
		}
	}
	return "", ErrAccessDenied
}

func (f *Fake) DuplicateHandle(srcProcess, src winapi.Handle, _ uint32) (winapi.Handle, error) {
	obj, ok := f.open[srcProcess]
	if !ok {
		return 0, ErrNoSuchHandle
	}
	for pid, p := range f.Processes {
		if ProcessObject(pid) != obj {
			continue
		}
		target, ok := p.Handles[src]
		if !ok {
			return 0, ErrNoSuchHandle
		}
		f.Duplicates++
		return f.issue(target), nil
	}
	return 0, ErrNoSuchHandle
}

func (f *Fake) CompareObjectHandles(a, b winapi.Handle) bool {
	f.Compares++
	oa, okA := f.open[a]
	ob, okB := f.open[b]
	return okA && okB && oa == ob
}

func (f *Fake) CloseHandle(h winapi.Handle) error {
	if _, ok := f.open[h]; !ok {
		f.BadReleases++
		return ErrNoSuchHandle
	}
	delete(f.open, h)
	f.HandlesClosed++
	return nil
}

func (f *Fake) LocalAlloc(size uint32) (unsafe.Pointer, error) {
	if size == 0 || (f.AllocLimit != 0 && size > f.AllocLimit) {
		return nil, ErrNoMemory
	}
	// uint64 backing keeps the block pointer-aligned. The map entry keeps
	// it reachable until LocalFree.
	words := make([]uint64, (uint64(size)+7)/8)
	p := unsafe.Pointer(&words[0])
	f.memory[p] = unsafe.Slice((*byte)(p), size)
	f.Allocs++
	if len(f.memory) > f.PeakBlocks {
		f.PeakBlocks = len(f.memory)
	}
	return p, nil
}

func (f *Fake) LocalFree(p unsafe.Pointer) error {
	if _, ok := f.memory[p]; !ok {
		f.BadReleases++
		return ErrNoSuchHandle
	}
	delete(f.memory, p)
	f.Frees++
	return nil
}

func (f *Fake) QuerySystemInformation(class int32, p unsafe.Pointer, size uint32) (uint32, error) {
	f.Queries = append(f.Queries, size)
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	if class != winapi.SystemHandleInformation {
		return 0, ErrAccessDenied
	}
	buf, ok := f.memory[p]
	if !ok || uint32(len(buf)) < size {
		return 0, ErrNoSuchHandle
	}
	required := TableSize(len(f.Table))
	if f.MinQuerySize > required {
		required = f.MinQuerySize
	}
	if size < required {
		return required, winapi.ErrInfoLengthMismatch
	}
	encodeTable(buf, f.Table)
	return required, nil
}

func (f *Fake) WindowLong(hwnd winapi.HWND, index int32) (int32, error) {
	w, ok := f.window(hwnd)
	if !ok || index != winapi.GWLExStyle {
		return 0, ErrNoSuchHandle
	}
	return w.ExStyle, nil
}

func (f *Fake) SetWindowLong(hwnd winapi.HWND, index int32, value int32) (int32, error) {
	w, ok := f.window(hwnd)
	if !ok || index != winapi.GWLExStyle {
		return 0, ErrNoSuchHandle
	}
	prev := w.ExStyle
	w.ExStyle = value
	return prev, nil
}

func (f *Fake) SetLayeredWindowAttributes(hwnd winapi.HWND, _ uint32, alpha byte, _ uint32) error {
	if _, ok := f.window(hwnd); !ok {
		return ErrNoSuchHandle
	}
	f.Alphas = append(f.Alphas, alpha)
	return nil
}

var _ winapi.System = (*Fake)(nil)
