package handlescan

import (
	"unsafe"

	"github.com/Digni/winterm/internal/winapi"
)

// rawEntry mirrors the undocumented SYSTEM_HANDLE_TABLE_ENTRY_INFO record
// returned for the SystemHandleInformation class.
type rawEntry struct {
	ProcessID  uint32
	ObjectType uint8
	Flags      uint8
	Handle     uint16
	Object     uintptr
	Access     uint32
}

const (
	ptrSize = unsafe.Sizeof(uintptr(0))

	// The table starts with a 32-bit count padded to pointer size.
	headerSize = ptrSize
	entrySize  = unsafe.Sizeof(rawEntry{})

	// 8 bytes of fixed fields, the object pointer, then the access mask
	// padded up to pointer alignment.
	wantEntrySize = 8 + 2*ptrSize
)

// Both arrays have a negative length, and fail to compile, unless the
// record matches the native layout exactly.
var (
	_ [entrySize - wantEntrySize]struct{}
	_ [wantEntrySize - entrySize]struct{}
	_ [unsafe.Offsetof(rawEntry{}.Object) - 8]struct{}
	_ [8 - unsafe.Offsetof(rawEntry{}.Object)]struct{}
)

// decode walks the table at p, which spans size bytes, and calls fn for
// every record. It never reads past size even if the count claims more.
func decode(p unsafe.Pointer, size uint32, fn func(rawEntry)) {
	if p == nil || uintptr(size) < headerSize {
		return
	}
	buf := unsafe.Slice((*byte)(p), size)
	count := uintptr(*(*uint32)(unsafe.Pointer(&buf[0])))
	if limit := (uintptr(size) - headerSize) / entrySize; count > limit {
		count = limit
	}
	for i := uintptr(0); i < count; i++ {
		fn(*(*rawEntry)(unsafe.Pointer(&buf[headerSize+i*entrySize])))
	}
}

func (r rawEntry) entry() Entry {
	return Entry{
		OwnerPID:   r.ProcessID,
		ObjectType: r.ObjectType,
		Flags:      r.Flags,
		Handle:     winapi.Handle(r.Handle),
		Object:     r.Object,
		Access:     r.Access,
	}
}
