package winapitest

import (
	"unsafe"

	"github.com/Digni/winterm/internal/handlescan"
)

// record is the native SYSTEM_HANDLE_TABLE_ENTRY_INFO layout served to the
// scanner.
type record struct {
	ProcessID  uint32
	ObjectType uint8
	Flags      uint8
	Handle     uint16
	Object     uintptr
	Access     uint32
}

const (
	tableHeader = unsafe.Sizeof(uintptr(0))
	recordSize  = unsafe.Sizeof(record{})
)

// TableSize returns the number of bytes a table of n records occupies.
func TableSize(n int) uint32 {
	return uint32(tableHeader + uintptr(n)*recordSize)
}

// encodeTable writes entries into buf, which QuerySystemInformation has
// already checked to be at least TableSize(len(entries)) bytes.
func encodeTable(buf []byte, entries []handlescan.Entry) {
	*(*uint32)(unsafe.Pointer(&buf[0])) = uint32(len(entries))
	for i, e := range entries {
		off := tableHeader + uintptr(i)*recordSize
		*(*record)(unsafe.Pointer(&buf[off])) = record{
			ProcessID:  e.OwnerPID,
			ObjectType: e.ObjectType,
			Flags:      e.Flags,
			Handle:     uint16(e.Handle),
			Object:     e.Object,
			Access:     e.Access,
		}
	}
}
