package store

import (
	"encoding/binary"
	"unsafe"
)

// Handle is the constraint on handle types. Handles are plain integers so
// that consumers can store them inside store memory.
type Handle interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// HandleSize returns the encoded size of a handle of type H in bytes.
func HandleSize[H Handle]() int {
	var h H
	return int(unsafe.Sizeof(h))
}

// HandleLayout returns the layout of one encoded handle of type H.
func HandleLayout[H Handle]() Layout {
	n := HandleSize[H]()
	return Layout{Size: n, Align: n}
}

// PutHandle encodes h little-endian into the first HandleSize[H]() bytes of b.
func PutHandle[H Handle](b []byte, h H) {
	switch HandleSize[H]() {
	case 1:
		b[0] = byte(h)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(h))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(h))
	default:
		binary.LittleEndian.PutUint64(b, uint64(h))
	}
}

// ReadHandle decodes a handle written by PutHandle.
func ReadHandle[H Handle](b []byte) H {
	switch HandleSize[H]() {
	case 1:
		return H(b[0])
	case 2:
		return H(binary.LittleEndian.Uint16(b))
	case 4:
		return H(binary.LittleEndian.Uint32(b))
	default:
		return H(binary.LittleEndian.Uint64(b))
	}
}

// HandleFromOffset converts a byte offset into a handle, failing when the
// offset is not representable by H.
func HandleFromOffset[H Handle](offset int) (H, bool) {
	if offset < 0 || uint64(offset) > uint64(^H(0)) {
		return 0, false
	}
	return H(offset), true
}
