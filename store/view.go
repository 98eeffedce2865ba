package store

import "unsafe"

// Bytes returns the first n bytes of the block of h as a slice. The slice is
// only valid as long as the address of h is, see Resolve.
func Bytes[H Handle](s Store[H], h H, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.Resolve(h)), n)
}

// Addr returns the resolved address of h as an integer, for alignment checks
// and seeding. It must not be converted back into a pointer.
func Addr[H Handle](s Store[H], h H) uintptr {
	return uintptr(s.Resolve(h))
}

// AlignOffset returns the number of bytes to skip from the start of b so that
// the address is aligned to align.
func AlignOffset(b []byte, align int) int {
	if len(b) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	mask := uintptr(align - 1)
	return int(((addr + mask) &^ mask) - addr)
}
