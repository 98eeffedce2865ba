package codec

import "bytes"

// String stores a string as its raw bytes.
type String struct{}

func (String) Size(v string) int { return len(v) }

func (String) Encode(dst []byte, v string) { copy(dst, v) }

func (String) Decode(src []byte) string { return string(src) }

// Bytes stores a byte slice as is. Decoded slices are copies.
type Bytes struct{}

func (Bytes) Size(v []byte) int { return len(v) }

func (Bytes) Encode(dst []byte, v []byte) { copy(dst, v) }

func (Bytes) Decode(src []byte) []byte { return bytes.Clone(src) }
