package skiplist

import (
	"encoding/binary"

	"github.com/matthieu-m/storage/store"
)

// A node is one block: a fixed header followed by its links.
//
//	entry     H       payload block holding key then value bytes
//	keySize   uint32
//	valueSize uint32
//	links     uint8   number of trailing links
//	next      [links]H
//
// Every chain ends at the only node with zero links, the tail.
type nodeLayout struct {
	handleSize int
	keySizeAt  int
	valSizeAt  int
	linksAt    int
	nextAt     int
	header     int
	align      int
}

func newNodeLayout[H store.Handle]() (nodeLayout, error) {
	u32 := store.LayoutOf[uint32]()
	h := store.HandleLayout[H]()

	l, keySizeAt, err := h.Extend(u32)
	if err != nil {
		return nodeLayout{}, err
	}
	l, valSizeAt, err := l.Extend(u32)
	if err != nil {
		return nodeLayout{}, err
	}
	l, linksAt, err := l.Extend(store.LayoutOf[uint8]())
	if err != nil {
		return nodeLayout{}, err
	}
	l, nextAt, err := l.Extend(store.Layout{Size: 0, Align: h.Align})
	if err != nil {
		return nodeLayout{}, err
	}

	return nodeLayout{
		handleSize: h.Size,
		keySizeAt:  keySizeAt,
		valSizeAt:  valSizeAt,
		linksAt:    linksAt,
		nextAt:     nextAt,
		header:     l.Size,
		align:      l.Align,
	}, nil
}

// of returns the layout of a node with the given number of links.
func (nl nodeLayout) of(links int) store.Layout {
	return store.Layout{Size: nl.header + links*nl.handleSize, Align: nl.align}
}

// header is the decoded fixed part of a node.
type header[H store.Handle] struct {
	entry     H
	keySize   int
	valueSize int
	links     int
}

func (l *SkipList[H, K, V]) readHeader(n H) header[H] {
	b := store.Bytes(l.s, n, l.nl.header)
	return header[H]{
		entry:     store.ReadHandle[H](b),
		keySize:   int(binary.LittleEndian.Uint32(b[l.nl.keySizeAt:])),
		valueSize: int(binary.LittleEndian.Uint32(b[l.nl.valSizeAt:])),
		links:     int(b[l.nl.linksAt]),
	}
}

func (l *SkipList[H, K, V]) writeHeader(n H, hdr header[H]) {
	b := store.Bytes(l.s, n, l.nl.header)
	store.PutHandle(b, hdr.entry)
	binary.LittleEndian.PutUint32(b[l.nl.keySizeAt:], uint32(hdr.keySize))
	binary.LittleEndian.PutUint32(b[l.nl.valSizeAt:], uint32(hdr.valueSize))
	b[l.nl.linksAt] = uint8(hdr.links)
}

func (l *SkipList[H, K, V]) links(n H) int {
	return int(store.Bytes(l.s, n, l.nl.header)[l.nl.linksAt])
}

func (l *SkipList[H, K, V]) setLinks(n H, links int) {
	store.Bytes(l.s, n, l.nl.header)[l.nl.linksAt] = uint8(links)
}

func (l *SkipList[H, K, V]) linkSlot(n H, level int) []byte {
	end := l.nl.nextAt + (level+1)*l.nl.handleSize
	return store.Bytes(l.s, n, end)[end-l.nl.handleSize:]
}

func (l *SkipList[H, K, V]) next(n H, level int) H {
	return store.ReadHandle[H](l.linkSlot(n, level))
}

func (l *SkipList[H, K, V]) setNext(n H, level int, to H) {
	store.PutHandle(l.linkSlot(n, level), to)
}

// entry holds the payload block of a node.
type entry[H store.Handle] struct {
	h         H
	keySize   int
	valueSize int
}

func (e entry[H]) size() int {
	return e.keySize + e.valueSize
}

func (l *SkipList[H, K, V]) entryOf(n H) entry[H] {
	hdr := l.readHeader(n)
	return entry[H]{h: hdr.entry, keySize: hdr.keySize, valueSize: hdr.valueSize}
}

func (l *SkipList[H, K, V]) setEntry(n H, e entry[H]) {
	hdr := l.readHeader(n)
	hdr.entry, hdr.keySize, hdr.valueSize = e.h, e.keySize, e.valueSize
	l.writeHeader(n, hdr)
}

func (l *SkipList[H, K, V]) newEntry(key K, value V) (entry[H], error) {
	e := entry[H]{keySize: l.keys.Size(key), valueSize: l.values.Size(value)}
	if uint64(e.keySize) > maxPayload || uint64(e.valueSize) > maxPayload {
		return entry[H]{}, store.ErrAlloc
	}

	var err error
	if e.size() == 0 {
		e.h, err = l.s.Dangling(1)
	} else {
		e.h, _, err = l.s.Allocate(store.MustLayout(e.size(), 1))
	}
	if err != nil {
		return entry[H]{}, err
	}

	b := store.Bytes(l.s, e.h, e.size())
	l.keys.Encode(b[:e.keySize], key)
	l.values.Encode(b[e.keySize:], value)
	return e, nil
}

func (l *SkipList[H, K, V]) freeEntry(e entry[H]) {
	if e.size() > 0 {
		l.s.Deallocate(e.h, store.MustLayout(e.size(), 1))
	}
}

func (l *SkipList[H, K, V]) decodeKey(e entry[H]) K {
	return l.keys.Decode(store.Bytes(l.s, e.h, e.keySize))
}

func (l *SkipList[H, K, V]) decodeValue(e entry[H]) V {
	b := store.Bytes(l.s, e.h, e.size())
	return l.values.Decode(b[e.keySize:])
}

func (l *SkipList[H, K, V]) key(n H) K {
	return l.decodeKey(l.entryOf(n))
}

func (l *SkipList[H, K, V]) value(n H) V {
	return l.decodeValue(l.entryOf(n))
}

// newNode allocates a node holding e. Its links are left for the caller to
// fill.
func (l *SkipList[H, K, V]) newNode(links int, e entry[H]) (H, error) {
	n, _, err := l.s.Allocate(l.nl.of(links))
	if err != nil {
		return 0, err
	}
	l.writeHeader(n, header[H]{entry: e.h, keySize: e.keySize, valueSize: e.valueSize, links: links})
	return n, nil
}

func (l *SkipList[H, K, V]) freeNode(n H) {
	hdr := l.readHeader(n)
	l.freeEntry(entry[H]{h: hdr.entry, keySize: hdr.keySize, valueSize: hdr.valueSize})
	l.s.Deallocate(n, l.nl.of(hdr.links))
}
