// Package skiplist implements an ordered map kept in a store, one block per
// node.
//
// A node carries its links in the same block as its header. There is no
// sentinel: the head is the node with the smallest key and changes whenever a
// smaller key is inserted. The node with the largest key is the tail; it is
// the only node without links, and every level ends at it. The head has at
// least as many links as any other node.
//
// A SkipList is not safe for concurrent use. Keys and values are copied in
// and out of the store through codecs.
package skiplist

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"math/bits"
	"math/rand/v2"

	"github.com/matthieu-m/storage/codec"
	"github.com/matthieu-m/storage/internal/debug"
	"github.com/matthieu-m/storage/store"
)

const (
	maxLevels  = 32
	maxPayload = 1<<32 - 1

	// pcgStream is the second word of the level generator state.
	pcgStream = 0x9e3779b97f4a7c15
)

// Entry is a key and its value.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// SkipList is an ordered map from K to V over a store.Multiple store.
type SkipList[H store.Handle, K, V any] struct {
	s       store.Store[H]
	keys    codec.Codec[K]
	values  codec.Codec[V]
	compare func(a, b K) int
	logger  *slog.Logger

	rng    *rand.PCG
	seeded bool

	nl     nodeLayout
	head   H
	tail   H
	length int
}

// New creates an empty list ordering keys with cmp.Compare.
func New[H store.Handle, K cmp.Ordered, V any](s store.Store[H], keys codec.Codec[K], values codec.Codec[V], opts ...Option) (*SkipList[H, K, V], error) {
	return NewFunc(s, cmp.Compare[K], keys, values, opts...)
}

// NewFunc creates an empty list ordering keys with compare, which returns a
// negative number, zero or a positive number as a is less than, equal to or
// greater than b.
func NewFunc[H store.Handle, K, V any](s store.Store[H], compare func(a, b K) int, keys codec.Codec[K], values codec.Codec[V], opts ...Option) (*SkipList[H, K, V], error) {
	if err := store.Require(s, store.Multiple); err != nil {
		return nil, fmt.Errorf("skiplist: %w", err)
	}
	nl, err := newNodeLayout[H]()
	if err != nil {
		return nil, fmt.Errorf("skiplist: node layout: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	l := &SkipList[H, K, V]{
		s:       s,
		keys:    keys,
		values:  values,
		compare: compare,
		logger:  o.logger,
		nl:      nl,
	}
	if o.seeded {
		l.rng = rand.NewPCG(o.seed, pcgStream)
		l.seeded = true
	}
	return l, nil
}

// Len returns the number of keys.
func (l *SkipList[H, K, V]) Len() int {
	return l.length
}

// IsEmpty reports whether the list holds no key.
func (l *SkipList[H, K, V]) IsEmpty() bool {
	return l.length == 0
}

// Height returns the number of levels, that is the link count of the head.
func (l *SkipList[H, K, V]) Height() int {
	if l.length == 0 {
		return 0
	}
	return l.links(l.head)
}

// Get returns the value of key, if present.
func (l *SkipList[H, K, V]) Get(key K) (V, bool) {
	n, ok := l.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return l.value(n), true
}

// Contains reports whether key is present.
func (l *SkipList[H, K, V]) Contains(key K) bool {
	_, ok := l.find(key)
	return ok
}

// Update replaces the value of key with fn applied to it. It reports whether
// key was present; the list is unchanged when an error is returned.
func (l *SkipList[H, K, V]) Update(key K, fn func(V) V) (bool, error) {
	n, ok := l.find(key)
	if !ok {
		return false, nil
	}

	old := l.entryOf(n)
	e, err := l.newEntry(l.decodeKey(old), fn(l.decodeValue(old)))
	if err != nil {
		return true, fmt.Errorf("skiplist: update: %w", err)
	}
	l.setEntry(n, e)
	l.freeEntry(old)
	return true, nil
}

// Insert maps key to value. When key was already present, its previous key
// and value are returned and replaced is set.
func (l *SkipList[H, K, V]) Insert(key K, value V) (prev Entry[K, V], replaced bool, err error) {
	e, err := l.newEntry(key, value)
	if err != nil {
		return prev, false, fmt.Errorf("skiplist: insert: %w", err)
	}

	if l.length == 0 {
		err = l.insertFirst(e)
	} else {
		prev, replaced, err = l.insert(key, e)
	}
	if err != nil {
		l.freeEntry(e)
		return prev, false, fmt.Errorf("skiplist: insert: %w", err)
	}
	return prev, replaced, nil
}

func (l *SkipList[H, K, V]) insertFirst(e entry[H]) error {
	n, err := l.newNode(0, e)
	if err != nil {
		return err
	}
	if !l.seeded {
		l.rng = rand.NewPCG(uint64(store.Addr(l.s, n)), pcgStream)
		l.seeded = true
	}

	l.head, l.tail, l.length = n, n, 1
	return nil
}

func (l *SkipList[H, K, V]) insert(key K, e entry[H]) (Entry[K, V], bool, error) {
	c := l.compare(key, l.key(l.head))
	if c == 0 {
		return l.replace(l.head, e), true, nil
	}

	target := l.randomLevels()
	if c < 0 {
		return Entry[K, V]{}, false, l.insertHead(e, target)
	}
	if l.links(l.head) == 0 {
		return Entry[K, V]{}, false, l.insertAfterSingle(e, target)
	}

	var prev [maxLevels]H
	height := l.links(l.head)
	beyond := false

	cur := l.head
	for level := height - 1; level >= 0; level-- {
		for {
			nx := l.next(cur, level)
			c := l.compare(key, l.key(nx))
			if c == 0 {
				return l.replace(nx, e), true, nil
			}
			if c < 0 {
				break
			}
			if nx == l.tail {
				beyond = true
				break
			}
			cur = nx
		}
		prev[level] = cur
	}

	// A key past the tail takes the place of the tail, and the new node takes
	// the old tail key, right before it.
	nodeEntry := e
	if beyond {
		nodeEntry = l.entryOf(l.tail)
	}

	n, err := l.newNode(target, nodeEntry)
	if err != nil {
		return Entry[K, V]{}, false, err
	}

	if target > height {
		oldHead := l.head
		if err := l.growHead(height, target, n); err != nil {
			l.s.Deallocate(n, l.nl.of(target))
			return Entry[K, V]{}, false, err
		}
		for level := range height {
			if prev[level] == oldHead {
				prev[level] = l.head
			}
		}
		for level := height; level < target; level++ {
			l.setNext(n, level, l.tail)
		}
	}

	for level := range min(target, height) {
		l.setNext(n, level, l.next(prev[level], level))
		l.setNext(prev[level], level, n)
	}
	if beyond {
		l.setEntry(l.tail, e)
	}

	l.length++
	return Entry[K, V]{}, false, nil
}

// insertHead makes a node holding e the new head. It keeps every level of the
// old head; levels above it go straight to the tail.
func (l *SkipList[H, K, V]) insertHead(e entry[H], target int) error {
	height := l.links(l.head)
	links := max(target, height)

	n, err := l.newNode(links, e)
	if err != nil {
		return err
	}
	for level := range links {
		if level < height {
			l.setNext(n, level, l.head)
		} else {
			l.setNext(n, level, l.tail)
		}
	}

	l.head = n
	l.length++
	return nil
}

// insertAfterSingle adds a key greater than the only key of the list. The
// single node stays the tail and takes e; the new node takes its old entry
// and becomes the head.
func (l *SkipList[H, K, V]) insertAfterSingle(e entry[H], target int) error {
	tail := l.head
	n, err := l.newNode(target, l.entryOf(tail))
	if err != nil {
		return err
	}
	for level := range target {
		l.setNext(n, level, tail)
	}
	l.setEntry(tail, e)

	l.head = n
	l.length++
	return nil
}

// growHead adds links [height, target) to the head, all pointing at n.
func (l *SkipList[H, K, V]) growHead(height, target int, n H) error {
	h, _, err := store.Grow(l.s, l.head, l.nl.of(height), l.nl.of(target))
	if err != nil {
		return err
	}

	l.head = h
	l.setLinks(h, target)
	for level := height; level < target; level++ {
		l.setNext(h, level, n)
	}

	l.logger.Debug("skiplist head grown", "from", height, "to", target, "len", l.length)
	return nil
}

// replace swaps the entry of n for e and returns the old key and value.
func (l *SkipList[H, K, V]) replace(n H, e entry[H]) Entry[K, V] {
	old := l.entryOf(n)
	prev := Entry[K, V]{Key: l.decodeKey(old), Value: l.decodeValue(old)}

	l.setEntry(n, e)
	l.freeEntry(old)
	return prev
}

// randomLevels draws a level count with a probability of one half per extra
// level.
func (l *SkipList[H, K, V]) randomLevels() int {
	r := uint32(l.rng.Uint64()) | 1
	return min(bits.TrailingZeros32(^r), maxLevels)
}

func (l *SkipList[H, K, V]) find(key K) (H, bool) {
	if l.length == 0 {
		return 0, false
	}
	c := l.compare(key, l.key(l.head))
	if c == 0 {
		return l.head, true
	}
	if c < 0 {
		return 0, false
	}

	cur := l.head
	for level := l.links(l.head) - 1; level >= 0; level-- {
		for {
			nx := l.next(cur, level)
			c := l.compare(key, l.key(nx))
			if c == 0 {
				return nx, true
			}
			if c < 0 {
				break
			}
			if nx == l.tail {
				return 0, false
			}
			cur = nx
		}
	}
	return 0, false
}

// seek returns the first node whose key is not less than key.
func (l *SkipList[H, K, V]) seek(key K) (H, bool) {
	if l.length == 0 {
		return 0, false
	}
	if l.compare(key, l.key(l.head)) <= 0 {
		return l.head, true
	}
	if l.head == l.tail {
		return 0, false
	}

	cur := l.head
	for level := l.links(l.head) - 1; level >= 0; level-- {
		for {
			nx := l.next(cur, level)
			if l.compare(key, l.key(nx)) <= 0 {
				break
			}
			if nx == l.tail {
				return 0, false
			}
			cur = nx
		}
	}
	return l.next(cur, 0), true
}

// Clear removes every key and releases every node.
func (l *SkipList[H, K, V]) Clear() {
	if l.length == 0 {
		return
	}
	n := l.length
	l.length = 0

	h := l.head
	for {
		links := l.links(h)
		var nx H
		if links > 0 {
			nx = l.next(h, 0)
		}
		l.freeNode(h)
		n--
		if links == 0 {
			break
		}
		h = nx
	}
	debug.Assert(n == 0, "skiplist: %d nodes left after clear", n)

	l.head, l.tail = 0, 0
}

// All iterates over the keys in increasing order. The list must not be
// modified during iteration.
func (l *SkipList[H, K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if l.length == 0 {
			return
		}
		for n := l.head; ; n = l.next(n, 0) {
			e := l.entryOf(n)
			if !yield(l.decodeKey(e), l.decodeValue(e)) {
				return
			}
			if n == l.tail {
				return
			}
		}
	}
}

// LinkHistogram returns the number of nodes per link count.
func (l *SkipList[H, K, V]) LinkHistogram() []int {
	hist := make([]int, l.Height()+1)
	if l.length == 0 {
		return hist[:0]
	}
	for n := l.head; ; n = l.next(n, 0) {
		hist[l.links(n)]++
		if n == l.tail {
			return hist
		}
	}
}

func (l *SkipList[H, K, V]) String() string {
	return fmt.Sprintf("skiplist{len: %d, height: %d}", l.length, l.Height())
}
