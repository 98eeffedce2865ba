package skiplist

import "github.com/matthieu-m/storage/store"

// Iterator walks a list forward. Any modification of the list invalidates it.
type Iterator[H store.Handle, K, V any] struct {
	l     *SkipList[H, K, V]
	cur   H
	valid bool
}

// NewIterator returns an iterator that is not yet positioned.
func (l *SkipList[H, K, V]) NewIterator() *Iterator[H, K, V] {
	return &Iterator[H, K, V]{l: l}
}

// SeekToFirst moves to the smallest key.
func (it *Iterator[H, K, V]) SeekToFirst() {
	it.cur, it.valid = it.l.head, it.l.length > 0
}

// Seek moves to the first key greater than or equal to key.
func (it *Iterator[H, K, V]) Seek(key K) {
	it.cur, it.valid = it.l.seek(key)
}

// Next moves to the following key.
func (it *Iterator[H, K, V]) Next() {
	if !it.valid {
		return
	}
	if it.cur == it.l.tail {
		it.valid = false
		return
	}
	it.cur = it.l.next(it.cur, 0)
}

// Valid reports whether the iterator is positioned on a key.
func (it *Iterator[H, K, V]) Valid() bool {
	return it.valid
}

func (it *Iterator[H, K, V]) Key() K {
	return it.l.key(it.cur)
}

func (it *Iterator[H, K, V]) Value() V {
	return it.l.value(it.cur)
}
