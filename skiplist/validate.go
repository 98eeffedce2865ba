package skiplist

import "fmt"

// Validate walks every level and checks the structure of the list: keys
// strictly increase along each level, every level ends at the tail, the tail
// is the only node without links, and no node has more links than the head.
func (l *SkipList[H, K, V]) Validate() error {
	if l.length == 0 {
		return nil
	}

	height := l.links(l.head)
	if l.head == l.tail {
		if l.length != 1 || height != 0 {
			return fmt.Errorf("single node list of length %d with %d links", l.length, height)
		}
		return nil
	}
	if height == 0 {
		return fmt.Errorf("head without links in a list of length %d", l.length)
	}
	if links := l.links(l.tail); links != 0 {
		return fmt.Errorf("tail has %d links", links)
	}

	count := 1
	for n := l.head; n != l.tail; count++ {
		if count > l.length {
			return fmt.Errorf("level 0 holds more than %d nodes", l.length)
		}
		links := l.links(n)
		if links == 0 {
			return fmt.Errorf("node %d of level 0 has no links before the tail", count)
		}
		if links > height {
			return fmt.Errorf("node %d has %d links, head only %d", count, links, height)
		}
		n = l.next(n, 0)
	}
	if count != l.length {
		return fmt.Errorf("level 0 holds %d nodes, length is %d", count, l.length)
	}

	for level := range height {
		n, steps := l.head, 0
		for n != l.tail {
			if l.links(n) <= level {
				return fmt.Errorf("level %d reaches a node with %d links", level, l.links(n))
			}
			nx := l.next(n, level)
			if l.compare(l.key(n), l.key(nx)) >= 0 {
				return fmt.Errorf("level %d: keys out of order after %d steps", level, steps)
			}
			n = nx
			if steps++; steps > l.length {
				return fmt.Errorf("level %d does not reach the tail", level)
			}
		}
	}
	return nil
}
