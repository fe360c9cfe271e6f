// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linkedhash

import "fmt"

const (
	// none is the null node link.
	none int32 = -1

	// The head and tail sentinels occupy the first two nodes of every arena.
	headIdx int32 = 0
	tailIdx int32 = 1

	minNodes = 8
)

// Node holds a key and value along with the links that place it in the
// backbone (prev, next) and in a bucket chain (chain). Links are indexes into
// the node arena rather than pointers so that the arena can be reallocated
// without invalidating them.
type Node[K comparable, V any] struct {
	key   K
	value V
	prev  int32
	next  int32
	chain int32
	// gen is incremented every time the node is released, so that iterators
	// referring to a previous occupant of the slot can be detected.
	gen uint32
	// seq numbers nodes in allocation order. It increases from head to tail.
	seq uint64
}

// The node arena is owned by the backbone. Slots in [0, hwm) have been handed
// out at least once. Released slots are kept on a free list threaded through
// Node.next and are reused before the arena is grown.

// initNodes allocates an arena able to hold hint entries without growing and
// links the head and tail sentinels.
func (l *backbone[K, V]) initNodes(a Allocator[K, V], hint int) {
	n := hint + 2
	if n < minNodes {
		n = minNodes
	}
	l.nodes = a.AllocNodes(n)
	l.nodes[headIdx] = Node[K, V]{prev: none, next: tailIdx, chain: none}
	l.nodes[tailIdx] = Node[K, V]{prev: headIdx, next: none, chain: none}
	l.hwm = 2
	l.free = none
	l.len = 0
}

// alloc constructs a node in place and returns its index. The node is not
// linked into the backbone or any bucket chain.
func (l *backbone[K, V]) alloc(a Allocator[K, V], key K, value V) int32 {
	var i int32
	switch {
	case l.free != none:
		i = l.free
		l.free = l.nodes[i].next
	case int(l.hwm) < len(l.nodes):
		i = l.hwm
		l.hwm++
	default:
		l.growNodes(a)
		i = l.hwm
		l.hwm++
	}
	l.seq++
	n := &l.nodes[i]
	n.key = key
	n.value = value
	n.prev, n.next, n.chain = none, none, none
	n.seq = l.seq
	return i
}

// release destroys the node at index i, which must already be unlinked from
// both the backbone and its bucket chain, and returns the slot to the free
// list.
func (l *backbone[K, V]) release(i int32) {
	n := &l.nodes[i]
	*n = Node[K, V]{
		prev:  none,
		next:  l.free,
		chain: none,
		gen:   n.gen + 1,
	}
	l.free = i
}

// growNodes doubles the size of the arena. Nodes keep their indexes.
func (l *backbone[K, V]) growNodes(a Allocator[K, V]) {
	old := l.nodes
	l.nodes = a.AllocNodes(2 * len(old))
	copy(l.nodes, old)
	a.FreeNodes(old)
	if debug {
		fmt.Printf("grow-nodes: %d->%d\n", len(old), len(l.nodes))
	}
}

// freeNodes returns the arena to the allocator.
func (l *backbone[K, V]) freeNodes(a Allocator[K, V]) {
	if l.nodes != nil {
		a.FreeNodes(l.nodes)
	}
	l.nodes = nil
	l.hwm = 0
	l.free = none
	l.len = 0
}
