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

import "github.com/cockroachdb/errors"

// backbone is a doubly linked list of nodes bounded by two permanent
// sentinels. It owns every node: a node exists exactly as long as it is
// between head and tail (or is being constructed or destroyed by the Map).
//
//	head <-> n1 <-> n2 <-> ... <-> nk <-> tail
//
// head.prev and tail.next are always none, which is what stops iteration
// from stepping off either end.
type backbone[K comparable, V any] struct {
	nodes []Node[K, V]
	hwm   int32
	free  int32
	// The number of real (non-sentinel) nodes in the list.
	len int
	// The seq of the most recently allocated node. Survives Init and
	// CopyFrom so that a walk in progress can tell old nodes from new ones.
	seq uint64
}

// linked returns true if i refers to the head sentinel or to a node that is
// currently linked into the list.
func (l *backbone[K, V]) linked(i int32) bool {
	if i < 0 || i >= l.hwm {
		return false
	}
	return i == headIdx || l.nodes[i].prev != none
}

// insertBefore splices the unlinked node i immediately before pos.
func (l *backbone[K, V]) insertBefore(pos, i int32) error {
	if pos == headIdx {
		return errors.Wrap(ErrInvalidPosition, "cannot insert before the head sentinel")
	}
	if !l.linked(pos) {
		return errors.Wrapf(ErrInvalidPosition, "node %d is not in the list", pos)
	}
	prev := l.nodes[pos].prev
	n := &l.nodes[i]
	n.prev = prev
	n.next = pos
	l.nodes[prev].next = i
	l.nodes[pos].prev = i
	l.len++
	return nil
}

// pushBack appends the unlinked node i.
func (l *backbone[K, V]) pushBack(i int32) {
	if err := l.insertBefore(tailIdx, i); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "append node %d", i))
	}
}

// eraseAt unlinks the node at pos and returns the node that followed it.
// Ownership of pos passes to the caller, which must release it.
func (l *backbone[K, V]) eraseAt(pos int32) (next int32, _ error) {
	if pos == headIdx || pos == tailIdx {
		return none, errors.Wrap(ErrInvalidPosition, "cannot erase a sentinel")
	}
	if !l.linked(pos) {
		return none, errors.Wrapf(ErrInvalidPosition, "node %d is not in the list", pos)
	}
	if l.len == 0 {
		return none, ErrEmptyContainer
	}
	n := &l.nodes[pos]
	next = n.next
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
	n.prev, n.next = none, none
	l.len--
	return next, nil
}

func (l *backbone[K, V]) front() (int32, error) {
	if l.len == 0 {
		return none, ErrEmptyContainer
	}
	return l.nodes[headIdx].next, nil
}

func (l *backbone[K, V]) back() (int32, error) {
	if l.len == 0 {
		return none, ErrEmptyContainer
	}
	return l.nodes[tailIdx].prev, nil
}

// advance returns the node after pos. Advancing from tail fails.
func (l *backbone[K, V]) advance(pos int32) (int32, error) {
	if !l.linked(pos) {
		return none, errors.Wrapf(ErrInvalidIterator, "node %d is not in the list", pos)
	}
	next := l.nodes[pos].next
	if next == none {
		return none, errors.Wrap(ErrInvalidIterator, "advance past the end")
	}
	return next, nil
}

// retreat returns the node before pos. Retreating from the first real node
// (or from tail when the list is empty) would land on head and fails.
func (l *backbone[K, V]) retreat(pos int32) (int32, error) {
	if pos == headIdx || !l.linked(pos) {
		return none, errors.Wrapf(ErrInvalidIterator, "node %d is not in the list", pos)
	}
	prev := l.nodes[pos].prev
	if l.nodes[prev].prev == none {
		return none, errors.Wrap(ErrInvalidIterator, "retreat past the beginning")
	}
	return prev, nil
}

// clear releases every real node in order and relinks head and tail. The
// arena keeps its size.
func (l *backbone[K, V]) clear() {
	for i := l.nodes[headIdx].next; i != tailIdx; {
		next := l.nodes[i].next
		l.release(i)
		i = next
	}
	l.nodes[headIdx].next = tailIdx
	l.nodes[tailIdx].prev = headIdx
	l.len = 0
}

// resume returns the node a walk should continue from after the node numbered
// seq has been removed: the first node with a larger seq when moving forward,
// or the last node with a smaller seq when moving backward. It returns the
// sentinel ending the walk if there is none.
func (l *backbone[K, V]) resume(seq uint64, forward bool) int32 {
	if forward {
		// New nodes are appended, so scan back from the tail.
		i := tailIdx
		for p := l.nodes[i].prev; p != headIdx && l.nodes[p].seq > seq; p = l.nodes[p].prev {
			i = p
		}
		return i
	}
	i := headIdx
	for n := l.nodes[i].next; n != tailIdx && l.nodes[n].seq < seq; n = l.nodes[n].next {
		i = n
	}
	return i
}
