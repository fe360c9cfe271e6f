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

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const (
	defaultCapacity = 131
	defaultMaxLoad  = 75
)

func defaultGrowth(capacity int) int {
	return capacity*2 + 3
}

// index is a separately chained hash index over the backbone's nodes. Each
// bucket holds the first node of a singly linked chain threaded through
// Node.chain. The index never owns nodes; it only references them.
type index[K comparable, V any] struct {
	buckets []int32
	// Grow when len*100 > len(buckets)*maxLoad.
	maxLoad int
	growth  func(capacity int) int
}

func (x *index[K, V]) init(m *Map[K, V], capacity int) {
	x.buckets = m.allocator.AllocBuckets(capacity)
	x.reset()
}

func (x *index[K, V]) capacity() int {
	return len(x.buckets)
}

// bucket returns the bucket for key under the current capacity.
func (x *index[K, V]) bucket(m *Map[K, V], key *K) int {
	return int(m.hash(noescape(unsafe.Pointer(key)), m.seed) % uintptr(len(x.buckets)))
}

// locate returns the node holding key, or none.
func (x *index[K, V]) locate(m *Map[K, V], key K) int32 {
	nodes := m.list.nodes
	for i := x.buckets[x.bucket(m, &key)]; i != none; i = nodes[i].chain {
		if m.equal(nodes[i].key, key) {
			return i
		}
	}
	return none
}

// link prepends node i to the chain of its bucket. The caller guarantees no
// other node holds an equal key.
func (x *index[K, V]) link(m *Map[K, V], i int32) {
	n := &m.list.nodes[i]
	b := x.bucket(m, &n.key)
	n.chain = x.buckets[b]
	x.buckets[b] = i
}

// unlink removes node i from the chain of its bucket. The bucket is derived
// from the node's key again, which relies on the hash function being pure.
func (x *index[K, V]) unlink(m *Map[K, V], i int32) {
	nodes := m.list.nodes
	b := x.bucket(m, &nodes[i].key)
	for p := &x.buckets[b]; *p != none; p = &nodes[*p].chain {
		if *p == i {
			*p = nodes[i].chain
			nodes[i].chain = none
			return
		}
	}
	panic(errors.AssertionFailedf("node %d (key %v) not found in bucket %d\n%s",
		i, nodes[i].key, b, m.debugString()))
}

// growIfNeeded grows and rehashes the index if holding count entries exceeds
// the maximum load. It must be called before a new node is linked.
func (x *index[K, V]) growIfNeeded(m *Map[K, V], count int) bool {
	if count*100 <= len(x.buckets)*x.maxLoad {
		return false
	}
	newCapacity := x.growth(len(x.buckets))
	if newCapacity <= len(x.buckets) {
		panic(errors.AssertionFailedf("growth from %d buckets to %d does not increase capacity",
			len(x.buckets), newCapacity))
	}
	x.resize(m, newCapacity)
	return true
}

// resize allocates a bucket array of newCapacity buckets and relinks every
// node into it in backbone order. Nodes do not move.
func (x *index[K, V]) resize(m *Map[K, V], newCapacity int) {
	old := x.buckets
	x.init(m, newCapacity)

	nodes := m.list.nodes
	for i := nodes[headIdx].next; i != tailIdx; i = nodes[i].next {
		x.link(m, i)
	}

	if debug {
		fmt.Printf("resize: capacity=%d->%d  len=%d\n", len(old), newCapacity, m.list.len)
	}

	if old != nil {
		m.allocator.FreeBuckets(old)
	}
}

// reset empties every bucket without changing the capacity.
func (x *index[K, V]) reset() {
	for i := range x.buckets {
		x.buckets[i] = none
	}
}

func (x *index[K, V]) free(m *Map[K, V]) {
	if x.buckets != nil {
		m.allocator.FreeBuckets(x.buckets)
	}
	x.buckets = nil
}
