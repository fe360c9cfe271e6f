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

// package linkedhash is a Go implementation of an insertion-ordered hash map,
// similar in spirit to Java's LinkedHashMap. Iteration visits entries in the
// order their keys were first inserted. Re-inserting or updating a key does
// not change its position.
//
// # Structure
//
// A Map fuses two data structures over a single set of nodes:
//
//   - A doubly linked backbone bounded by two permanent sentinel nodes (head
//     and tail). The backbone owns every node and defines iteration order.
//
//   - A hash index using separate chaining. The index is an array of bucket
//     heads, each the start of a singly linked chain of the nodes whose keys
//     hash to that bucket. The index only references nodes and has no
//     ordering semantics.
//
// The nodes are shared by both structures:
//
//	buckets:  [0]  [1]  [2]  ...  [capacity-1]
//	           |         |
//	           v         v
//	head <-> n1 <-> n2 <-> n3 <-> tail
//	           \_chain_______/
//
// Nodes live in an arena and refer to each other by index, so growing the
// arena or the bucket array never invalidates an Iterator. Growth of the
// bucket array is triggered lazily before an insert that would push the load
// factor (entries / buckets) over the configured maximum (75% by default).
// Growth allocates a new bucket array of capacity*2+3 buckets and relinks
// every node into it in backbone order. The initial capacity is 131 buckets.
//
// # Iterators
//
// An Iterator is a handle to a node scoped to the Map that created it.
// Iterators remain valid across every mutation except the erasure of the
// entry they refer to. Using an Iterator after its Map has been closed is a
// precondition violation.
package linkedhash

import (
	"fmt"
	"hash/maphash"
	"math/rand/v2"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const debug = false

// Map is a hash map from keys to values that iterates in insertion order. It
// supports Put, Insert, Get, Find, Erase and Delete in expected constant
// time. By default, a Map[K,V] hashes keys with hash/maphash, though a
// different hash function can be specified using the WithHash option.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	hash  hashFn
	seed  uintptr
	equal func(a, b K) bool
	// The allocator to use for the nodes and buckets slices.
	allocator Allocator[K, V]
	list      backbone[K, V]
	index     index[K, V]
	// epoch changes whenever the node arena is replaced wholesale (Init,
	// CopyFrom), invalidating every outstanding iterator.
	epoch uint32
}

// New constructs a new Map with the specified initial bucket count. If
// initialCapacity is 0 the default of 131 buckets is used.
func New[K comparable, V any](initialCapacity int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(initialCapacity, options...)
	return m
}

// Init initializes a Map with the specified initial bucket count and options.
// Any existing contents are discarded without being released to the
// allocator; call Close first if that matters.
func (m *Map[K, V]) Init(initialCapacity int, options ...option[K, V]) {
	epoch, seq := m.epoch+1, m.list.seq
	*m = Map[K, V]{
		epoch:     epoch,
		list:      backbone[K, V]{seq: seq},
		hash:      defaultHash[K](),
		seed:      uintptr(rand.Uint64()),
		equal:     defaultEqual[K],
		allocator: defaultAllocator[K, V]{},
		index: index[K, V]{
			maxLoad: defaultMaxLoad,
			growth:  defaultGrowth,
		},
	}

	for _, op := range options {
		op.apply(m)
	}
	if m.index.maxLoad <= 0 {
		panic(errors.Newf("linkedhash: max load must be positive, got %d", m.index.maxLoad))
	}

	// An explicit capacity also sizes the node arena for the entries the
	// buckets can hold before growing.
	var hint int
	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	} else {
		hint = initialCapacity*m.index.maxLoad/100 + 1
	}
	m.list.initNodes(m.allocator, hint)
	m.index.init(m, initialCapacity)
	m.checkInvariants()
}

// hashFn is the type-erased form of the hash function passed to WithHash.
// Keys are passed through noescape so that lookups do not move them to the
// heap.
type hashFn func(key unsafe.Pointer, seed uintptr) uintptr

func defaultHash[K comparable]() hashFn {
	s := maphash.MakeSeed()
	return func(key unsafe.Pointer, _ uintptr) uintptr {
		return uintptr(maphash.Comparable(s, *(*K)(key)))
	}
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

func defaultEqual[K comparable](a, b K) bool {
	return a == b
}

// Clone returns a deep copy of the map. The copy uses the same options,
// iterates in the same order and starts out with the same bucket count.
// Mutating one map never affects the other. Cloning a closed map panics with
// ErrClosed.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.checkOpen("clone")
	c := &Map[K, V]{allocator: m.allocator}
	c.copyFrom(m)
	return c
}

// CopyFrom replaces the contents of the map with a deep copy of src, releasing
// the map's current storage. The map adopts src's hash function, equality
// function and growth policy, but keeps its own allocator. Iterators into the
// map are invalidated. Copying into or out of a closed map panics with
// ErrClosed.
func (m *Map[K, V]) CopyFrom(src *Map[K, V]) {
	m.checkOpen("copy into")
	src.checkOpen("copy from")
	if m == src {
		return
	}
	m.release()
	m.epoch++
	m.copyFrom(src)
}

func (m *Map[K, V]) copyFrom(src *Map[K, V]) {
	m.hash = src.hash
	m.seed = src.seed
	m.equal = src.equal
	m.index.maxLoad = src.index.maxLoad
	m.index.growth = src.index.growth

	m.list.initNodes(m.allocator, src.list.len)
	m.index.init(m, src.index.capacity())

	nodes := src.list.nodes
	for i := nodes[headIdx].next; i != tailIdx; i = nodes[i].next {
		j := m.list.alloc(m.allocator, nodes[i].key, nodes[i].value)
		m.list.pushBack(j)
		m.index.link(m, j)
	}
	m.checkInvariants()
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator. It
// is invalid to use a Map or any of its iterators after it has been closed,
// though Close itself is idempotent.
func (m *Map[K, V]) Close() {
	if m.allocator == nil {
		return
	}
	m.release()
	m.allocator = nil
}

func (m *Map[K, V]) checkOpen(op string) {
	if m.allocator == nil {
		panic(errors.Wrapf(ErrClosed, "%s map", op))
	}
}

func (m *Map[K, V]) release() {
	m.list.freeNodes(m.allocator)
	m.index.free(m)
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. Overwriting does not change the
// position of the entry.
func (m *Map[K, V]) Put(key K, value V) {
	if i := m.index.locate(m, key); i != none {
		m.list.nodes[i].value = value
		return
	}
	m.uncheckedPut(key, value)
}

// Insert inserts an entry into the map if no entry with the same key exists,
// returning an iterator to the new entry and true. Otherwise the map is left
// unchanged and an iterator to the existing entry is returned with false.
func (m *Map[K, V]) Insert(key K, value V) (Iterator[K, V], bool) {
	if i := m.index.locate(m, key); i != none {
		return m.iter(i), false
	}
	return m.iter(m.uncheckedPut(key, value)), true
}

// GetOrInsert returns an iterator to the entry for key, first inserting an
// entry holding the zero value if the key is not present.
func (m *Map[K, V]) GetOrInsert(key K) Iterator[K, V] {
	if i := m.index.locate(m, key); i != none {
		return m.iter(i)
	}
	var zero V
	return m.iter(m.uncheckedPut(key, zero))
}

// uncheckedPut appends an entry whose key is known not to be in the map.
// Growth has to happen before the new node is linked, as it reassigns every
// node to a new bucket.
func (m *Map[K, V]) uncheckedPut(key K, value V) int32 {
	m.index.growIfNeeded(m, m.list.len)
	i := m.list.alloc(m.allocator, key, value)
	m.list.pushBack(i)
	m.index.link(m, i)
	if debug {
		fmt.Printf("put(%v): node=%d len=%d\n", key, i, m.list.len)
	}
	m.checkInvariants()
	return i
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if i := m.index.locate(m, key); i != none {
		return m.list.nodes[i].value, true
	}
	return value, false
}

// At retrieves the value for the specified key, returning an error wrapping
// ErrKeyNotFound if the key is not present.
func (m *Map[K, V]) At(key K) (V, error) {
	if i := m.index.locate(m, key); i != none {
		return m.list.nodes[i].value, nil
	}
	var zero V
	return zero, errors.Wrapf(ErrKeyNotFound, "key %v", key)
}

// Find returns an iterator to the entry for key, or End() if the key is not
// present.
func (m *Map[K, V]) Find(key K) Iterator[K, V] {
	if i := m.index.locate(m, key); i != none {
		return m.iter(i)
	}
	return m.End()
}

// Count returns the number of entries with the specified key: 1 if present
// and 0 otherwise.
func (m *Map[K, V]) Count(key K) int {
	if m.index.locate(m, key) != none {
		return 1
	}
	return 0
}

// Erase removes the entry referred to by it and returns an iterator to the
// entry that followed it. It is an error to erase End(), an erased entry, or
// an entry of a different map. Only iterators to the erased entry are
// invalidated.
func (m *Map[K, V]) Erase(it Iterator[K, V]) (Iterator[K, V], error) {
	if err := m.checkIter(it); err != nil {
		return m.End(), err
	}
	return m.iter(m.erase(it.idx)), nil
}

// Delete deletes the entry corresponding to the specified key from the map,
// returning false if the key was not present.
func (m *Map[K, V]) Delete(key K) bool {
	i := m.index.locate(m, key)
	if i == none {
		return false
	}
	m.erase(i)
	return true
}

// erase removes node i from both the hash index and the backbone, then
// destroys it. The bucket chain is fixed first as that needs the node's key.
func (m *Map[K, V]) erase(i int32) int32 {
	if debug {
		fmt.Printf("erase(%v): node=%d len=%d\n", m.list.nodes[i].key, i, m.list.len)
	}
	m.index.unlink(m, i)
	next, err := m.list.eraseAt(i)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "erase node %d", i))
	}
	m.list.release(i)
	m.checkInvariants()
	return next
}

// Front returns the entry that was inserted first.
func (m *Map[K, V]) Front() (key K, value V, err error) {
	i, err := m.list.front()
	if err != nil {
		return key, value, errors.Wrap(err, "front")
	}
	return m.list.nodes[i].key, m.list.nodes[i].value, nil
}

// Back returns the entry that was inserted last.
func (m *Map[K, V]) Back() (key K, value V, err error) {
	i, err := m.list.back()
	if err != nil {
		return key, value, errors.Wrap(err, "back")
	}
	return m.list.nodes[i].key, m.list.nodes[i].value, nil
}

// PopFront removes and returns the entry that was inserted first.
func (m *Map[K, V]) PopFront() (key K, value V, err error) {
	i, err := m.list.front()
	if err != nil {
		return key, value, errors.Wrap(err, "pop front")
	}
	key, value = m.list.nodes[i].key, m.list.nodes[i].value
	m.erase(i)
	return key, value, nil
}

// PopBack removes and returns the entry that was inserted last.
func (m *Map[K, V]) PopBack() (key K, value V, err error) {
	i, err := m.list.back()
	if err != nil {
		return key, value, errors.Wrap(err, "pop back")
	}
	key, value = m.list.nodes[i].key, m.list.nodes[i].value
	m.erase(i)
	return key, value, nil
}

// Clear deletes all entries from the map resulting in an empty map. The
// bucket count is retained.
func (m *Map[K, V]) Clear() {
	m.list.clear()
	m.index.reset()
	m.checkInvariants()
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.list.len
}

// Empty returns true if the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.list.len == 0
}

// Capacity returns the number of buckets in the hash index.
func (m *Map[K, V]) Capacity() int {
	return m.index.capacity()
}

// All calls yield sequentially for each key and value present in the map, in
// insertion order. If yield returns false, iteration stops. The map may be
// modified from within yield: entries added during iteration are visited,
// entries deleted before being reached are not, and no entry is visited
// twice.
//
// All has the signature of a range-over-func iterator:
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	m.walk(true, yield)
}

// Backward is like All but visits the entries in reverse insertion order.
// Entries added during iteration are not visited.
func (m *Map[K, V]) Backward(yield func(key K, value V) bool) {
	m.walk(false, yield)
}

// Keys calls yield for each key in insertion order.
func (m *Map[K, V]) Keys(yield func(key K) bool) {
	m.All(func(k K, _ V) bool { return yield(k) })
}

// Values calls yield for each value in insertion order.
func (m *Map[K, V]) Values(yield func(value V) bool) {
	m.All(func(_ K, v V) bool { return yield(v) })
}

// walk visits the entries in backbone order, or in reverse. The node array is
// reloaded after every call to yield since yield may grow or replace it.
func (m *Map[K, V]) walk(forward bool, yield func(key K, value V) bool) {
	step := func(n *Node[K, V]) int32 { return n.next }
	start, end := headIdx, tailIdx
	if !forward {
		step = func(n *Node[K, V]) int32 { return n.prev }
		start, end = tailIdx, headIdx
	}

	epoch := m.epoch
	for i := step(&m.list.nodes[start]); i != end; {
		n := &m.list.nodes[i]
		gen, seq := n.gen, n.seq
		next := step(n)
		nextGen := m.list.nodes[next].gen
		if !yield(n.key, n.value) {
			return
		}
		l := &m.list
		switch {
		case m.epoch != epoch:
			epoch = m.epoch
			i = l.resume(seq, forward)
		case l.nodes[i].gen == gen:
			i = step(&l.nodes[i])
		case next != end && l.nodes[next].gen == nextGen && l.linked(next):
			// The visited entry was deleted by yield.
			i = next
		default:
			// The visited entry and its successor are both gone, or the
			// successor was the end of the list.
			i = l.resume(seq, forward)
		}
	}
}

// Begin returns an iterator to the first entry, or End() if the map is
// empty.
func (m *Map[K, V]) Begin() Iterator[K, V] {
	return m.iter(m.list.nodes[headIdx].next)
}

// End returns the past-the-end iterator. It cannot be dereferenced.
func (m *Map[K, V]) End() Iterator[K, V] {
	return m.iter(tailIdx)
}

// String returns the entries formatted as map[k1:v1 k2:v2] in insertion
// order.
func (m *Map[K, V]) String() string {
	var buf strings.Builder
	buf.WriteString("map[")
	sep := ""
	m.All(func(k K, v V) bool {
		fmt.Fprintf(&buf, "%s%v:%v", sep, k, v)
		sep = " "
		return true
	})
	buf.WriteString("]")
	return buf.String()
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if err := m.validate(); err != nil {
			panic(err)
		}
	}
}

// validate checks that the backbone and the hash index agree: every node
// between the sentinels is in exactly one bucket chain, the bucket it is in
// matches its hash, and no sentinel or released node is in any chain.
func (m *Map[K, V]) validate() error {
	l := &m.list
	nodes := l.nodes
	if nodes[headIdx].prev != none || nodes[tailIdx].next != none {
		return errors.AssertionFailedf("sentinel links escape the list\n%s", m.debugString())
	}

	var n int
	prev := headIdx
	for i := nodes[headIdx].next; i != tailIdx; i = nodes[i].next {
		if i <= tailIdx || i >= l.hwm {
			return errors.AssertionFailedf("node %d: out of range\n%s", i, m.debugString())
		}
		if nodes[i].prev != prev {
			return errors.AssertionFailedf("node %d: prev is %d, expected %d\n%s",
				i, nodes[i].prev, prev, m.debugString())
		}
		if prev != headIdx && nodes[i].seq <= nodes[prev].seq {
			return errors.AssertionFailedf("node %d: seq %d does not follow %d\n%s",
				i, nodes[i].seq, nodes[prev].seq, m.debugString())
		}
		if n++; n > l.len {
			return errors.AssertionFailedf("found more than %d nodes in the list\n%s",
				l.len, m.debugString())
		}
		prev = i
	}
	if nodes[tailIdx].prev != prev {
		return errors.AssertionFailedf("tail prev is %d, expected %d\n%s",
			nodes[tailIdx].prev, prev, m.debugString())
	}
	if n != l.len {
		return errors.AssertionFailedf("found %d nodes in the list, but len is %d\n%s",
			n, l.len, m.debugString())
	}

	var chained int
	for b, head := range m.index.buckets {
		for i := head; i != none; i = nodes[i].chain {
			if i <= tailIdx || i >= l.hwm || !l.linked(i) {
				return errors.AssertionFailedf("bucket %d: node %d is not in the list\n%s",
					b, i, m.debugString())
			}
			if e := m.index.bucket(m, &nodes[i].key); e != b {
				return errors.AssertionFailedf("bucket %d: node %d belongs in bucket %d\n%s",
					b, i, e, m.debugString())
			}
			if chained++; chained > l.len {
				return errors.AssertionFailedf("found more than %d chained nodes\n%s",
					l.len, m.debugString())
			}
		}
	}
	if chained != l.len {
		return errors.AssertionFailedf("found %d chained nodes, but len is %d\n%s",
			chained, l.len, m.debugString())
	}
	return nil
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	nodes := m.list.nodes
	fmt.Fprintf(&buf, "len=%d  capacity=%d  nodes=%d/%d\n",
		m.list.len, m.index.capacity(), m.list.hwm, len(nodes))
	// Bound the walk in case the list has a cycle.
	for i, n := nodes[headIdx].next, 0; i != tailIdx && i >= 0 && int(i) < len(nodes) && n <= m.list.len; i, n = nodes[i].next, n+1 {
		fmt.Fprintf(&buf, "  %4d: %v [prev=%d next=%d chain=%d gen=%d]\n",
			i, nodes[i].key, nodes[i].prev, nodes[i].next, nodes[i].chain, nodes[i].gen)
	}
	for b, head := range m.index.buckets {
		if head == none {
			continue
		}
		fmt.Fprintf(&buf, "  bucket %4d:", b)
		for i, n := head, 0; i != none && int(i) < len(nodes) && n <= m.list.len; i, n = nodes[i].chain, n+1 {
			fmt.Fprintf(&buf, " %d", i)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
