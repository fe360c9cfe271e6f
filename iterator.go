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

// Iterator is a handle to an entry of a Map, or to its End() position. Two
// iterators are equal (==) iff they belong to the same map and refer to the
// same entry. The zero Iterator belongs to no map and is never valid.
//
// The usual idiom for walking a map with an iterator is:
//
//	for it := m.Begin(); it != m.End(); _ = it.Next() {
//	  k, v, _ := it.Entry()
//	  ...
//	}
//
// An iterator stays valid until the entry it refers to is erased. It must not
// be used after its map is closed.
type Iterator[K comparable, V any] struct {
	m     *Map[K, V]
	idx   int32
	gen   uint32
	epoch uint32
}

func (m *Map[K, V]) iter(i int32) Iterator[K, V] {
	return Iterator[K, V]{m: m, idx: i, gen: m.list.nodes[i].gen, epoch: m.epoch}
}

// live returns true if the iterator refers to a sentinel or entry that is
// still in its map.
func (it Iterator[K, V]) live() bool {
	if it.m == nil || it.m.epoch != it.epoch {
		return false
	}
	l := &it.m.list
	return l.linked(it.idx) && l.nodes[it.idx].gen == it.gen
}

// checkIter returns an error if it cannot be dereferenced as an entry of m.
func (m *Map[K, V]) checkIter(it Iterator[K, V]) error {
	if it.m != m {
		return errors.Wrap(ErrInvalidIterator, "iterator belongs to a different map")
	}
	return it.check()
}

func (it Iterator[K, V]) check() error {
	if !it.live() {
		return errors.Wrap(ErrInvalidIterator, "iterator does not refer to an entry in the map")
	}
	if it.idx == headIdx || it.idx == tailIdx {
		return errors.Wrap(ErrInvalidIterator, "cannot dereference a sentinel")
	}
	return nil
}

// Valid returns true if the iterator refers to an entry that can be
// dereferenced.
func (it Iterator[K, V]) Valid() bool {
	return it.check() == nil
}

// Next moves the iterator to the following entry, or to End() if it refers to
// the last entry. It is an error to advance End().
func (it *Iterator[K, V]) Next() error {
	if !it.live() {
		return errors.Wrap(ErrInvalidIterator, "iterator does not refer to an entry in the map")
	}
	next, err := it.m.list.advance(it.idx)
	if err != nil {
		return err
	}
	*it = it.m.iter(next)
	return nil
}

// Prev moves the iterator to the preceding entry. It is an error to move
// before the first entry.
func (it *Iterator[K, V]) Prev() error {
	if !it.live() {
		return errors.Wrap(ErrInvalidIterator, "iterator does not refer to an entry in the map")
	}
	prev, err := it.m.list.retreat(it.idx)
	if err != nil {
		return err
	}
	*it = it.m.iter(prev)
	return nil
}

// Key returns the key of the entry.
func (it Iterator[K, V]) Key() (key K, err error) {
	if err := it.check(); err != nil {
		return key, err
	}
	return it.m.list.nodes[it.idx].key, nil
}

// Value returns the value of the entry.
func (it Iterator[K, V]) Value() (value V, err error) {
	if err := it.check(); err != nil {
		return value, err
	}
	return it.m.list.nodes[it.idx].value, nil
}

// Entry returns the key and value of the entry.
func (it Iterator[K, V]) Entry() (key K, value V, err error) {
	if err := it.check(); err != nil {
		return key, value, err
	}
	n := &it.m.list.nodes[it.idx]
	return n.key, n.value, nil
}

// SetValue replaces the value of the entry. The entry keeps its position.
func (it Iterator[K, V]) SetValue(value V) error {
	if err := it.check(); err != nil {
		return err
	}
	it.m.list.nodes[it.idx].value = value
	return nil
}
