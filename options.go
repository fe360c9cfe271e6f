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

import "unsafe"

// option provide an interface to do work on Map while it is being created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = *(*hashFn)(noescape(unsafe.Pointer(&op.hash)))
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The function must be deterministic for a given key and seed, and keys that
// are equal must hash to the same value.
func WithHash[K comparable, V any](hash func(key *K, seed uintptr) uintptr) option[K, V] {
	return hashOption[K, V]{hash}
}

type equalOption[K comparable, V any] struct {
	equal func(a, b K) bool
}

func (op equalOption[K, V]) apply(m *Map[K, V]) {
	m.equal = op.equal
}

// WithEqual is an option to specify the key equality function. It must be
// consistent with the hash function: if equal(a, b) then hash(a) == hash(b).
// By default keys are compared with ==.
func WithEqual[K comparable, V any](equal func(a, b K) bool) option[K, V] {
	return equalOption[K, V]{equal}
}

type maxLoadOption[K comparable, V any] struct {
	percent int
}

func (op maxLoadOption[K, V]) apply(m *Map[K, V]) {
	m.index.maxLoad = op.percent
}

// WithMaxLoad is an option to specify the load factor, as a percentage of the
// bucket count, above which the bucket array grows. The default is 75.
func WithMaxLoad[K comparable, V any](percent int) option[K, V] {
	return maxLoadOption[K, V]{percent}
}

type growthOption[K comparable, V any] struct {
	growth func(capacity int) int
}

func (op growthOption[K, V]) apply(m *Map[K, V]) {
	m.index.growth = op.growth
}

// WithGrowth is an option to specify how the bucket count grows once the
// load factor is exceeded. The function must return a value larger than its
// argument. The default is capacity*2+3.
func WithGrowth[K comparable, V any](growth func(capacity int) int) option[K, V] {
	return growthOption[K, V]{growth}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Map. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that nodes and
// buckets be freed then Map.Close must be called in order to ensure
// FreeNodes and FreeBuckets are called.
type Allocator[K comparable, V any] interface {
	// AllocNodes should return a slice equivalent to make([]Node[K,V], n).
	AllocNodes(n int) []Node[K, V]

	// AllocBuckets should return a slice equivalent to make([]int32, n).
	AllocBuckets(n int) []int32

	// FreeNodes can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocNodes.
	FreeNodes(v []Node[K, V])

	// FreeBuckets can optional release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocBuckets.
	FreeBuckets(v []int32)
}

type defaultAllocator[K comparable, V any] struct{}

func (defaultAllocator[K, V]) AllocNodes(n int) []Node[K, V] {
	return make([]Node[K, V], n)
}

func (defaultAllocator[K, V]) AllocBuckets(n int) []int32 {
	return make([]int32, n)
}

func (defaultAllocator[K, V]) FreeNodes(v []Node[K, V]) {
}

func (defaultAllocator[K, V]) FreeBuckets(v []int32) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
