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
	"testing"

	"github.com/stretchr/testify/require"
)

// listKeys returns the keys of the backbone from head to tail, checking that
// the backward links agree.
func listKeys(t *testing.T, l *backbone[int, int]) []int {
	var keys []int
	prev := headIdx
	for i := l.nodes[headIdx].next; i != tailIdx; i = l.nodes[i].next {
		require.Equal(t, prev, l.nodes[i].prev)
		keys = append(keys, l.nodes[i].key)
		prev = i
	}
	require.Equal(t, prev, l.nodes[tailIdx].prev)
	require.Equal(t, len(keys), l.len)
	return keys
}

func TestBackboneInsertErase(t *testing.T) {
	a := defaultAllocator[int, int]{}
	var l backbone[int, int]
	l.initNodes(a, 0)
	require.Empty(t, listKeys(t, &l))

	n1 := l.alloc(a, 1, 10)
	l.pushBack(n1)
	n3 := l.alloc(a, 3, 30)
	l.pushBack(n3)
	n2 := l.alloc(a, 2, 20)
	require.NoError(t, l.insertBefore(n3, n2))
	n0 := l.alloc(a, 0, 0)
	require.NoError(t, l.insertBefore(n1, n0))
	require.Equal(t, []int{0, 1, 2, 3}, listKeys(t, &l))

	n4 := l.alloc(a, 4, 40)
	require.ErrorIs(t, l.insertBefore(headIdx, n4), ErrInvalidPosition)
	require.ErrorIs(t, l.insertBefore(n4, n4), ErrInvalidPosition)
	require.ErrorIs(t, l.insertBefore(100, n4), ErrInvalidPosition)
	require.ErrorIs(t, l.insertBefore(none, n4), ErrInvalidPosition)
	require.Equal(t, []int{0, 1, 2, 3}, listKeys(t, &l))

	next, err := l.eraseAt(n2)
	require.NoError(t, err)
	require.Equal(t, n3, next)
	l.release(n2)
	require.Equal(t, []int{0, 1, 3}, listKeys(t, &l))

	next, err = l.eraseAt(n3)
	require.NoError(t, err)
	require.Equal(t, tailIdx, next)
	l.release(n3)

	for _, pos := range []int32{headIdx, tailIdx, n2, n4, 100} {
		_, err := l.eraseAt(pos)
		require.ErrorIs(t, err, ErrInvalidPosition)
	}
	require.Equal(t, []int{0, 1}, listKeys(t, &l))
}

func TestBackboneFrontBack(t *testing.T) {
	a := defaultAllocator[int, int]{}
	var l backbone[int, int]
	l.initNodes(a, 0)

	_, err := l.front()
	require.ErrorIs(t, err, ErrEmptyContainer)
	_, err = l.back()
	require.ErrorIs(t, err, ErrEmptyContainer)

	for i := 0; i < 3; i++ {
		l.pushBack(l.alloc(a, i, i))
	}
	f, err := l.front()
	require.NoError(t, err)
	require.Equal(t, 0, l.nodes[f].key)
	b, err := l.back()
	require.NoError(t, err)
	require.Equal(t, 2, l.nodes[b].key)
}

func TestBackboneAdvanceRetreat(t *testing.T) {
	a := defaultAllocator[int, int]{}
	var l backbone[int, int]
	l.initNodes(a, 0)

	// Empty: tail can neither advance nor retreat.
	_, err := l.advance(tailIdx)
	require.ErrorIs(t, err, ErrInvalidIterator)
	_, err = l.retreat(tailIdx)
	require.ErrorIs(t, err, ErrInvalidIterator)

	for i := 0; i < 3; i++ {
		l.pushBack(l.alloc(a, i, i))
	}

	var keys []int
	i, err := l.front()
	require.NoError(t, err)
	for i != tailIdx {
		keys = append(keys, l.nodes[i].key)
		i, err = l.advance(i)
		require.NoError(t, err)
	}
	require.Equal(t, []int{0, 1, 2}, keys)
	_, err = l.advance(tailIdx)
	require.ErrorIs(t, err, ErrInvalidIterator)

	keys = keys[:0]
	for i = tailIdx; ; {
		i, err = l.retreat(i)
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidIterator)
			break
		}
		keys = append(keys, l.nodes[i].key)
	}
	require.Equal(t, []int{2, 1, 0}, keys)

	_, err = l.retreat(headIdx)
	require.ErrorIs(t, err, ErrInvalidIterator)
}

func TestBackboneClearReuse(t *testing.T) {
	a := defaultAllocator[int, int]{}
	var l backbone[int, int]
	l.initNodes(a, 0)

	var idxs []int32
	for i := 0; i < 20; i++ {
		n := l.alloc(a, i, i)
		l.pushBack(n)
		idxs = append(idxs, n)
	}
	hwm, size := l.hwm, len(l.nodes)
	gens := make(map[int32]uint32)
	for _, n := range idxs {
		gens[n] = l.nodes[n].gen
	}

	l.clear()
	require.Empty(t, listKeys(t, &l))
	for _, n := range idxs {
		require.False(t, l.linked(n))
		require.Equal(t, gens[n]+1, l.nodes[n].gen)
	}

	// Released slots are reused before the arena grows.
	for i := 0; i < 20; i++ {
		n := l.alloc(a, i, i)
		l.pushBack(n)
		require.Contains(t, gens, n)
	}
	require.Equal(t, hwm, l.hwm)
	require.Equal(t, size, len(l.nodes))
	require.Len(t, listKeys(t, &l), 20)
}
