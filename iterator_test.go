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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIteratorEmpty(t *testing.T) {
	m := New[int, int](0)
	require.Equal(t, m.End(), m.Begin())
	require.False(t, m.Begin().Valid())

	it := m.End()
	require.ErrorIs(t, it.Next(), ErrInvalidIterator)
	require.ErrorIs(t, it.Prev(), ErrInvalidIterator)
	require.Equal(t, m.End(), it)

	_, err := it.Key()
	require.ErrorIs(t, err, ErrInvalidIterator)
	_, err = it.Value()
	require.ErrorIs(t, err, ErrInvalidIterator)
	require.ErrorIs(t, it.SetValue(1), ErrInvalidIterator)
	_, err = m.Erase(it)
	require.ErrorIs(t, err, ErrInvalidIterator)
}

func TestIteratorZero(t *testing.T) {
	m := New[int, int](0)
	m.Put(1, 1)

	var it Iterator[int, int]
	require.False(t, it.Valid())
	require.ErrorIs(t, it.Next(), ErrInvalidIterator)
	require.ErrorIs(t, it.Prev(), ErrInvalidIterator)
	_, _, err := it.Entry()
	require.ErrorIs(t, err, ErrInvalidIterator)
	_, err = m.Erase(it)
	require.ErrorIs(t, err, ErrInvalidIterator)
	require.Equal(t, 1, m.Len())
}

func TestIteratorWalk(t *testing.T) {
	m := New[int, string](0)
	for i := 0; i < 5; i++ {
		m.Put(i, fmt.Sprint(i))
	}

	var keys []int
	for it := m.Begin(); it != m.End(); _ = it.Next() {
		k, v, err := it.Entry()
		require.NoError(t, err)
		require.Equal(t, fmt.Sprint(k), v)
		keys = append(keys, k)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, keys)

	keys = keys[:0]
	it := m.End()
	for it.Prev() == nil {
		k, err := it.Key()
		require.NoError(t, err)
		keys = append(keys, k)
	}
	require.Equal(t, []int{4, 3, 2, 1, 0}, keys)
	// A failed Prev leaves the iterator where it was.
	require.Equal(t, m.Begin(), it)

	it = m.Find(4)
	require.NoError(t, it.Next())
	require.Equal(t, m.End(), it)
	require.ErrorIs(t, it.Next(), ErrInvalidIterator)

	it = m.Find(2)
	require.NoError(t, it.Next())
	require.Equal(t, m.Find(3), it)
	require.NoError(t, it.Prev())
	require.NoError(t, it.Prev())
	require.Equal(t, m.Find(1), it)
}

func TestIteratorStability(t *testing.T) {
	for _, c := range []struct {
		name string
		opts []option[int, int]
	}{
		{"normal", nil},
		{"degenerate", []option[int, int]{WithHash[int, int](constantHash(7))}},
	} {
		t.Run(c.name, func(t *testing.T) {
			m := New[int, int](0, c.opts...)
			for i := 0; i < 10; i++ {
				m.Put(i, i*10)
			}

			x := m.Find(3)
			y := m.Find(4)
			z := m.Find(9)
			next, err := m.Erase(x)
			require.NoError(t, err)
			require.Equal(t, y, next)
			require.False(t, x.Valid())
			_, err = m.Erase(x)
			require.ErrorIs(t, err, ErrInvalidIterator)

			// The released slot is reused, but x still refers to the erased
			// entry and must not see the new one.
			m.Put(100, 1000)
			require.False(t, x.Valid())
			_, err = x.Key()
			require.ErrorIs(t, err, ErrInvalidIterator)

			for _, it := range []Iterator[int, int]{y, z} {
				k, v, err := it.Entry()
				require.NoError(t, err)
				require.Equal(t, k*10, v)
			}

			// Erasing the last entry returns End().
			require.True(t, m.Delete(100))
			next, err = m.Erase(z)
			require.NoError(t, err)
			require.Equal(t, m.End(), next)
			require.NoError(t, m.validate())
		})
	}
}

func TestIteratorSurvivesGrowth(t *testing.T) {
	m := New[int, int](0)
	m.Put(0, 0)
	it := m.Find(0)
	nodes, capacity := len(m.list.nodes), m.Capacity()

	for i := 1; i < 1000; i++ {
		m.Put(i, i)
	}
	require.Greater(t, len(m.list.nodes), nodes)
	require.Greater(t, m.Capacity(), capacity)

	k, err := it.Key()
	require.NoError(t, err)
	require.Equal(t, 0, k)
	require.NoError(t, it.SetValue(42))
	v, ok := m.Get(0)
	require.True(t, ok)
	require.Equal(t, 42, v)
	require.Equal(t, m.Begin(), it)

	// Setting a value through the iterator does not move the entry.
	k, _, err = m.Front()
	require.NoError(t, err)
	require.Equal(t, 0, k)
}

func TestIteratorInvalidation(t *testing.T) {
	m := New[int, int](0)
	other := New[int, int](0)
	for i := 0; i < 5; i++ {
		m.Put(i, i)
		other.Put(i, i)
	}

	// An iterator is only accepted by its own map.
	_, err := m.Erase(other.Find(1))
	require.ErrorIs(t, err, ErrInvalidIterator)
	require.Equal(t, 5, m.Len())
	require.Equal(t, 5, other.Len())

	it := m.Find(1)
	m.Clear()
	require.False(t, it.Valid())
	m.Put(1, 1)
	require.False(t, it.Valid())

	it = m.Find(1)
	m.CopyFrom(other)
	require.False(t, it.Valid())

	it = m.Find(1)
	m.Init(0)
	require.False(t, it.Valid())
	require.ErrorIs(t, it.Next(), ErrInvalidIterator)
}
