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

// Errors returned by Map and Iterator operations. Returned errors may carry
// additional context; use errors.Is to test for them.
var (
	// ErrEmptyContainer is returned when the first or last entry of an empty
	// map is requested or removed.
	ErrEmptyContainer = errors.New("linkedhash: container is empty")
	// ErrKeyNotFound is returned by bounds-checked access to a missing key.
	ErrKeyNotFound = errors.New("linkedhash: key not found")
	// ErrInvalidIterator is returned when an iterator refers to a sentinel
	// where an entry was required, belongs to a different map, refers to an
	// erased entry, or is stepped past either end of the map.
	ErrInvalidIterator = errors.New("linkedhash: invalid iterator")
	// ErrInvalidPosition is returned when a node cannot be linked or unlinked
	// at the requested backbone position.
	ErrInvalidPosition = errors.New("linkedhash: invalid position")
	// ErrClosed is the panic value when a closed map is copied.
	ErrClosed = errors.New("linkedhash: map is closed")
)
