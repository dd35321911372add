// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package colset canonicalizes a table's column positions into a hashable
// set, used both as an index's key attribute set and as the histogram key
// in the tuner's frequency-weighted column-set accounting (§4.5.b).
package colset

import (
	"sort"
	"strconv"
	"strings"
)

// Set is an unordered set of column positions, canonicalized so that two
// sets built from the same columns in any order compare and hash equal.
type Set struct {
	key     string
	columns []int
}

// New builds a Set from the given column positions. Duplicate positions
// collapse to one.
func New(columns ...int) Set {
	dedup := make(map[int]struct{}, len(columns))
	for _, c := range columns {
		dedup[c] = struct{}{}
	}
	sorted := make([]int, 0, len(dedup))
	for c := range dedup {
		sorted = append(sorted, c)
	}
	sort.Ints(sorted)
	return Set{key: encode(sorted), columns: sorted}
}

func encode(sorted []int) string {
	if len(sorted) == 0 {
		return ""
	}
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// Columns returns the canonicalized (sorted) column positions. The caller
// must not mutate the returned slice.
func (s Set) Columns() []int {
	return s.columns
}

// Len returns the number of distinct columns in the set.
func (s Set) Len() int {
	return len(s.columns)
}

// Key is a comparable, hashable representative of the set, suitable for use
// as a map key.
func (s Set) Key() string {
	return s.key
}

// Equal reports whether two sets contain exactly the same columns.
func (s Set) Equal(other Set) bool {
	return s.key == other.key
}

// Exist reports whether col is a member of the set.
func (s Set) Exist(col int) bool {
	for _, c := range s.columns {
		if c == col {
			return true
		}
	}
	return false
}
