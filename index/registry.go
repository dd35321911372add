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

package index

import (
	"sync"

	"github.com/brahmabase/tilestore/colset"
)

// Policy selects how aggressively Registry.PickIndex matches a column set
// (§6, "produced" pick_index contract).
type Policy byte

const (
	// PolicyNever always returns no index.
	PolicyNever Policy = iota
	// PolicyAny returns any index whose key attribute set equals the query.
	PolicyAny
	// PolicyFullOnly additionally requires the index's build cursor to have
	// caught up to the table's tile group count.
	PolicyFullOnly
)

// slot is one entry in the registry's slot vector. A tombstoned slot has
// Index == nil but the slice position is never reused or compacted, so oids
// (slot indexes) are stable for the life of the table (§4.2).
type slot struct {
	index *Index
}

// Registry is the per-table collection of live indexes (§4.2). Reads (Get,
// Count, ValidCount, Attrs) take the shared lock; Add and Drop are
// serialized against each other and against readers by the exclusive lock.
type Registry struct {
	mu    sync.RWMutex
	slots []slot
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Count returns the number of slots, including tombstoned ones.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// ValidCount returns the number of non-tombstoned entries.
func (r *Registry) ValidCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s.index != nil {
			n++
		}
	}
	return n
}

// Get returns a shared reference to the i-th index, or nil if the slot is
// tombstoned or out of range. The caller must call Release on the returned
// index once done (e.g. when the scan operator closes).
func (r *Registry) Get(i int) *Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	idx := r.slots[i].index
	if idx == nil {
		return nil
	}
	idx.acquireRef()
	return idx
}

// Attrs returns the unordered key attribute set of the i-th index.
func (r *Registry) Attrs(i int) (colset.Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.slots) {
		return colset.Set{}, false
	}
	idx := r.slots[i].index
	if idx == nil {
		return colset.Set{}, false
	}
	return idx.KeyAttrSet, true
}

// Add appends idx and returns its new slot id (oid).
func (r *Registry) Add(idx *Index) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slot{index: idx})
	return len(r.slots) - 1
}

// Drop tombstones the slot at oid. The underlying index is not deallocated
// until the last shared reference (including the registry's own, released
// here) is released.
func (r *Registry) Drop(oid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if oid < 0 || oid >= len(r.slots) {
		return
	}
	idx := r.slots[oid].index
	if idx == nil {
		return
	}
	r.slots[oid].index = nil
	idx.Release()
}

// ForEachLive calls fn for every non-tombstoned (oid, index) pair. fn must
// not call Add or Drop.
func (r *Registry) ForEachLive(fn func(oid int, idx *Index)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for oid, s := range r.slots {
		if s.index != nil {
			fn(oid, s.index)
		}
	}
}

// PickIndex implements the produced pick_index(table, column_set, policy)
// contract (§6). tileGroupCount is only consulted for PolicyFullOnly.
func (r *Registry) PickIndex(columns colset.Set, policy Policy, tileGroupCount int) *Index {
	if policy == PolicyNever {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		idx := s.index
		if idx == nil || !idx.KeyAttrSet.Equal(columns) {
			continue
		}
		if policy == PolicyFullOnly && int(idx.BuildCursor()) != tileGroupCount {
			continue
		}
		idx.acquireRef()
		return idx
	}
	return nil
}
