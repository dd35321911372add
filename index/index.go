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

// Package index implements the per-table Index Registry (§4.2), the Index
// type shared between the builder and the hybrid scan (§3), and the
// concurrent key->tuple-identity structure each index owns.
package index

import (
	"sync"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"

	"github.com/brahmabase/tilestore/colset"
	"github.com/brahmabase/tilestore/storage"
)

// Kind distinguishes the three index flavors the original engine modeled
// with inheritance. A single struct with a Kind tag replaces the hierarchy
// (DESIGN.md, "Index polymorphism"); the only behavior that actually
// branches on Kind is the hybrid scan's MVCC chain walk, gated on
// Kind == PrimaryKey.
type Kind byte

const (
	// Secondary is the default kind assigned to tuner-proposed indexes.
	Secondary Kind = iota
	// UniqueSecondary additionally enforces at most one tuple identity per
	// key.
	UniqueSecondary
	// PrimaryKey selects the MVCC chain-walk path in the hybrid scan.
	PrimaryKey
)

// ErrDuplicateKey is returned by Insert on a UniqueSecondary index when the
// key is already present with a different tuple identity. It is a
// recoverable error per §7: the index that produced it is retired, other
// indexes in the same build pass continue.
var ErrDuplicateKey = errors.New("index: duplicate key in unique index")

// ErrAllocatorExhausted models the allocator-failure recoverable error in
// §7's error taxonomy.
var ErrAllocatorExhausted = errors.New("index: key-tuple arena exhausted")

// Metadata is immutable after creation except for the fields documented as
// mutable below (§3, "Index Metadata").
type Metadata struct {
	OID        int64
	Name       string
	KeyAttrs   []int
	KeyAttrSet colset.Set
	Kind       Kind
}

// Index is a map from key tuples to sets of tuple identities, plus the
// metadata in §3. The build cursor and utility are the only mutable fields;
// everything else is fixed at construction.
type Index struct {
	Metadata

	cursor  atomic.Uint32 // build cursor C: tile groups [0, C) are fully indexed
	utility atomic.Float64

	refs atomic.Int32

	arena keyArena

	store *btreeStore
}

// New constructs a proposed index: build cursor 0, the given initial
// utility, and an empty underlying structure.
func New(oid int64, name string, keyAttrs []int, kind Kind, initialUtility float64) *Index {
	idx := &Index{
		Metadata: Metadata{
			OID:        oid,
			Name:       name,
			KeyAttrs:   append([]int(nil), keyAttrs...),
			KeyAttrSet: colset.New(keyAttrs...),
			Kind:       kind,
		},
		arena: newKeyArena(len(keyAttrs)),
		store: newBTreeStore(),
	}
	idx.utility.Store(initialUtility)
	idx.refs.Store(1) // the registry's own reference
	return idx
}

// BuildCursor returns the current build cursor C. Tile groups [0, C) are
// fully represented in the index (§3's invariant).
func (idx *Index) BuildCursor() uint32 {
	return idx.cursor.Load()
}

// AdvanceCursor atomically increases the build cursor by delta. It must only
// be called by the builder after every row of the covered tile groups has
// been inserted (§4.4 step 3).
func (idx *Index) AdvanceCursor(delta uint32) {
	idx.cursor.Add(delta)
}

// Utility returns the current smoothed utility score.
func (idx *Index) Utility() float64 {
	return idx.utility.Load()
}

// UpdateUtility applies the tuner's EMA update (§4.5.f): U <- alpha*u + (1-alpha)*U.
func (idx *Index) UpdateUtility(alpha, u float64) float64 {
	for {
		old := idx.utility.Load()
		next := alpha*u + (1-alpha)*old
		if idx.utility.CAS(old, next) {
			return next
		}
	}
}

// SetUtility overwrites the utility score directly, used when an index is
// first proposed (§4.5.e: initial utility).
func (idx *Index) SetUtility(u float64) {
	idx.utility.Store(u)
}

// AcquireArena hands out a reusable key-tuple buffer sized to this index's
// key attributes, for the builder's per-row key formation (§4.4 step 2a).
func (idx *Index) AcquireArena() []interface{} {
	return idx.arena.get()
}

// ReleaseArena returns a buffer obtained from AcquireArena.
func (idx *Index) ReleaseArena(buf []interface{}) {
	idx.arena.put(buf)
}

// Insert adds key -> id. A Secondary index allows any number of tuple
// identities per key; a UniqueSecondary index rejects a second distinct
// identity under the same key with ErrDuplicateKey; a PrimaryKey index
// behaves like UniqueSecondary. Insertions are not required to be
// deduplicated by the caller: the index itself keys on (key, tuple-identity)
// so re-inserting the same pair is a no-op (§4.4's concurrency contract).
func (idx *Index) Insert(key []interface{}, id storage.TupleID) error {
	unique := idx.Kind == UniqueSecondary || idx.Kind == PrimaryKey
	return idx.store.insert(key, id, unique)
}

// Probe returns every tuple identity stored under key.
func (idx *Index) Probe(key []interface{}) []storage.TupleID {
	return idx.store.get(key)
}

// ScanAll iterates every (key, tuple-identities) pair in the order of the
// keys' fmt.Sprint encoding (string order, not numeric order), calling fn
// until it returns false.
func (idx *Index) ScanAll(fn func(key []interface{}, ids []storage.TupleID) bool) {
	idx.store.scanAll(fn)
}

func (idx *Index) acquireRef() { idx.refs.Inc() }

// Release drops a shared reference obtained via Registry.Get. The
// underlying structure is only eligible for collection once every scanner
// that picked it has released it and the registry's own reference has been
// dropped by Registry.Drop.
func (idx *Index) Release() {
	idx.refs.Dec()
}

func (idx *Index) refCount() int32 { return idx.refs.Load() }

// keyArena is a small free-list of reusable key-tuple buffers, modeling the
// "private memory arena" §4.4 assigns to each index.
type keyArena struct {
	width int
	mu    sync.Mutex
	free  [][]interface{}
}

func newKeyArena(width int) keyArena {
	return keyArena{width: width}
}

func (a *keyArena) get() []interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		buf := a.free[n-1]
		a.free = a.free[:n-1]
		return buf
	}
	return make([]interface{}, a.width)
}

func (a *keyArena) put(buf []interface{}) {
	if len(buf) != a.width {
		return
	}
	a.mu.Lock()
	a.free = append(a.free, buf)
	a.mu.Unlock()
}
