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

package workloadgen

import (
	"math"
	"sync"

	"go.uber.org/atomic"

	"github.com/brahmabase/tilestore/storage"
)

// MemTileGroup is an in-memory storage.TileGroup: a fixed slice of rows,
// each with its own header and column values.
type MemTileGroup struct {
	blockID uint32
	rows    [][]interface{}
	headers []*storage.Header
}

func (g *MemTileGroup) BlockID() uint32 { return g.blockID }
func (g *MemTileGroup) RowCount() int   { return len(g.rows) }

func (g *MemTileGroup) Header(offset int) *storage.Header {
	if offset < 0 || offset >= len(g.headers) {
		return nil
	}
	return g.headers[offset]
}

func (g *MemTileGroup) Columns(offset int, positions []int, dst []interface{}) []interface{} {
	row := g.rows[offset]
	for i, p := range positions {
		dst[i] = row[p]
	}
	return dst
}

// MemTable is a growable, goroutine-safe in-memory storage.Table used to
// exercise the builder and hybrid scan without a real tile-group storage
// engine behind them.
type MemTable struct {
	mu     sync.RWMutex
	groups []*MemTileGroup
}

// NewMemTable builds an empty table.
func NewMemTable() *MemTable {
	return &MemTable{}
}

func (t *MemTable) TileGroupCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}

func (t *MemTable) TileGroup(blockID int) storage.TileGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if blockID < 0 || blockID >= len(t.groups) {
		return nil
	}
	return t.groups[blockID]
}

// AppendTileGroup adds a new, fully-committed tile group containing rows,
// returning its block id. Every row is visible to every snapshot: this
// generator models an append-only, already-committed workload, which is
// sufficient to exercise the builder's cursor advance and the hybrid scan's
// prefix/suffix split without a transaction manager.
func (t *MemTable) AppendTileGroup(rows [][]interface{}) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	blockID := uint32(len(t.groups))
	headers := make([]*storage.Header, len(rows))
	for i := range headers {
		h := &storage.Header{BeginCommitID: 1, EndCommitID: math.MaxUint64}
		h.Owner.Store(storage.InvalidTxnID)
		headers[i] = h
	}
	t.groups = append(t.groups, &MemTileGroup{blockID: blockID, rows: rows, headers: headers})
	return blockID
}

// AlwaysVisible is a storage.Visibility that treats every version as
// visible and every read as successful, for tests that do not exercise the
// MVCC chain walk itself.
type AlwaysVisible struct {
	maxCommitted atomic.Uint64
}

// NewAlwaysVisible builds a Visibility pinned at the given max committed
// commit id.
func NewAlwaysVisible(maxCommitted uint64) *AlwaysVisible {
	v := &AlwaysVisible{}
	v.maxCommitted.Store(maxCommitted)
	return v
}

func (v *AlwaysVisible) IsVisible(header *storage.Header, offset int, snap storage.Snapshot) bool {
	return true
}

func (v *AlwaysVisible) PerformRead(id storage.TupleID) bool {
	return true
}

func (v *AlwaysVisible) MaxCommittedCID() uint64 {
	return v.maxCommitted.Load()
}

// Snapshot is a trivial storage.Snapshot pinned at a fixed commit id.
type Snapshot struct {
	Max uint64
}

func (s Snapshot) MaxCommittedCID() uint64 { return s.Max }
