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

// Package scan implements the Hybrid Scan operator (§4.3): given a
// predicate and an optional, possibly partially-built index, it returns
// every visible matching tuple exactly once by stitching together an index
// probe over the indexed prefix with a sequential scan of the unindexed
// suffix.
package scan

import (
	"github.com/brahmabase/tilestore/index"
	"github.com/brahmabase/tilestore/storage"
)

// RowReader exposes column access for one physical row, used to evaluate a
// Predicate without materializing the whole tuple.
type RowReader interface {
	Column(pos int) interface{}
}

// Predicate decides whether a row should be emitted. It receives only
// column access, not visibility — visibility is always applied by the scan
// itself before the predicate runs.
type Predicate func(row RowReader) bool

// Descriptor names the index-scan path: which index to probe, the key
// columns it was built for, and the equality values to probe with. Only
// equality probes are supported (Index.Probe looks up one exact key);
// non-equality comparison kinds are not. DESIGN.md records this reduction.
type Descriptor struct {
	Index      *index.Index
	KeyColumns []int
	Values     []interface{}
}

// Result is one emitted tuple: its stable identity and the tile group/offset
// it was found at, for further materialization by the caller.
type Result struct {
	ID storage.TupleID
}

type tgRow struct {
	tg     storage.TileGroup
	offset int
}

func (r tgRow) Column(pos int) interface{} {
	dst := make([]interface{}, 1)
	return r.tg.Columns(r.offset, []int{pos}, dst)[0]
}

// HybridScan evaluates predicate over table, optionally accelerated by an
// index descriptor, for the transaction described by vis/snap. Construct
// with New; iterate with Next/Close.
type HybridScan struct {
	table     storage.Table
	vis       storage.Visibility
	snap      storage.Snapshot
	predicate Predicate
	desc      *Descriptor

	results []Result
	pos     int
}

// New builds and immediately evaluates a hybrid scan. desc may be nil, in
// which case the scan is a pure sequential scan over every tile group
// (§4.3 step 1).
func New(table storage.Table, vis storage.Visibility, snap storage.Snapshot, predicate Predicate, desc *Descriptor) *HybridScan {
	h := &HybridScan{table: table, vis: vis, snap: snap, predicate: predicate, desc: desc}
	h.evaluate()
	return h
}

func (h *HybridScan) evaluate() {
	if h.desc == nil {
		h.results = h.sequentialScan(0, h.table.TileGroupCount())
		return
	}

	// Step 2: snapshot boundary. The cursor is read once and frozen for the
	// duration of this scan; the builder may advance the true cursor
	// concurrently without affecting correctness (§4.3's third invariant).
	cursor := h.desc.Index.BuildCursor()

	prefix := h.indexedPrefix(cursor)
	suffix := h.sequentialScan(int(cursor), h.table.TileGroupCount())

	h.results = append(prefix, suffix...)
}

// indexedPrefix implements §4.3 step 3.
func (h *HybridScan) indexedPrefix(cursor uint32) []Result {
	ids := h.desc.Index.Probe(h.desc.Values)
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		if id.Block >= cursor {
			// Belongs to the unindexed suffix; skip here to avoid a
			// duplicate emission from the sequential scan below.
			continue
		}
		if h.emit(id) {
			out = append(out, Result{ID: id})
		}
	}
	return out
}

// sequentialScan implements §4.3 step 4 over tile groups [from, to).
func (h *HybridScan) sequentialScan(from, to int) []Result {
	var out []Result
	for block := from; block < to; block++ {
		tg := h.table.TileGroup(block)
		if tg == nil {
			continue
		}
		n := tg.RowCount()
		for offset := 0; offset < n; offset++ {
			id := storage.TupleID{Block: uint32(block), Offset: uint32(offset)}
			if h.emitRow(tg, offset, id) {
				out = append(out, Result{ID: id})
			}
		}
	}
	return out
}

// emit resolves id's tile group/offset then applies visibility and the
// predicate, with the primary-key MVCC chain walk when applicable.
func (h *HybridScan) emit(id storage.TupleID) bool {
	tg := h.table.TileGroup(int(id.Block))
	if tg == nil {
		return false
	}
	return h.emitRow(tg, int(id.Offset), id)
}

func (h *HybridScan) emitRow(tg storage.TileGroup, offset int, id storage.TupleID) bool {
	header := tg.Header(offset)
	if header == nil {
		return false
	}

	if !h.vis.IsVisible(header, offset, h.snap) {
		if h.desc != nil && h.desc.Index.Kind == index.PrimaryKey {
			return h.walkChain(header, id)
		}
		return false
	}
	if !h.predicate(tgRow{tg: tg, offset: offset}) {
		return false
	}
	return h.vis.PerformRead(id)
}

// walkChain implements §4.3 step 5: when scanning via a primary-key index
// and the probed version is not visible, follow the next-version pointer
// chain. Resolved Open Question: the end-commit-id comparison against
// max-committed-cid uses <= (more aggressive cleanup); this only affects how
// much harmless extra cleanup work happens, never correctness.
func (h *HybridScan) walkChain(header *storage.Header, id storage.TupleID) bool {
	maxCommitted := h.vis.MaxCommittedCID()
	cur := header

	for {
		if cur.EndCommitID <= maxCommitted {
			// Cooperative cleanup: reset a stale owner id. Losing this race
			// is benign; it is purely an optimization for future scans.
			owner := cur.Owner.Load()
			if owner != storage.InvalidTxnID {
				cur.Owner.CAS(owner, storage.InvalidTxnID)
			}
		}
		if !cur.HasNext {
			return false
		}
		next := cur.Next
		nextTG := h.table.TileGroup(int(next.Block))
		if nextTG == nil {
			return false
		}
		nextHeader := nextTG.Header(int(next.Offset))
		if nextHeader == nil {
			return false
		}
		if h.vis.IsVisible(nextHeader, int(next.Offset), h.snap) {
			if !h.predicate(tgRow{tg: nextTG, offset: int(next.Offset)}) {
				return false
			}
			return h.vis.PerformRead(next)
		}
		cur = nextHeader
	}
}

// Next advances to the next matching result, returning false when exhausted.
func (h *HybridScan) Next() (Result, bool) {
	if h.pos >= len(h.results) {
		return Result{}, false
	}
	r := h.results[h.pos]
	h.pos++
	return r, true
}

// Close drops the buffered results. It does not release desc.Index:
// HybridScan never acquires an index reference itself, so a caller that
// obtained desc.Index from Registry.PickIndex calls Release on it separately.
func (h *HybridScan) Close() {
	h.results = nil
}

// Len reports the number of matching results, mostly useful in tests.
func (h *HybridScan) Len() int {
	return len(h.results)
}
