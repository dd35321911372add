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

// Package storage describes the narrow, read-only surface the index tuner
// consumes from the table/tile-group storage layer and the transaction
// manager. None of the catalog, tuple encoding, or MVCC bookkeeping itself
// lives here: it is the engine's, and is treated as an external collaborator.
package storage

import "go.uber.org/atomic"

// TupleID is the stable identity of a row: a tile group's block id and the
// row's offset within that tile group. It never changes for the life of the
// row, even across tile group appends elsewhere in the table.
type TupleID struct {
	Block  uint32
	Offset uint32
}

// Header is the per-row metadata the transaction layer maintains. The tuner
// and the hybrid scan treat it as read-only except for the single
// cooperative-cleanup CAS described in the hybrid scan's MVCC chain walk.
type Header struct {
	BeginCommitID uint64
	EndCommitID   uint64
	// Owner is the owning transaction id. It is reset to InvalidTxnID by the
	// cooperative cleanup CAS in the hybrid scan once EndCommitID is known to
	// be committed; losing that race is harmless.
	Owner atomic.Uint64
	// Next is the tuple id of the next version in the MVCC chain, or the
	// zero value if this is the newest version.
	Next    TupleID
	HasNext bool
}

// InvalidTxnID marks a header whose owning transaction is no longer live.
const InvalidTxnID = ^uint64(0)

// TileGroup is one append-only horizontal slice of a table's rows.
type TileGroup interface {
	// BlockID is this tile group's monotonically assigned id.
	BlockID() uint32
	// RowCount is the number of occupied row slots, i.e. next_slot.
	RowCount() int
	// Header returns the per-row MVCC metadata for offset.
	Header(offset int) *Header
	// Columns copies the values at the given column positions for the row at
	// offset into dst, returning dst. Used by the builder to form index keys
	// and by the hybrid scan's suffix scan to evaluate predicates.
	Columns(offset int, positions []int, dst []interface{}) []interface{}
}

// Table is the per-table surface the tuner, builder, and hybrid scan consume.
// Tile group creation, the schema, and the catalog entry all live in the
// engine and are out of scope here.
type Table interface {
	// TileGroupCount is the current number of tile groups, T in §4.4.
	TileGroupCount() int
	// TileGroup returns the tile group with the given block id. Block ids
	// are dense and start at 0.
	TileGroup(blockID int) TileGroup
}

// Snapshot is a transaction's read view, passed opaquely to Visibility.
type Snapshot interface {
	// MaxCommittedCID is the highest commit id known committed as of this
	// snapshot's creation.
	MaxCommittedCID() uint64
}

// Visibility is the transaction manager's consumed contract (§6).
type Visibility interface {
	// IsVisible reports whether the row at offset in header is visible to
	// snap.
	IsVisible(header *Header, offset int, snap Snapshot) bool
	// PerformRead marks a read of id in the calling transaction. A false
	// return means the read must abort the transaction.
	PerformRead(id TupleID) bool
	// MaxCommittedCID is the highest commit id known committed, independent
	// of any particular snapshot.
	MaxCommittedCID() uint64
}
