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

package scan_test

import (
	"testing"

	. "github.com/pingcap/check"

	"github.com/brahmabase/tilestore/index"
	"github.com/brahmabase/tilestore/internal/workloadgen"
	"github.com/brahmabase/tilestore/scan"
	"github.com/brahmabase/tilestore/storage"
)

func TestT(t *testing.T) { TestingT(t) }

var _ = Suite(&testSuite{})

type testSuite struct{}

func buildTable(nGroups, rowsPerGroup int) *workloadgen.MemTable {
	t := workloadgen.NewMemTable()
	id := int64(0)
	for g := 0; g < nGroups; g++ {
		rows := make([][]interface{}, rowsPerGroup)
		for r := 0; r < rowsPerGroup; r++ {
			rows[r] = []interface{}{id}
			id++
		}
		t.AppendTileGroup(rows)
	}
	return t
}

func (*testSuite) TestSequentialScanWithNilDescriptor(c *C) {
	tbl := buildTable(3, 4)
	vis := workloadgen.NewAlwaysVisible(100)
	snap := workloadgen.Snapshot{Max: 100}

	h := scan.New(tbl, vis, snap, func(row scan.RowReader) bool {
		return row.Column(0).(int64) >= 6
	}, nil)
	defer h.Close()

	c.Assert(h.Len(), Equals, 6) // ids 6..11
}

func (*testSuite) TestHybridScanSplitsIndexedPrefixAndUnindexedSuffix(c *C) {
	tbl := buildTable(4, 2) // 8 rows total, ids 0..7, 2 rows/group

	idx := index.New(1, "by_id", []int{0}, index.Secondary, 0.5)
	// Index only the first two tile groups (cursor = 2): ids 0..3.
	for block := 0; block < 2; block++ {
		tg := tbl.TileGroup(block)
		for offset := 0; offset < tg.RowCount(); offset++ {
			buf := make([]interface{}, 1)
			key := tg.Columns(offset, []int{0}, buf)
			id := storage.TupleID{Block: uint32(block), Offset: uint32(offset)}
			c.Assert(idx.Insert(key, id), IsNil)
		}
	}
	idx.AdvanceCursor(2)

	vis := workloadgen.NewAlwaysVisible(100)
	snap := workloadgen.Snapshot{Max: 100}

	desc := &scan.Descriptor{Index: idx, KeyColumns: []int{0}, Values: []interface{}{int64(1)}}
	h := scan.New(tbl, vis, snap, func(row scan.RowReader) bool { return true }, desc)
	defer h.Close()

	// The probe matches exactly one row (id=1), plus every row in the
	// unindexed suffix (tile groups 2,3: ids 4..7).
	c.Assert(h.Len(), Equals, 5)
}

// S2 — hybrid correctness during build: with the index only partially
// built, a scan for a given value must return exactly the rows a full
// sequential scan would, regardless of whether that value falls in the
// indexed prefix or the unindexed suffix.
func (*testSuite) TestHybridScanMatchesSequentialAtMidBuildCursor(c *C) {
	const groups, rowsPerGroup = 10, 5
	tbl := buildTable(groups, rowsPerGroup)

	idx := index.New(1, "by_id", []int{0}, index.Secondary, 0.5)
	builtGroups := 6
	for block := 0; block < builtGroups; block++ {
		tg := tbl.TileGroup(block)
		for offset := 0; offset < tg.RowCount(); offset++ {
			buf := make([]interface{}, 1)
			key := tg.Columns(offset, []int{0}, buf)
			id := storage.TupleID{Block: uint32(block), Offset: uint32(offset)}
			c.Assert(idx.Insert(key, id), IsNil)
		}
	}
	idx.AdvanceCursor(uint32(builtGroups))

	vis := workloadgen.NewAlwaysVisible(100)
	snap := workloadgen.Snapshot{Max: 100}

	for target := int64(0); target < int64(groups*rowsPerGroup); target++ {
		predicate := func(row scan.RowReader) bool { return row.Column(0).(int64) == target }

		seq := scan.New(tbl, vis, snap, predicate, nil)
		desc := &scan.Descriptor{Index: idx, KeyColumns: []int{0}, Values: []interface{}{target}}
		viaIndex := scan.New(tbl, vis, snap, predicate, desc)

		c.Assert(viaIndex.Len(), Equals, seq.Len())
		seq.Close()
		viaIndex.Close()
	}
}
