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

// Package build implements the Incremental Index Builder (§4.4): the
// background routine, invoked once per tuner pass, that advances every live
// index's build cursor by scanning newly appended tile groups and inserting
// their rows, while concurrent writers keep appending tile groups.
//
// Grounded on the worker/batch shape of ddl's reorg backfilling
// (ddl/ddl_worker.go, and the retrieved backfilling reference), simplified
// to a single-goroutine-per-pass model: the tuner's one background worker
// already serializes build passes, so the worker-pool-of-N-goroutines the
// teacher uses to split a range across many backfill workers is unnecessary
// here (see DESIGN.md).
package build

import (
	"runtime"

	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"github.com/brahmabase/tilestore/index"
	"github.com/brahmabase/tilestore/metrics"
	"github.com/brahmabase/tilestore/storage"
	"github.com/brahmabase/tilestore/util/logutil"
)

// Result reports the outcome of building one index for one pass.
type Result struct {
	OID             int64
	TileGroupsAdded int
	RowsAdded       int
	// Retired is true if this index's build step failed and the index was
	// dropped from the registry (§7, recoverable error).
	Retired bool
	Err     error
}

// Builder advances every live index of a table by at most MaxTileGroups
// tile groups per call to Run, bounding wall time per pass (§4.4 step 1).
type Builder struct {
	MaxTileGroups int
}

// New builds a Builder with the given per-pass cap.
func New(maxTileGroups int) *Builder {
	if maxTileGroups <= 0 {
		maxTileGroups = 10
	}
	return &Builder{MaxTileGroups: maxTileGroups}
}

// Run advances the build cursor of every live index in registry over table,
// returning one Result per index it touched.
func (b *Builder) Run(tableLabel string, table storage.Table, registry *index.Registry) []Result {
	var results []Result
	var toDrop []int

	registry.ForEachLive(func(oid int, idx *index.Index) {
		res := b.buildOne(tableLabel, table, idx)
		res.OID = idx.OID
		if res.Retired {
			toDrop = append(toDrop, oid)
		}
		results = append(results, res)
	})

	for _, oid := range toDrop {
		registry.Drop(oid)
	}
	return results
}

// buildOne implements §4.4 steps 1-3 for a single index.
func (b *Builder) buildOne(tableLabel string, table storage.Table, idx *index.Index) Result {
	cursor := int(idx.BuildCursor())
	total := table.TileGroupCount()
	limit := cursor + b.MaxTileGroups
	if limit > total {
		limit = total
	}

	processed := 0
	rowsAdded := 0
	for blockID := cursor; blockID < limit; blockID++ {
		tg := table.TileGroup(blockID)
		if tg == nil {
			break
		}
		n, err := b.indexTileGroup(idx, tg)
		rowsAdded += n
		if err != nil {
			logutil.BgLogger().Warn("[index-builder] tile group build failed, retiring index",
				zap.String("table", tableLabel), zap.String("index", idx.Name), zap.Error(err))
			return Result{TileGroupsAdded: processed, RowsAdded: rowsAdded, Retired: true, Err: errors.Trace(err)}
		}
		processed++
		metrics.BuildRowsProcessed.WithLabelValues(tableLabel, idx.Name).Add(float64(n))
		// Yield between tile groups so concurrent writers make progress
		// (§4.4's concurrency contract: the builder holds no lock across
		// tile groups).
		runtime.Gosched()
	}

	if processed > 0 {
		// The cursor is advanced only after every row of a tile group has
		// been inserted, so readers observing cursor = C may assume tile
		// groups [0, C) are fully represented (§4.4 step 3).
		idx.AdvanceCursor(uint32(processed))
		metrics.IndexBuildCursor.WithLabelValues(tableLabel, idx.Name).Set(float64(idx.BuildCursor()))
	}

	return Result{TileGroupsAdded: processed, RowsAdded: rowsAdded}
}

func (b *Builder) indexTileGroup(idx *index.Index, tg storage.TileGroup) (int, error) {
	n := tg.RowCount()
	added := 0
	for offset := 0; offset < n; offset++ {
		buf := idx.AcquireArena()
		key := tg.Columns(offset, idx.KeyAttrs, buf)
		id := storage.TupleID{Block: uint32(tg.BlockID()), Offset: uint32(offset)}
		err := idx.Insert(key, id)
		idx.ReleaseArena(buf)
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
