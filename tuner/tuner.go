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

// Package tuner implements the Tuner Control Loop (§4.5): the background
// worker that periodically drains each registered table's sample ring,
// decides which indexes to drop and which to propose, hands the proposals
// and existing indexes to the incremental builder, and smooths both a
// per-tuner write-ratio estimate and each index's utility score.
//
// Grounded on the start/close worker shape of ddl/ddl_worker.go: a ticker,
// a quit channel and a WaitGroup, rather than a context-driven loop, since
// the teacher's own background jobs use this pattern throughout.
package tuner

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/brahmabase/tilestore/build"
	"github.com/brahmabase/tilestore/index"
	"github.com/brahmabase/tilestore/sample"
	"github.com/brahmabase/tilestore/storage"
	"github.com/brahmabase/tilestore/util/logutil"
)

// tableState is the per-table bookkeeping the tuner owns: the table handle
// it samples and builds over, its sample ring, and its index registry.
type tableState struct {
	label    string
	table    storage.Table
	ring     *sample.Ring
	registry *index.Registry
}

// Tuner is the explicitly constructed control loop object (Design Notes:
// the original engine's process-wide singleton is replaced by an ordinary
// value the caller owns, constructs, and stops). One Tuner may drive many
// registered tables; the smoothed write-ratio is a single, tuner-wide
// estimate shared across all of them (§4.5's "Tuner State").
type Tuner struct {
	cfg     Config
	builder *build.Builder

	mu     sync.RWMutex
	tables []*tableState

	writeRatio   atomic.Float64
	hasPrior     atomic.Bool
	nextOID      atomic.Int64

	quitCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Tuner with cfg. Call RegisterTable for each table it
// should tune, then Run to start the background worker.
func New(cfg Config) *Tuner {
	return &Tuner{
		cfg:     cfg,
		builder: build.New(cfg.MaxTileGroupsIndexedPerPass),
		quitCh:  make(chan struct{}),
	}
}

// RegisterTable adds table to the set the tuner analyzes each pass, with
// its own sample ring and index registry. label identifies the table in
// logs and metrics.
func (t *Tuner) RegisterTable(label string, table storage.Table) (*sample.Ring, *index.Registry) {
	ts := &tableState{
		label:    label,
		table:    table,
		ring:     sample.NewRing(label, sample.DefaultCapacity),
		registry: index.NewRegistry(),
	}
	t.mu.Lock()
	t.tables = append(t.tables, ts)
	t.mu.Unlock()
	return ts.ring, ts.registry
}

// WriteRatio returns the current smoothed write-ratio estimate, or false if
// no pass has produced one yet.
func (t *Tuner) WriteRatio() (float64, bool) {
	return t.writeRatio.Load(), t.hasPrior.Load()
}

// Run starts the background worker goroutine. It returns immediately; call
// Stop to shut it down.
func (t *Tuner) Run() {
	t.wg.Add(1)
	go t.loop()
}

func (t *Tuner) loop() {
	defer t.wg.Done()
	logutil.BgLogger().Info("[tuner] control loop started")

	ticker := time.NewTicker(t.cfg.PassInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-t.quitCh:
			logutil.BgLogger().Info("[tuner] control loop stopped")
			return
		}
		t.runAllTables()
	}
}

// Stop signals the background worker to exit and waits for it to finish.
// It is safe to call Stop without a prior Run.
func (t *Tuner) Stop() {
	close(t.quitCh)
	t.wg.Wait()
}

func (t *Tuner) runAllTables() {
	t.mu.RLock()
	tables := append([]*tableState(nil), t.tables...)
	t.mu.RUnlock()

	for _, ts := range tables {
		select {
		case <-t.quitCh:
			return
		default:
		}
		func() {
			defer func() {
				// §7: any panic in a single table's pass is caught, logged,
				// and never takes down the worker or the other tables.
				if r := recover(); r != nil {
					logutil.BgLogger().Error("[tuner] pass panicked, recovering",
						zap.String("table", ts.label), zap.Any("panic", r))
				}
			}()
			if err := t.runPass(ts); err != nil {
				logutil.BgLogger().Warn("[tuner] pass failed",
					zap.String("table", ts.label), zap.Error(err))
			}
		}()
	}
}

func (t *Tuner) allocOID() int64 {
	return t.nextOID.Inc()
}
