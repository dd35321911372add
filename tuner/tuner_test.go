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

package tuner_test

import (
	"testing"
	"time"

	. "github.com/pingcap/check"

	"github.com/brahmabase/tilestore/internal/workloadgen"
	"github.com/brahmabase/tilestore/sample"
	"github.com/brahmabase/tilestore/tuner"
)

func TestTLifecycle(t *testing.T) { TestingT(t) }

var _ = Suite(&lifecycleSuite{})

type lifecycleSuite struct{}

// S6 — stop-join: after Stop returns, no further index mutation happens
// and the worker goroutine has exited.
func (*lifecycleSuite) TestStopJoinsCleanly(c *C) {
	cfg := tuner.DefaultConfig()
	cfg.PassInterval = time.Millisecond
	cfg.SampleCountThreshold = 1

	tn := tuner.New(cfg)
	tbl := workloadgen.NewMemTable()
	for g := 0; g < 5; g++ {
		tbl.AppendTileGroup([][]interface{}{{int64(g)}})
	}
	ring, reg := tn.RegisterTable("t", tbl)
	for i := 0; i < 5; i++ {
		ring.Record(sample.NewAccess([]int{0}, 1.0))
	}

	tn.Run()
	time.Sleep(20 * time.Millisecond)
	tn.Stop()

	countAfterStop := reg.ValidCount()
	time.Sleep(20 * time.Millisecond)
	c.Assert(reg.ValidCount(), Equals, countAfterStop)
}
