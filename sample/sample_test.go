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

package sample_test

import (
	"testing"

	. "github.com/pingcap/check"

	"github.com/brahmabase/tilestore/sample"
)

func TestT(t *testing.T) { TestingT(t) }

var _ = Suite(&testSuite{})

type testSuite struct{}

func (*testSuite) TestRingDrainIsAtomicAndResets(c *C) {
	r := sample.NewRing("t", 8)
	r.Record(sample.NewAccess([]int{1}, 1.0))
	r.Record(sample.NewUpdate(2.0))
	c.Assert(r.Len(), Equals, 2)

	drained := r.Drain()
	c.Assert(drained, HasLen, 2)
	c.Assert(r.Len(), Equals, 0)
}

func (*testSuite) TestRingDropsOldestOnOverflow(c *C) {
	r := sample.NewRing("t", 2)
	r.Record(sample.NewUpdate(1.0))
	r.Record(sample.NewUpdate(2.0))
	r.Record(sample.NewUpdate(3.0))

	c.Assert(r.DroppedCount(), Equals, uint64(1))
	drained := r.Drain()
	c.Assert(drained, HasLen, 2)
	c.Assert(drained[0].Weight, Equals, 2.0)
	c.Assert(drained[1].Weight, Equals, 3.0)
}

func (*testSuite) TestNewAccessAndUpdate(c *C) {
	a := sample.NewAccess([]int{2, 5}, 0.5)
	c.Assert(a.Kind, Equals, sample.Access)
	c.Assert(a.Columns, DeepEquals, []int{2, 5})

	u := sample.NewUpdate(0.25)
	c.Assert(u.Kind, Equals, sample.Update)
	c.Assert(u.Columns, HasLen, 0)
}
