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

package logutil

import (
	"context"
	"testing"

	. "github.com/pingcap/check"
)

func Test(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testLogSuite{})

type testLogSuite struct{}

func (s *testLogSuite) TestInitLoggerAcceptsEveryLevel(c *C) {
	for _, level := range []string{"debug", "info", "warn", "error", "fatal"} {
		c.Assert(InitLogger(Config{Level: level}), IsNil)
	}
}

func (s *testLogSuite) TestBgLoggerNeverNil(c *C) {
	c.Assert(BgLogger(), NotNil)
}

func (s *testLogSuite) TestWithKeyValueAttachesToContextLogger(c *C) {
	ctx := WithKeyValue(context.Background(), "table", "orders")
	c.Assert(Logger(ctx), NotNil)
}

func (s *testLogSuite) TestLoggerFallsBackToGlobalWithoutContextValue(c *C) {
	c.Assert(Logger(context.Background()), Equals, BgLogger())
}
