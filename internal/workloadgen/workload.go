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

import "github.com/brahmabase/tilestore/sample"

// ColumnSetWeight pairs a query's key columns with its relative frequency
// in a synthetic workload.
type ColumnSetWeight struct {
	Columns []int
	Weight  float64
}

// AccessSamples produces n access samples whose column sets are drawn from
// weights proportionally, each with a duration uniformly drawn from
// [minDuration, maxDuration).
func AccessSamples(n int, weights []ColumnSetWeight, minDuration, maxDuration float64) []sample.Sample {
	out := make([]sample.Sample, 0, n)
	var total float64
	for _, w := range weights {
		total += w.Weight
	}
	for i := 0; i < n; i++ {
		cols := pickWeighted(weights, total)
		out = append(out, sample.NewAccess(cols, randomFloat64(minDuration, maxDuration)))
	}
	return out
}

// UpdateSamples produces n update samples with durations uniformly drawn
// from [minDuration, maxDuration).
func UpdateSamples(n int, minDuration, maxDuration float64) []sample.Sample {
	out := make([]sample.Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample.NewUpdate(randomFloat64(minDuration, maxDuration)))
	}
	return out
}

func pickWeighted(weights []ColumnSetWeight, total float64) []int {
	if len(weights) == 0 {
		return nil
	}
	if total <= 0 {
		return weights[randomIntn(len(weights))].Columns
	}
	r := randomFloat64(0, total)
	var cum float64
	for _, w := range weights {
		cum += w.Weight
		if r < cum {
			return w.Columns
		}
	}
	return weights[len(weights)-1].Columns
}
