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

// Package workloadgen generates synthetic samples and tile-group-backed
// tables for exercising the tuner, builder, and hybrid scan in tests,
// grounded on the random-value helpers in cmd/ddltest/random.go.
package workloadgen

import "math/rand"

func randomIntn(n int) int {
	return rand.Intn(n)
}

// randomFloat64 returns a value in [min, max).
func randomFloat64(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}
