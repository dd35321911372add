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

package tuner

import "time"

// Config holds the tuner's configuration knobs (§6). The zero value is not
// meaningful; use DefaultConfig.
type Config struct {
	// SampleCountThreshold is the minimum number of buffered samples before
	// a table is analyzed in a pass.
	SampleCountThreshold int
	// IndexCountThreshold is the maximum number of live indexes per table.
	IndexCountThreshold int
	// IndexUtilityThreshold is the utility floor below which a live index is
	// dropped.
	IndexUtilityThreshold float64
	// WriteRatioThreshold is the smoothed write-ratio cutoff past which the
	// workload is considered write-intensive.
	WriteRatioThreshold float64
	// Alpha is the EMA weight given to the new observation, both for the
	// smoothed write ratio and for each index's utility.
	Alpha float64
	// MaxTileGroupsIndexedPerPass bounds the incremental builder's work per
	// index per pass.
	MaxTileGroupsIndexedPerPass int
	// InitialUtility is assigned to a newly proposed index.
	InitialUtility float64
	// FrequentSampleRank is N in the top-N column-set histogram (§4.5.c).
	FrequentSampleRank int
	// PassInterval is the tick interval of the background worker loop; on
	// each tick every registered table gets one pass, back to back (Open
	// Question in §9, resolved to 10ms).
	PassInterval time.Duration
}

// DefaultConfig returns the recommended knob values from §6's table.
func DefaultConfig() Config {
	return Config{
		SampleCountThreshold:        20,
		IndexCountThreshold:         5,
		IndexUtilityThreshold:       0.1,
		WriteRatioThreshold:         0.8,
		Alpha:                       0.2,
		MaxTileGroupsIndexedPerPass: 10,
		InitialUtility:              0.5,
		FrequentSampleRank:          10,
		PassInterval:                10 * time.Millisecond,
	}
}
