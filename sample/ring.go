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

package sample

import (
	"sync"

	"github.com/brahmabase/tilestore/metrics"
)

// DefaultCapacity bounds a ring at a generous size; overflow drops the
// oldest sample rather than blocking a producer.
const DefaultCapacity = 1 << 16

// Ring is a per-table bounded circular buffer of samples. Many producers
// call Record concurrently; only the tuner calls Drain, and only
// occasionally. Ordering across Record calls is not semantically
// significant (§4.1). The backing array is fixed-size and indexed modulo
// capacity, so an overflow drops the oldest sample in O(1) rather than
// shifting the buffer.
type Ring struct {
	tableLabel string
	capacity   int

	mu           sync.Mutex
	buf          []Sample
	head         int // index of the oldest buffered sample
	count        int // number of buffered samples, <= capacity
	droppedCount uint64
}

// NewRing builds a Ring bounded at capacity (DefaultCapacity if capacity<=0).
// tableLabel is used only for the dropped-samples metric.
func NewRing(tableLabel string, capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		tableLabel: tableLabel,
		capacity:   capacity,
		buf:        make([]Sample, capacity),
	}
}

// Record appends a sample. It never blocks for longer than the O(1) slot
// write under the ring's coarse lock (Design Notes: a coarse
// spinlock-equivalent on a growable vector is sufficient here, since
// correctness never depends on sample ordering).
func (r *Ring) Record(s Sample) {
	r.mu.Lock()
	if r.count == r.capacity {
		// Drop the oldest sample to bound memory; losing the oldest part of
		// the history on overflow is acceptable per the contract. Advancing head
		// is O(1): no data is shifted.
		r.head = (r.head + 1) % r.capacity
		r.count--
		r.droppedCount++
		metrics.SamplesDropped.WithLabelValues(r.tableLabel).Inc()
	}
	tail := (r.head + r.count) % r.capacity
	r.buf[tail] = s
	r.count++
	r.mu.Unlock()
}

// Drain atomically takes the current contents, oldest first, and resets the
// ring. Samples recorded concurrently with a Drain either land in the
// drained slice or in the next one; no sample is observed twice and none is
// silently lost except via the overflow policy above.
func (r *Ring) Drain() []Sample {
	r.mu.Lock()
	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%r.capacity]
	}
	r.head = 0
	r.count = 0
	r.mu.Unlock()
	return out
}

// DroppedCount returns the number of samples dropped due to overflow so far.
func (r *Ring) DroppedCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.droppedCount
}

// Len reports the current number of buffered samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
