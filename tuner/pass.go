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

import (
	"fmt"
	"sort"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"go.uber.org/zap"

	"github.com/brahmabase/tilestore/colset"
	"github.com/brahmabase/tilestore/index"
	"github.com/brahmabase/tilestore/metrics"
	"github.com/brahmabase/tilestore/sample"
	"github.com/brahmabase/tilestore/util/logutil"
)

// ErrUnknownSampleKind is a programming-error per §7: a sample reached the
// tuner with a Kind the analysis step does not recognize. The pass aborts
// for that table; other tables are unaffected.
var ErrUnknownSampleKind = errors.New("tuner: sample with unknown kind")

// ErrNegativeWeight is a programming-error per §7: a sample's weight must
// never be negative.
var ErrNegativeWeight = errors.New("tuner: sample with negative weight")

// histEntry accumulates one column-set's share of workload weight for the
// frequency-weighted histogram (§4.5.b).
type histEntry struct {
	set    colset.Set
	metric float64
}

// runPass executes one analysis-and-build pass for a single table,
// implementing §4.5 steps a-h. It returns early, doing nothing, if the
// table's ring has not yet reached SampleCountThreshold.
func (t *Tuner) runPass(ts *tableState) (err error) {
	failpoint.Inject("mockTunerPassPanic", func(_ failpoint.Value) {
		panic("mockTunerPassPanic")
	})

	if ts.ring.Len() < t.cfg.SampleCountThreshold {
		return nil
	}

	startTime := time.Now()
	defer func() {
		metrics.TunerPassDuration.WithLabelValues(ts.label, metrics.RetLabel(err)).Observe(time.Since(startTime).Seconds())
	}()

	// Draining here both supplies the samples this pass analyzes and
	// satisfies step h's "sample clear": once drained, a sample is either
	// folded into this pass's histogram/write-ratio or, if it arrived after
	// the drain, left for the next one. No sample is double-counted.
	samples := ts.ring.Drain()
	if len(samples) == 0 {
		return nil
	}

	var accessWeight, updateWeight float64
	hist := make(map[string]*histEntry)

	for _, s := range samples {
		if s.Weight < 0 {
			return ErrNegativeWeight
		}
		switch s.Kind {
		case sample.Access:
			accessWeight += s.Weight
			if len(s.Columns) > 0 {
				cs := colset.New(s.Columns...)
				e, ok := hist[cs.Key()]
				if !ok {
					e = &histEntry{set: cs}
					hist[cs.Key()] = e
				}
				e.metric += s.Metric
			}
		case sample.Update:
			updateWeight += s.Weight
		default:
			return ErrUnknownSampleKind
		}
	}

	// a. Write-ratio estimation.
	total := accessWeight + updateWeight
	if total > 0 {
		r := updateWeight / total
		if !t.hasPrior.Load() {
			t.writeRatio.Store(r)
			t.hasPrior.Store(true)
		} else {
			old := t.writeRatio.Load()
			t.writeRatio.Store(t.cfg.Alpha*r + (1-t.cfg.Alpha)*old)
		}
	}
	writeRatio := t.writeRatio.Load()

	// b. Normalize the histogram by its own total metric, so each entry is a
	// fraction of the access-sample workload weight.
	var histTotal float64
	for _, e := range hist {
		histTotal += e.metric
	}
	fraction := func(cs colset.Set) float64 {
		e, ok := hist[cs.Key()]
		if !ok || histTotal == 0 {
			return 0
		}
		return e.metric / histTotal
	}

	// c. Top-N suggested indexes by fraction.
	suggestions := make([]*histEntry, 0, len(hist))
	for _, e := range hist {
		suggestions = append(suggestions, e)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].metric != suggestions[j].metric {
			return suggestions[i].metric > suggestions[j].metric
		}
		return suggestions[i].set.Key() < suggestions[j].set.Key()
	})
	if len(suggestions) > t.cfg.FrequentSampleRank {
		n := len(suggestions) - t.cfg.FrequentSampleRank
		logutil.BgLogger().Debug("[tuner] trimming suggested column sets",
			zap.String("table", ts.label), zap.Int("dropped", n))
		suggestions = suggestions[:t.cfg.FrequentSampleRank]
	}

	// Snapshot of indexes live before drop/add, for the utility update (f):
	// a newly proposed index starts this pass at exactly InitialUtility and
	// only begins smoothing on a subsequent pass.
	type liveIdx struct {
		oid int
		idx *index.Index
	}
	var preExisting []liveIdx
	ts.registry.ForEachLive(func(oid int, idx *index.Index) {
		preExisting = append(preExisting, liveIdx{oid: oid, idx: idx})
	})

	// d. Drop policy.
	dropped := make(map[int]bool)
	for _, li := range preExisting {
		if li.idx.Utility() < t.cfg.IndexUtilityThreshold {
			dropped[li.oid] = true
		}
	}
	liveAfterUtilityDrop := make([]liveIdx, 0, len(preExisting))
	for _, li := range preExisting {
		if !dropped[li.oid] {
			liveAfterUtilityDrop = append(liveAfterUtilityDrop, li)
		}
	}
	if len(liveAfterUtilityDrop) > t.cfg.IndexCountThreshold || writeRatio > t.cfg.WriteRatioThreshold {
		sort.Slice(liveAfterUtilityDrop, func(i, j int) bool {
			return liveAfterUtilityDrop[i].idx.Utility() < liveAfterUtilityDrop[j].idx.Utility()
		})
		remaining := len(liveAfterUtilityDrop)
		for _, li := range liveAfterUtilityDrop {
			if remaining <= t.cfg.IndexCountThreshold {
				break
			}
			dropped[li.oid] = true
			remaining--
		}
	}
	for oid := range dropped {
		ts.registry.Drop(oid)
	}

	// e. Add policy: skipped entirely while the workload is write-intensive,
	// matching the "no new indexes until write-ratio smooths below
	// threshold" behavior.
	if writeRatio <= t.cfg.WriteRatioThreshold {
		for _, e := range suggestions {
			if ts.registry.ValidCount() >= t.cfg.IndexCountThreshold {
				break
			}
			if alreadyIndexed(ts.registry, e.set) {
				continue
			}
			oid := t.allocOID()
			name := fmt.Sprintf("%s_auto_%d", ts.label, oid)
			idx := index.New(oid, name, e.set.Columns(), index.Secondary, t.cfg.InitialUtility)
			ts.registry.Add(idx)
		}
	}

	// f. Utility update, applied only to indexes that survived the drop
	// step and already existed before this pass's additions.
	for _, li := range preExisting {
		if dropped[li.oid] {
			continue
		}
		u := fraction(li.idx.KeyAttrSet)
		li.idx.UpdateUtility(t.cfg.Alpha, u)
		metrics.IndexUtility.WithLabelValues(ts.label, li.idx.Name).Set(li.idx.Utility())
	}
	metrics.IndexesLive.WithLabelValues(ts.label).Set(float64(ts.registry.ValidCount()))

	// g. Build: advance every live index's cursor over newly appended tile
	// groups.
	t.builder.Run(ts.label, ts.table, ts.registry)

	// h. Sample clear already happened at the top of this pass via Drain.
	return nil
}

// alreadyIndexed reports whether some live index in registry already covers
// exactly the given column set, so the add policy never proposes a
// duplicate.
func alreadyIndexed(registry *index.Registry, cs colset.Set) bool {
	found := false
	registry.ForEachLive(func(_ int, idx *index.Index) {
		if !found && idx.KeyAttrSet.Equal(cs) {
			found = true
		}
	})
	return found
}
