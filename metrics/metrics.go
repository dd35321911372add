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

// Package metrics exposes the tuner's Prometheus instrumentation, grounded
// on ddl's metrics.DDLWorkerHistogram / metrics.BatchAddIdxHistogram
// pattern: one vector per concern, labeled by table and (where relevant)
// index name.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label names shared across the vectors below.
const (
	LblTable = "table"
	LblIndex = "index"
	LblRet   = "result"
)

const (
	lblOK    = "ok"
	lblError = "error"
)

// RetLabel maps an error to the LblRet value, matching the
// ok/error-labeling convention the ddl package applies to its own
// duration histograms.
func RetLabel(err error) string {
	if err == nil {
		return lblOK
	}
	return lblError
}

var (
	// TunerPassDuration observes the wall time of one tuner analysis pass
	// per table.
	TunerPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tuner",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one tuner control-loop analysis pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 18),
		}, []string{LblTable, LblRet})

	// IndexBuildCursor reports a live index's current build cursor. This is
	// observability only; the tuner never reads it back.
	IndexBuildCursor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "index_build_cursor",
			Help:      "Count of contiguous tile groups fully indexed.",
		}, []string{LblTable, LblIndex})

	// IndexUtility reports a live index's smoothed utility score.
	IndexUtility = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "index_utility",
			Help:      "Exponentially smoothed utility score in [0,1].",
		}, []string{LblTable, LblIndex})

	// SamplesDropped counts samples dropped by a Sample Ring on overflow.
	SamplesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tuner",
			Name:      "samples_dropped_total",
			Help:      "Samples dropped from a table's sample ring on overflow.",
		}, []string{LblTable})

	// IndexesLive reports the current count of non-tombstoned indexes for a
	// table, for testable property 4 (live index count never exceeds the
	// storage cap).
	IndexesLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tuner",
			Name:      "indexes_live",
			Help:      "Count of live (non-tombstoned) indexes.",
		}, []string{LblTable})

	// BuildRowsProcessed counts rows the incremental index builder has
	// inserted into an index.
	BuildRowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tuner",
			Name:      "build_rows_processed_total",
			Help:      "Rows inserted into an index by the incremental builder.",
		}, []string{LblTable, LblIndex})
)

func init() {
	prometheus.MustRegister(
		TunerPassDuration,
		IndexBuildCursor,
		IndexUtility,
		SamplesDropped,
		IndexesLive,
		BuildRowsProcessed,
	)
}
