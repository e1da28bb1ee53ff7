// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines the Prometheus collectors updated by dictionary
// lookups, index builds and the render cache.
//
// Collectors are package globals so that every dictionary in a process
// reports into the same series. They are not registered automatically; call
// Register with the registry that will be exported.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdict"

// Lookup kinds.
const (
	KindText  = "text"
	KindMedia = "media"
)

// Lookup results.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	// Lookups counts lookups by kind (text or media) and result.
	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Total number of dictionary lookups by kind and result",
	}, []string{"kind", "result"})

	// LookupLatency observes lookup durations by kind.
	LookupLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lookup_duration_seconds",
		Help:      "Histogram of dictionary lookup latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// LemmaFallbacks counts text lookups retried with a lemma.
	LemmaFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lemma_fallbacks_total",
		Help:      "Total number of lookups retried with a lemmatized word",
	})

	// Redirects counts redirect entries followed.
	Redirects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Total number of redirect entries followed",
	})

	// CacheHits counts render cache hits.
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of render cache hits",
	})

	// CacheMisses counts render cache misses.
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of render cache misses",
	})

	// CacheEvictions counts entries evicted to stay within a cache's capacity.
	CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Total number of render cache entries evicted",
	})

	// CacheBytes is the payload size held by all render caches.
	CacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_bytes",
		Help:      "Current number of payload bytes held by render caches",
	})

	// IndexBuilds counts side index builds by archive kind.
	IndexBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_builds_total",
		Help:      "Total number of side index builds by archive kind",
	}, []string{"kind"})

	// IndexBuildLatency observes side index build durations.
	IndexBuildLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "index_build_duration_seconds",
		Help:      "Histogram of side index build time",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)

// Collectors returns all collectors defined by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Lookups,
		LookupLatency,
		LemmaFallbacks,
		Redirects,
		CacheHits,
		CacheMisses,
		CacheEvictions,
		CacheBytes,
		IndexBuilds,
		IndexBuildLatency,
	}
}

// Register registers all collectors with reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObserveLookup records the result and latency of a lookup that started at
// start.
func ObserveLookup(kind, result string, start time.Time) {
	Lookups.WithLabelValues(kind, result).Inc()
	LookupLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ObserveBuild records a side index build that started at start.
func ObserveBuild(kind string, start time.Time) {
	IndexBuilds.WithLabelValues(kind).Inc()
	IndexBuildLatency.Observe(time.Since(start).Seconds())
}
