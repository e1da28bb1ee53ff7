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

package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-mdict"
	"github.com/ianlewis/go-mdict/metrics"
)

var benchCommand = &cli.Command{
	Name:      "bench",
	Usage:     "measure lookup performance",
	ArgsUsage: "WORD...",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "requests",
			Usage:   "total number of lookups",
			Aliases: []string{"n"},
			Value:   200,
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "number of concurrent workers",
			Aliases: []string{"c"},
			Value:   20,
		},
	},
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		words := c.Args().Slice()
		if len(words) == 0 {
			return fmt.Errorf("%w: expected at least one WORD", ErrFlagParse)
		}
		requests, concurrency := c.Int("requests"), c.Int("concurrency")
		if requests <= 0 || concurrency <= 0 {
			return fmt.Errorf("%w: requests and concurrency must be positive", ErrFlagParse)
		}

		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return fmt.Errorf("%w: %w", ErrMdutil, err)
		}

		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		res := runBench(c.Context, dicts, words, requests, concurrency)

		families, err := reg.Gather()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMdutil, err)
		}
		return printBench(c, res, families)
	},
}

type benchResult struct {
	latency   prometheus.Histogram
	latencies []time.Duration
	found     int
	notFound  int
	failures  int
	elapsed   time.Duration
}

// runBench performs requests lookups of words spread over concurrency
// workers. Each lookup goes through the render cache.
func runBench(ctx context.Context, dicts []*mdict.Mdict, words []string, requests, concurrency int) *benchResult {
	res := &benchResult{
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bench_lookup_duration_seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan string)
	start := time.Now()
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for word := range jobs {
				t := time.Now()
				err := benchLookup(ctx, dicts, word)
				d := time.Since(t)
				res.latency.Observe(d.Seconds())

				mu.Lock()
				res.latencies = append(res.latencies, d)
				switch {
				case err == nil:
					res.found++
				case errors.Is(err, mdict.ErrNotFound):
					res.notFound++
				default:
					res.failures++
				}
				mu.Unlock()
			}
		}()
	}
	for i := range requests {
		jobs <- words[i%len(words)]
	}
	close(jobs)
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}

func benchLookup(ctx context.Context, dicts []*mdict.Mdict, word string) error {
	for _, d := range dicts {
		_, err := d.LookupRendered(ctx, word, tagHTML, mdict.RenderFunc(renderHTML))
		if errors.Is(err, mdict.ErrNotFound) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %q", mdict.ErrNotFound, word)
}

// percentile returns the p-th percentile of sorted latencies using linear
// interpolation.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	k := float64(len(sorted)-1) * p / 100
	f := int(math.Floor(k))
	ceil := min(f+1, len(sorted)-1)
	if f == ceil {
		return sorted[f]
	}
	return time.Duration(math.Round(float64(sorted[f])*(float64(ceil)-k) + float64(sorted[ceil])*(k-float64(f))))
}

// counterSum returns the sum of all series of the named counter.
func counterSum(families []*dto.MetricFamily, name string) float64 {
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

func printBench(c *cli.Context, res *benchResult, families []*dto.MetricFamily) error {
	m := &dto.Metric{}
	if err := res.latency.Write(m); err != nil {
		return fmt.Errorf("%w: %w", ErrMdutil, err)
	}
	h := m.GetHistogram()

	total := res.found + res.notFound + res.failures
	var qps, avg float64
	if s := res.elapsed.Seconds(); s > 0 {
		qps = float64(total) / s
	}
	if n := h.GetSampleCount(); n > 0 {
		avg = h.GetSampleSum() / float64(n) * 1000
	}

	slices.Sort(res.latencies)
	ms := func(d time.Duration) string {
		return fmt.Sprintf("%.2f", float64(d)/float64(time.Millisecond))
	}

	tbl := table.New("Metric", "Value").WithWriter(c.App.Writer)
	tbl.AddRow("Requests", total)
	tbl.AddRow("Found", res.found)
	tbl.AddRow("Not found", res.notFound)
	tbl.AddRow("Failures", res.failures)
	tbl.AddRow("Total time (s)", fmt.Sprintf("%.2f", res.elapsed.Seconds()))
	tbl.AddRow("Requests/sec", fmt.Sprintf("%.2f", qps))
	tbl.AddRow("Cache hits", counterSum(families, "mdict_cache_hits_total"))
	tbl.AddRow("Lemma fallbacks", counterSum(families, "mdict_lemma_fallbacks_total"))
	if len(res.latencies) > 0 {
		tbl.AddRow("Latency min (ms)", ms(res.latencies[0]))
		tbl.AddRow("Latency avg (ms)", fmt.Sprintf("%.2f", avg))
		tbl.AddRow("Latency p50 (ms)", ms(percentile(res.latencies, 50)))
		tbl.AddRow("Latency p90 (ms)", ms(percentile(res.latencies, 90)))
		tbl.AddRow("Latency p99 (ms)", ms(percentile(res.latencies, 99)))
	}
	tbl.Print()
	return nil
}
