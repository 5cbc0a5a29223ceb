package api

import (
	"fusionguard/core/utils"

	"github.com/prometheus/client_golang/prometheus"
)

type statsSource interface {
	StatsSnapshot() utils.WorkerStats
}

// workerMetric reads one series from a worker snapshot. ok=false skips the
// sample, e.g. before the first tick.
type workerMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(utils.WorkerStats) (v float64, ok bool)
}

type workersCollector struct {
	workers map[string]statsSource
	series  []workerMetric
}

func workerDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc("fusionguard_worker_"+name, help, []string{"worker"}, nil)
}

func newWorkersMetricsCollector(workers map[string]statsSource) prometheus.Collector {
	return &workersCollector{
		workers: workers,
		series: []workerMetric{
			{workerDesc("ticks_total", "Ticks completed by the worker."), prometheus.CounterValue,
				func(s utils.WorkerStats) (float64, bool) { return float64(s.TicksTotal), true }},
			{workerDesc("tick_errors_total", "Ticks that ended in an error."), prometheus.CounterValue,
				func(s utils.WorkerStats) (float64, bool) { return float64(s.TickErrorsTotal), true }},
			{workerDesc("last_tick_timestamp", "Unix time of the most recent tick."), prometheus.GaugeValue,
				func(s utils.WorkerStats) (float64, bool) {
					if s.LastTickAtUTC == nil {
						return 0, false
					}
					return float64(s.LastTickAtUTC.Unix()), true
				}},
			{workerDesc("running", "1 while the worker loop is active."), prometheus.GaugeValue,
				func(s utils.WorkerStats) (float64, bool) {
					if s.Running {
						return 1, true
					}
					return 0, true
				}},
		},
	}
}

func (c *workersCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.series {
		ch <- m.desc
	}
}

func (c *workersCollector) Collect(ch chan<- prometheus.Metric) {
	for name, src := range c.workers {
		snap := src.StatsSnapshot()
		for _, m := range c.series {
			if v, ok := m.value(snap); ok {
				ch <- prometheus.MustNewConstMetric(m.desc, m.kind, v, name)
			}
		}
	}
}
