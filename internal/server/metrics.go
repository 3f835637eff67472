package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sandflake/pkg/idgen/core"
)

const metricsNamespace = "sandflake"

type counterDesc struct {
	key   string // GetMetrics 中的键
	desc  *prometheus.Desc
	scale float64
}

// generatorCollector 把生成器的计数器导出为 prometheus 指标
type generatorCollector struct {
	gen      core.IMonitorableGenerator
	counters []counterDesc
}

func newGeneratorCollector(gen core.IMonitorableGenerator, nodeID string) *generatorCollector {
	labels := prometheus.Labels{"node_id": nodeID}
	counter := func(key, name, help string, scale float64) counterDesc {
		return counterDesc{
			key:   key,
			desc:  prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, labels),
			scale: scale,
		}
	}

	return &generatorCollector{
		gen: gen,
		counters: []counterDesc{
			counter("id_count", "ids_issued_total", "Identifiers issued.", 1),
			counter("sequence_overflow", "sequence_overflow_total", "Times the per-millisecond sequence was exhausted.", 1),
			counter("clock_backward", "clock_backward_total", "Clock readings earlier than the last issued tick.", 1),
			counter("wait_count", "waits_total", "Times a caller was blocked.", 1),
			counter("total_wait_ns", "wait_seconds_total", "Total time callers spent blocked.", 1/float64(time.Second)),
			counter("unavailable", "unavailable_total", "Calls that gave up after the wait budget.", 1),
		},
	}
}

// Describe implements prometheus.Collector
func (c *generatorCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range c.counters {
		ch <- counter.desc
	}
}

// Collect implements prometheus.Collector
func (c *generatorCollector) Collect(ch chan<- prometheus.Metric) {
	values := c.gen.GetMetrics()
	if values["metrics_enabled"] == 0 {
		return
	}
	for _, counter := range c.counters {
		ch <- prometheus.MustNewConstMetric(counter.desc, prometheus.CounterValue,
			float64(values[counter.key])*counter.scale)
	}
}
