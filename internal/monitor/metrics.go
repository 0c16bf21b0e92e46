package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// Collector exports workflow statistics as Prometheus metrics. Values are
// gathered from the store at scrape time
type Collector struct {
	monitor *Monitor
	logger  *slog.Logger

	instances     *prometheus.Desc
	executions    *prometheus.Desc
	avgCompletion *prometheus.Desc
}

const scrapeTimeout = 5 * time.Second

// NewCollector creates a Prometheus collector over the monitor
func NewCollector(m *Monitor, logger *slog.Logger) *Collector {
	return &Collector{
		monitor: m,
		logger:  logger,
		instances: prometheus.NewDesc(
			"workflow_instances",
			"Number of workflow instances by status",
			[]string{"status"}, nil,
		),
		executions: prometheus.NewDesc(
			"workflow_step_executions",
			"Number of step executions by status",
			[]string{"status"}, nil,
		),
		avgCompletion: prometheus.NewDesc(
			"workflow_avg_completion_minutes",
			"Average workflow completion time in minutes",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.instances
	ch <- c.executions
	ch <- c.avgCompletion
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	stats, err := c.monitor.Statistics(ctx)
	if err != nil {
		c.logger.Error("Metrics scrape failed",
			log.Error(err))
		return
	}
	for status, count := range stats.InstanceCounts {
		ch <- prometheus.MustNewConstMetric(
			c.instances, prometheus.GaugeValue,
			float64(count), string(status),
		)
	}
	for status, count := range stats.StepCounts {
		ch <- prometheus.MustNewConstMetric(
			c.executions, prometheus.GaugeValue,
			float64(count), string(status),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		c.avgCompletion, prometheus.GaugeValue, stats.AvgCompletionMinutes,
	)
}
