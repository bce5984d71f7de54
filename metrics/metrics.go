package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudx-io/kwbidder/core"
)

var (
	keywordsByTierDesc = prometheus.NewDesc(
		"kwbidder_keywords",
		"Keywords in the last run by the granularity their bid was derived from",
		[]string{"tier"},
		nil,
	)
	adjustmentsByRuleDesc = prometheus.NewDesc(
		"kwbidder_adjustments",
		"Adjustments that changed a bid in the last run, by rule",
		[]string{"rule"},
		nil,
	)
	exactFloorsDesc = prometheus.NewDesc(
		"kwbidder_exact_floor_ad_groups",
		"Ad groups with an exact match floor in the last run",
		nil,
		nil,
	)
	overallCVRDesc = prometheus.NewDesc(
		"kwbidder_overall_cvr",
		"Account-wide conversion rate of the last run; absent when undefined",
		nil,
		nil,
	)
)

// BidBuckets spans the default bid range up to the cap.
var BidBuckets = []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 12}

// resultCollector emits the counts of a finished run on each gather.
type resultCollector struct {
	mu     sync.Mutex
	result *core.BiddingResult
}

// Describe sends the metric descriptors to the channel.
func (c *resultCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keywordsByTierDesc
	ch <- adjustmentsByRuleDesc
	ch <- exactFloorsDesc
	ch <- overallCVRDesc
}

// Collect emits the tier and adjustment counts of the observed result.
func (c *resultCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	result := c.result
	c.mu.Unlock()
	if result == nil {
		return
	}

	for tier, count := range result.TierCounts {
		ch <- prometheus.MustNewConstMetric(keywordsByTierDesc, prometheus.GaugeValue, float64(count), tier.String())
	}
	for rule, count := range result.AdjustmentCounts {
		ch <- prometheus.MustNewConstMetric(adjustmentsByRuleDesc, prometheus.GaugeValue, float64(count), rule)
	}
	ch <- prometheus.MustNewConstMetric(exactFloorsDesc, prometheus.GaugeValue, float64(len(result.ExactFloors)))
	if cvr, ok := result.OverallCVR.Get(); ok {
		ch <- prometheus.MustNewConstMetric(overallCVRDesc, prometheus.GaugeValue, cvr)
	}
}

// RunMetrics holds the metrics of a single batch run on a private registry.
type RunMetrics struct {
	registry    *prometheus.Registry
	result      *resultCollector
	finalBids   prometheus.Histogram
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewRunMetrics creates and registers the run metrics.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		result:   &resultCollector{},
		finalBids: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kwbidder_final_bid",
			Help:    "Distribution of final keyword bids in the last run",
			Buckets: BidBuckets,
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kwbidder_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kwbidder_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		}),
	}
	m.registry.MustRegister(m.result, m.finalBids, m.duration, m.lastSuccess)
	return m
}

// ObserveResult records the tier and adjustment counts and the final bid distribution.
func (m *RunMetrics) ObserveResult(result *core.BiddingResult) {
	m.result.mu.Lock()
	m.result.result = result
	m.result.mu.Unlock()

	for _, bid := range result.Bids {
		m.finalBids.Observe(bid.Bid)
	}
}

// ObserveDuration sets the run duration.
func (m *RunMetrics) ObserveDuration(d time.Duration) {
	m.duration.Set(d.Seconds())
}

// MarkSuccess sets the last success timestamp.
func (m *RunMetrics) MarkSuccess(at time.Time) {
	m.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the metrics in the node exporter textfile collector format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
