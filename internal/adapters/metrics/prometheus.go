// Package metrics exposes flush outcomes as Prometheus collectors.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

const namespace = "udpship"

// Result label values of flushes_total.
const (
	ResultSuccess     = "success"
	ResultSendError   = "send_error"
	ResultEncodeError = "encode_error"
)

// Collector implements ports.FlushObserver on top of Prometheus metrics.
type Collector struct {
	mu sync.Mutex

	flushesTotal  *prometheus.CounterVec
	eventsTotal   prometheus.Counter
	bytesTotal    prometheus.Counter
	batchSize     prometheus.Histogram
	flushDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

var _ ports.FlushObserver = (*Collector)(nil)

// NewCollector creates the collectors. A nil registerer means
// prometheus.DefaultRegisterer. Call Register before use.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Collector{
		registerer: registerer,
		flushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Total number of flushes by result",
		}, []string{"result", "final"}),
		eventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_sent_total",
			Help:      "Total number of events in successfully sent envelopes",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total number of payload bytes successfully sent",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of events per flushed envelope",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250, 500, 1000},
		}),
		flushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time from envelope construction to send completion",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"result"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		c.flushesTotal,
		c.eventsTotal,
		c.bytesTotal,
		c.batchSize,
		c.flushDuration,
	}
	for _, col := range collectors {
		if err := c.registerer.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}

	c.registered = true
	return nil
}

// OnFlush records one flush.
func (c *Collector) OnFlush(report ports.FlushReport) {
	result := Result(report.Err)
	final := "false"
	if report.Final {
		final = "true"
	}

	c.flushesTotal.WithLabelValues(result, final).Inc()
	c.batchSize.Observe(float64(report.Events))
	c.flushDuration.WithLabelValues(result).Observe(report.Duration.Seconds())

	if report.Err == nil {
		c.eventsTotal.Add(float64(report.Events))
		c.bytesTotal.Add(float64(report.Bytes))
	}
}

// Result maps a flush error to its label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrEncode):
		return ResultEncodeError
	default:
		return ResultSendError
	}
}
