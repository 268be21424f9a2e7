package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/goposition/internal/usecase"
)

// Metrics holds all Prometheus metrics of the position handler.
type Metrics struct {
	// Event metrics
	TransferPosition *prometheus.HistogramVec
	EventsStarted    prometheus.Counter

	// Batch metrics
	BatchDuration *prometheus.HistogramVec
	BatchSize     prometheus.Histogram
	Batches       *prometheus.CounterVec

	// Liquidity metrics
	Decisions   *prometheus.CounterVec
	LimitAlarms prometheus.Counter

	// Publishing metrics
	PublishErrors *prometheus.CounterVec
}

var _ usecase.Recorder = (*Metrics)(nil)

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransferPosition: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goposition_transfer_position_seconds",
				Help:    "Time from receipt of a position event to its completion",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"success"},
		),
		EventsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "goposition_events_received_total",
			Help: "Total number of position events received",
		}),

		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goposition_batch_duration_seconds",
				Help:    "Duration of batch processing by outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goposition_batch_size",
			Help:    "Number of messages per fetched batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		Batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goposition_batches_total",
				Help: "Total number of batches by outcome",
			},
			[]string{"outcome"},
		),

		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goposition_liquidity_decisions_total",
				Help: "Total liquidity decisions by result",
			},
			[]string{"result"},
		),
		LimitAlarms: factory.NewCounter(prometheus.CounterOpts{
			Name: "goposition_limit_alarms_total",
			Help: "Total number of liquidity threshold alarms",
		}),

		PublishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goposition_publish_errors_total",
				Help: "Total outcome publish failures by topic",
			},
			[]string{"topic"},
		),
	}
}

type eventTimer struct {
	hist  *prometheus.HistogramVec
	start time.Time
	once  sync.Once
}

// ObserveDuration records the elapsed time. Only the first call counts.
func (t *eventTimer) ObserveDuration(success bool) {
	t.once.Do(func() {
		label := "false"
		if success {
			label = "true"
		}
		t.hist.WithLabelValues(label).Observe(time.Since(t.start).Seconds())
	})
}

func (m *Metrics) StartEventTimer() usecase.Timer {
	m.EventsStarted.Inc()
	return &eventTimer{hist: m.TransferPosition, start: time.Now()}
}

func (m *Metrics) ObserveBatch(outcome string, size int, elapsed time.Duration) {
	m.Batches.WithLabelValues(outcome).Inc()
	m.BatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if size > 0 {
		m.BatchSize.Observe(float64(size))
	}
}

func (m *Metrics) RecordDecision(result string) {
	m.Decisions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLimitAlarm() {
	m.LimitAlarms.Inc()
}

// RecordPublishError counts a failed publish to topic.
func (m *Metrics) RecordPublishError(topic string) {
	m.PublishErrors.WithLabelValues(topic).Inc()
}
