package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduler related metrics
	SchedulerJobs         *prometheus.GaugeVec
	SchedulerDeliveries   *prometheus.CounterVec
	SchedulerScanDuration prometheus.Histogram
	SchedulerRetries      prometheus.Counter

	// Reminder service metrics
	ReminderOperations *prometheus.CounterVec
	PropagationResults *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors without registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		SchedulerJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs",
			Help:      "Current number of reminder jobs by status",
		}, []string{"status"}),
		SchedulerDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "deliveries_total",
			Help:      "Total number of reminder delivery attempts by result",
		}, []string{"result"}),
		SchedulerScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning for due reminders",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SchedulerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "retries_total",
			Help:      "Total number of failed reminders returned to pending",
		}),
		ReminderOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "operations_total",
			Help:      "Total number of reminder operations by outcome",
		}, []string{"operation", "status"}),
		PropagationResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "propagation_total",
			Help:      "Reminders rescheduled or removed after an event date change",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.SchedulerJobs,
		m.SchedulerDeliveries,
		m.SchedulerScanDuration,
		m.SchedulerRetries,
		m.ReminderOperations,
		m.PropagationResults,
		m.RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
