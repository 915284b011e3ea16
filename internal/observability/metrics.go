// Package observability registers the Prometheus metrics shared across fitrun.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	notificationCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitrun",
		Subsystem: "store",
		Name:      "notifications_total",
		Help:      "Number of notify passes triggered by store mutations.",
	})

	subscriberPanicCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitrun",
		Subsystem: "store",
		Name:      "subscriber_panics_total",
		Help:      "Number of subscriber callbacks that panicked during notify.",
	})

	foldCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitrun",
		Subsystem: "feed",
		Name:      "folds_total",
		Help:      "Number of change events folded into a store, by change type.",
	}, []string{"change_type"})

	unknownChangeCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitrun",
		Subsystem: "feed",
		Name:      "unknown_change_events_total",
		Help:      "Number of change events carrying an unrecognized change type.",
	})

	trainingPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitrun",
		Subsystem: "persistence",
		Name:      "last_training_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(
		notificationCounter,
		subscriberPanicCounter,
		foldCounter,
		unknownChangeCounter,
		trainingPersistGauge,
	)
}

// RecordNotification counts one notify pass.
func RecordNotification() {
	notificationCounter.Inc()
}

// RecordSubscriberPanic counts one recovered subscriber panic.
func RecordSubscriberPanic() {
	subscriberPanicCounter.Inc()
}

// RecordFold counts one applied change event.
func RecordFold(changeType string) {
	foldCounter.WithLabelValues(changeType).Inc()
}

// RecordUnknownChange counts one change event with an unrecognized tag.
func RecordUnknownChange() {
	unknownChangeCounter.Inc()
}

// RecordTrainingPersisted updates the persistence watermark gauge.
func RecordTrainingPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	trainingPersistGauge.Set(float64(ts.Unix()))
}
