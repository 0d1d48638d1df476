package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the orchestrator.
type Metrics struct {
	TransitionsCommitted  *prometheus.CounterVec
	TransitionsRejected   *prometheus.CounterVec
	UgelReentries         prometheus.Counter
	WebhooksProcessed     *prometheus.CounterVec
	NotificationsSent     prometheus.Counter
	NotificationsFailed   prometheus.Counter
	NotificationQueueSize prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_transitions_committed_total",
			Help: "Committed request transitions by source and target state",
		}, []string{"from", "to"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_transitions_rejected_total",
			Help: "Guard rejections by reason",
		}, []string{"reason"}),
		UgelReentries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_ugel_reentries_total",
			Help: "Observation loops re-entering UGEL validation",
		}),
		WebhooksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_webhooks_processed_total",
			Help: "Payment webhooks processed by outcome",
		}, []string{"outcome"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_notifications_sent_total",
			Help: "Notifications delivered through a channel",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_notifications_failed_total",
			Help: "Notifications permanently failed after exhausting retries",
		}),
		NotificationQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sigcerh_notification_queue_size",
			Help: "Pending notifications in the dispatch queue",
		}),
	}
}

// NewForTest builds Metrics against a private registry so parallel tests do
// not collide on the default registerer.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_transitions_committed_total",
		}, []string{"from", "to"}),
		TransitionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_transitions_rejected_total",
		}, []string{"reason"}),
		UgelReentries: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_ugel_reentries_total",
		}),
		WebhooksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigcerh_webhooks_processed_total",
		}, []string{"outcome"}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_notifications_sent_total",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigcerh_notifications_failed_total",
		}),
		NotificationQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sigcerh_notification_queue_size",
		}),
	}
}
