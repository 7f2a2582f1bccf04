package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdatesProcessed     *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	BookingsStarted      prometheus.Counter
	BookingsCompleted    prometheus.Counter
	ApprovalResults      *prometheus.CounterVec
	JoinRequests         prometheus.Counter
	RateLimited          prometheus.Counter
}

// NewMetrics регистрирует метрики в reg. nil означает глобальный реестр.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		UpdatesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consultbot_updates_processed_total",
			Help: "Total number of routable updates by kind",
		}, []string{"kind"}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "consultbot_errors_total",
			Help: "Total number of failed or panicked update handlers",
		}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consultbot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		BookingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "consultbot_bookings_started_total",
			Help: "Total number of booking dialogues started",
		}),

		BookingsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "consultbot_bookings_completed_total",
			Help: "Total number of bookings confirmed and announced to the group",
		}),

		ApprovalResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consultbot_approval_results_total",
			Help: "Approve command outcomes",
		}, []string{"result"}),

		JoinRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "consultbot_join_requests_total",
			Help: "Join requests relayed to the admin",
		}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "consultbot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limit",
		}),
	}
}
