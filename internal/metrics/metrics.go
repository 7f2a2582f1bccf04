package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consultbot",
			Name:      "ops_http_requests_total",
			Help:      "Ops HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	sessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "consultbot",
			Name:      "sessions_swept_total",
			Help:      "Booking sessions removed by the janitor.",
		},
	)
)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Register registers the package metrics in reg. Only the first call has
// an effect.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(httpRequests, sessionsSwept)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// AddSwept records sessions removed by one sweep.
func AddSwept(n int) {
	if n > 0 {
		sessionsSwept.Add(float64(n))
	}
}
