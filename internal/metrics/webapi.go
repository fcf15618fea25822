package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(apiRequestsTotal)
}

var apiRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webapi_requests_total",
		Help:      "Web app API requests by endpoint and HTTP status.",
	},
	[]string{"endpoint", "code"},
)

func IncAPIRequest(endpoint string, code int) {
	apiRequestsTotal.WithLabelValues(norm(endpoint), strconv.Itoa(code)).Inc()
}
