package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the pipeline and the route table. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	rebuilds       *prometheus.CounterVec
	routes         prometheus.Gauge
}

// NewMetrics registers the gateway metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpgate",
				Subsystem: "pipeline",
				Name:      "requests_total",
				Help:      "Requests handled by the pipeline, by service and final status",
			},
			[]string{"service", "status"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpgate",
				Subsystem: "pipeline",
				Name:      "rejections_total",
				Help:      "Requests rejected by the pipeline, by service and failed stage",
			},
			[]string{"service", "field", "error"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpgate",
				Subsystem: "forwarder",
				Name:      "errors_total",
				Help:      "Forwarded calls that got no backend response",
			},
			[]string{"service", "reason"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "jumpgate",
				Subsystem: "pipeline",
				Name:      "request_duration_seconds",
				Help:      "End to end pipeline latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jumpgate",
				Subsystem: "route_table",
				Name:      "rebuilds_total",
				Help:      "Route table rebuild attempts, by result",
			},
			[]string{"result"},
		),
		routes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "jumpgate",
				Subsystem: "route_table",
				Name:      "routes",
				Help:      "Routes mounted in the current route table",
			},
		),
	}
}

func (m *Metrics) observeRequest(service string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(service, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRejection(service string, rej Rejection) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(service, rej.Field, rej.Code).Inc()
}

func (m *Metrics) observeUpstreamError(service, reason string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(service, reason).Inc()
}

// ObserveRebuild records a route table rebuild.
func (m *Metrics) ObserveRebuild(routes int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.rebuilds.WithLabelValues("error").Inc()
		return
	}
	m.rebuilds.WithLabelValues("ok").Inc()
	m.routes.Set(float64(routes))
}
