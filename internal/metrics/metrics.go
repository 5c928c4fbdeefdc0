package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Detections      *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	UpstreamSeconds *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	LocationUpdates *prometheus.CounterVec
	NearbyQueryHits *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Detections: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lifelink_detections_total",
			Help: "Total number of medicine detections by provenance and outcome.",
		}, []string{"provenance", "outcome"}),
		UpstreamErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lifelink_upstream_errors_total",
			Help: "Total number of errors received from analysis backends.",
		}, []string{"strategy", "kind"}),
		UpstreamSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifelink_upstream_request_duration_seconds",
			Help:    "Duration of calls to analysis backends.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy", "operation"}),
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lifelink_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "status"}),
		LocationUpdates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lifelink_ambulance_location_updates_total",
			Help: "Total number of ambulance location updates by source and outcome.",
		}, []string{"source", "outcome"}),
		NearbyQueryHits: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifelink_nearby_query_results",
			Help:    "Number of entities returned by proximity lookups.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"kind"}),
	}
}
