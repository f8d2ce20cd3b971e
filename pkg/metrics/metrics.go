package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 指标管理器
type Metrics struct {
	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	wsConnections   prometheus.Gauge
	callsTotal      *prometheus.CounterVec
	locationUpdates prometheus.Counter
	breachesTotal   prometheus.Counter
	smsTotal        *prometheus.CounterVec
	emailTotal      *prometheus.CounterVec
}

// NewMetrics 创建指标管理器
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		wsConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently registered signaling connections",
		}),
		callsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calls_total",
				Help: "Call attempts by final outcome",
			},
			[]string{"outcome"},
		),
		locationUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "location_updates_total",
			Help: "Accepted location update requests",
		}),
		breachesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "geofence_breaches_total",
			Help: "Inside-to-outside geofence transitions",
		}),
		smsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_sms_total",
				Help: "Alert SMS attempts by result",
			},
			[]string{"result"}, // sent / suppressed / failed
		),
		emailTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_email_total",
				Help: "Alert email attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) ConnectionOpened()          { m.wsConnections.Inc() }
func (m *Metrics) ConnectionClosed()          { m.wsConnections.Dec() }
func (m *Metrics) RecordCall(outcome string)  { m.callsTotal.WithLabelValues(outcome).Inc() }
func (m *Metrics) RecordLocationUpdate()      { m.locationUpdates.Inc() }
func (m *Metrics) RecordBreach()              { m.breachesTotal.Inc() }
func (m *Metrics) RecordSMS(result string)    { m.smsTotal.WithLabelValues(result).Inc() }
func (m *Metrics) RecordEmail(result string)  { m.emailTotal.WithLabelValues(result).Inc() }
