package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_violations_total",
			Help: "Total number of reply-pattern violations detected",
		},
		[]string{"type"},
	)

	penaltiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "penalties_applied_total",
			Help: "Total number of penalties applied, by tier",
		},
		[]string{"tier"},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "Time spent processing group messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Init registers the metrics and installs the tracer provider. Safe to
// call more than once, registration happens a single time.
func Init(ctx context.Context) error {
	registerOnce.Do(func() {
		prometheus.MustRegister(violationsTotal)
		prometheus.MustRegister(penaltiesTotal)
		prometheus.MustRegister(messageProcessingDuration)

		tp := trace.NewTracerProvider()
		otel.SetTracerProvider(tp)
	})
	return nil
}

// RecordViolation counts a detected violation by type.
func RecordViolation(violationType string) {
	violationsTotal.WithLabelValues(violationType).Inc()
}

// RecordPenalty counts an applied penalty by tier.
func RecordPenalty(tier string) {
	penaltiesTotal.WithLabelValues(tier).Inc()
}

// StartMessageProcessing returns a closure that observes the processing
// duration under the given terminal status.
func StartMessageProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		messageProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

// MetricsServer exposes /metrics on the configured address.
type MetricsServer struct {
	addr string

	runMutex sync.Mutex
	server   *http.Server
}

func NewMetricsServer(addr string) *MetricsServer {
	return &MetricsServer{addr: addr}
}

func (m *MetricsServer) Start(ctx context.Context) error {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()
	if m.server != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{Addr: m.addr, Handler: mux}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (m *MetricsServer) Stop(ctx context.Context) error {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()
	if m.server == nil {
		return nil
	}
	server := m.server
	m.server = nil
	return server.Shutdown(ctx)
}
