// Package metrics exposes the runtime's Prometheus instrumentation: tick
// duration, server-frame commit counts, rejected-input counts, and
// per-token debt-queue depth (spec §B), plus gRPC server interceptors
// from go-grpc-prometheus for the day a transport is wired in front of
// the runtime.
package metrics

import (
	"time"

	"github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

const namespace = "xln"

// Recorder owns the runtime's domain metrics and registers them against
// a dedicated prometheus.Registry rather than the global DefaultRegisterer,
// so that multiple xlnd instances in a test binary don't collide.
type Recorder struct {
	registry *prometheus.Registry

	tickDuration    *prometheus.HistogramVec
	framesCommitted *prometheus.CounterVec
	inputsRejected  *prometheus.CounterVec
	debtQueueDepth  *prometheus.GaugeVec
}

// NewRecorder builds a Recorder with a fresh registry and registers all
// domain collectors against it.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one ApplyServerFrame call.",
			Buckets:   prometheus.DefBuckets,
		}, nil),
		framesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "server_frames_committed_total",
			Help:      "Number of server frames committed.",
		}, nil),
		inputsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "inputs_rejected_total",
			Help:      "Number of inputs rejected during ApplyServerFrame, by reason.",
		}, []string{"reason"}),
		debtQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "debt_queue_depth",
			Help:      "Number of outstanding debt entries per entity/token.",
		}, []string{"entity", "token"}),
	}

	r.registry.MustRegister(
		r.tickDuration,
		r.framesCommitted,
		r.inputsRejected,
		r.debtQueueDepth,
	)

	return r
}

// Registry returns the registry backing this Recorder, for wiring into an
// HTTP handler (promhttp.HandlerFor) by a caller.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveTick records the wall-clock duration of one ApplyServerFrame call.
func (r *Recorder) ObserveTick(d time.Duration) {
	r.tickDuration.WithLabelValues().Observe(d.Seconds())
}

// RecordCommit increments the committed-server-frame counter.
func (r *Recorder) RecordCommit() {
	r.framesCommitted.WithLabelValues().Inc()
}

// RecordReject increments the rejected-input counter for reason.
func (r *Recorder) RecordReject(reason string) {
	r.inputsRejected.WithLabelValues(reason).Inc()
}

// SetDebtQueueDepth sets the current debt-queue depth gauge for entity/token.
func (r *Recorder) SetDebtQueueDepth(entityHex, token string, depth int) {
	r.debtQueueDepth.WithLabelValues(entityHex, token).Set(float64(depth))
}

// GRPCServerMetrics wraps go-grpc-prometheus's default server metrics
// collectors so a caller can register them alongside the domain Recorder
// above into the same registry, and obtain interceptors for a grpc.Server.
type GRPCServerMetrics struct {
	inner *grpc_prometheus.ServerMetrics
}

// NewGRPCServerMetrics builds gRPC server-side Prometheus metrics with
// per-method handling-time histograms enabled.
func NewGRPCServerMetrics() *GRPCServerMetrics {
	m := grpc_prometheus.NewServerMetrics()
	m.EnableHandlingTimeHistogram()
	return &GRPCServerMetrics{inner: m}
}

// Register adds the gRPC server collectors to reg.
func (m *GRPCServerMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.inner)
}

// ServerOptions returns the grpc.ServerOption pair that installs the
// unary/stream interceptors on a grpc.Server so every RPC is instrumented.
func (m *GRPCServerMetrics) ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(m.inner.UnaryServerInterceptor()),
		grpc.StreamInterceptor(m.inner.StreamServerInterceptor()),
	}
}

// InitializeServer pre-registers every method of srv for metrics emission
// even before the first call, so dashboards don't show gaps at startup.
func (m *GRPCServerMetrics) InitializeServer(srv *grpc.Server) {
	m.inner.InitializeMetrics(srv)
}
