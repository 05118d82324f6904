package frontend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/evoplatform/evogate/internal/gate"
)

// metricsCollector owns the gateway's private prometheus registry.
type metricsCollector struct {
	registry    *prometheus.Registry
	decisions   *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

func newMetricsCollector() *metricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	startTime := time.Now()
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "evogate",
		Name:      "uptime_seconds",
		Help:      "Time since the gateway started, in seconds.",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	}))

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evogate",
		Name:      "gate_decisions_total",
		Help:      "Gate decisions by gate and outcome.",
	}, []string{"gate", "outcome"})
	registry.MustRegister(decisions)

	rpcDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "evogate",
		Name:      "platform_rpc_duration_seconds",
		Help:      "Duration of platform RPC calls by endpoint.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
	registry.MustRegister(rpcDuration)

	return &metricsCollector{
		registry:    registry,
		decisions:   decisions,
		rpcDuration: rpcDuration,
	}
}

func (m *metricsCollector) recordDecision(d gate.Decision) {
	gateName := d.Gate
	if gateName == "" {
		gateName = "composite"
	}
	m.decisions.WithLabelValues(gateName, d.State.String()).Inc()
}
