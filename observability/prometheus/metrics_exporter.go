package prometheus

import (
	"errors"
	"fmt"

	"github.com/Swind/go-uthread/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DepthBuckets are the histogram buckets for the ready queue length seen
	// at each scheduling decision.
	DepthBuckets []float64
}

var defaultDepthBuckets = []float64{0, 1, 2, 4, 8, 16, 32, 64}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	quantumsTotal          *prom.CounterVec
	threadsSpawnedTotal    *prom.CounterVec
	threadsTerminatedTotal *prom.CounterVec
	threadPanicsTotal      *prom.CounterVec
	usageErrorsTotal       *prom.CounterVec
	readyQueueDepth        *prom.GaugeVec
	readyQueueDepthSeen    *prom.HistogramVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "uthread"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DepthBuckets
	if len(buckets) == 0 {
		buckets = defaultDepthBuckets
	}

	quantumsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "quantums_total",
		Help:      "Total number of quantums started, by what ended the previous one.",
	}, []string{"scheduler", "reason"})
	spawnedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_spawned_total",
		Help:      "Total number of spawned threads.",
	}, []string{"scheduler"})
	terminatedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_terminated_total",
		Help:      "Total number of threads removed, by cause.",
	}, []string{"scheduler", "cause"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "thread_panics_total",
		Help:      "Total number of thread entry point panics.",
	}, []string{"scheduler"})
	usageVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "usage_errors_total",
		Help:      "Total number of rejected library calls, by operation.",
	}, []string{"scheduler", "op"})
	depthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "ready_queue_depth",
		Help:      "Ready queue length after the last scheduling decision.",
	}, []string{"scheduler"})
	depthSeenVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "ready_queue_depth_observed",
		Help:      "Ready queue length observed at scheduling decisions.",
		Buckets:   buckets,
	}, []string{"scheduler"})

	var err error
	if quantumsVec, err = registerCollector(reg, quantumsVec); err != nil {
		return nil, err
	}
	if spawnedVec, err = registerCollector(reg, spawnedVec); err != nil {
		return nil, err
	}
	if terminatedVec, err = registerCollector(reg, terminatedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if usageVec, err = registerCollector(reg, usageVec); err != nil {
		return nil, err
	}
	if depthVec, err = registerCollector(reg, depthVec); err != nil {
		return nil, err
	}
	if depthSeenVec, err = registerCollector(reg, depthSeenVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		quantumsTotal:          quantumsVec,
		threadsSpawnedTotal:    spawnedVec,
		threadsTerminatedTotal: terminatedVec,
		threadPanicsTotal:      panicVec,
		usageErrorsTotal:       usageVec,
		readyQueueDepth:        depthVec,
		readyQueueDepthSeen:    depthSeenVec,
	}, nil
}

// RecordQuantum counts a new quantum.
func (m *MetricsExporter) RecordQuantum(schedulerName string, reason core.SwitchReason) {
	if m == nil {
		return
	}
	m.quantumsTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), reason.String()).Inc()
}

// RecordThreadSpawned counts a spawn.
func (m *MetricsExporter) RecordThreadSpawned(schedulerName string) {
	if m == nil {
		return
	}
	m.threadsSpawnedTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Inc()
}

// RecordThreadTerminated counts a thread leaving the scheduler.
func (m *MetricsExporter) RecordThreadTerminated(schedulerName string, cause string) {
	if m == nil {
		return
	}
	m.threadsTerminatedTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), normalizeLabel(cause, "unknown")).Inc()
}

// RecordThreadPanic records thread panic events.
func (m *MetricsExporter) RecordThreadPanic(schedulerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.threadPanicsTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Inc()
}

// RecordUsageError records rejected library calls.
func (m *MetricsExporter) RecordUsageError(schedulerName string, op string) {
	if m == nil {
		return
	}
	m.usageErrorsTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), normalizeLabel(op, "unknown")).Inc()
}

// RecordQueueDepth records the ready queue length.
func (m *MetricsExporter) RecordQueueDepth(schedulerName string, depth int) {
	if m == nil {
		return
	}
	name := normalizeLabel(schedulerName, "unknown")
	m.readyQueueDepth.WithLabelValues(name).Set(float64(depth))
	m.readyQueueDepthSeen.WithLabelValues(name).Observe(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
