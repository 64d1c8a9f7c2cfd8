// Package monitoring expõe métricas Prometheus, amostragem do processo e o
// listener de operação (/metrics e /healthz).
package monitoring

import (
	"time"

	"device-webserver/webserver/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics implementa application.JobObserver e application.DispatchObserver.
// Cada instância tem o próprio registry; testes podem criar quantas quiserem.
type Metrics struct {
	Registry *prometheus.Registry

	dispatchTotal      *prometheus.CounterVec
	jobsInFlight       prometheus.Gauge
	jobDuration        *prometheus.HistogramVec
	jobErrors          *prometheus.CounterVec
	queueWait          *prometheus.HistogramVec
	completionFailures *prometheus.CounterVec
	workersIdle        prometheus.Gauge
	workersTotal       prometheus.Gauge
	queueDepth         prometheus.Gauge

	processRSS prometheus.Gauge
	processCPU prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webserver_dispatch_total",
			Help: "Dispatch decisions by route and outcome",
		}, []string{"route", "outcome"}),

		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_jobs_in_flight",
			Help: "Async handlers currently running on a worker",
		}),

		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webserver_job_duration_seconds",
			Help:    "Time spent by a worker running an async handler",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"route"}),

		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webserver_job_errors_total",
			Help: "Async handlers that returned an error or panicked",
		}, []string{"route"}),

		queueWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webserver_queue_wait_seconds",
			Help:    "Time between enqueue and a worker picking the job up",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"route"}),

		completionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webserver_completion_failures_total",
			Help: "Detached requests whose completion failed",
		}, []string{"route"}),

		workersIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_workers_idle",
			Help: "Workers announced as ready (admission permits available)",
		}),

		workersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_workers_total",
			Help: "Configured worker pool size",
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_queue_depth",
			Help: "Jobs waiting in the handoff slot",
		}),

		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_process_rss_bytes",
			Help: "Resident set size sampled via gopsutil",
		}),

		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webserver_process_cpu_percent",
			Help: "Process CPU usage sampled via gopsutil",
		}),
	}

	m.Registry.MustRegister(
		m.dispatchTotal,
		m.jobsInFlight,
		m.jobDuration,
		m.jobErrors,
		m.queueWait,
		m.completionFailures,
		m.workersIdle,
		m.workersTotal,
		m.queueDepth,
		m.processRSS,
		m.processCPU,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Dispatched(route string, outcome domain.Outcome) {
	m.dispatchTotal.WithLabelValues(route, outcome.String()).Inc()
}

func (m *Metrics) JobStarted(route string, waited time.Duration) {
	m.jobsInFlight.Inc()
	m.queueWait.WithLabelValues(route).Observe(waited.Seconds())
}

func (m *Metrics) JobFinished(route string, took time.Duration, err error) {
	m.jobsInFlight.Dec()
	m.jobDuration.WithLabelValues(route).Observe(took.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(route).Inc()
	}
}

func (m *Metrics) CompletionFailed(route string) {
	m.completionFailures.WithLabelValues(route).Inc()
}

func (m *Metrics) WorkerIdle(idle int) {
	m.workersIdle.Set(float64(idle))
}

// ObservePool copia o estado atual do pool para os gauges.
func (m *Metrics) ObservePool(p PoolState) {
	if p == nil {
		m.workersTotal.Set(0)
		m.workersIdle.Set(0)
		m.queueDepth.Set(0)
		return
	}
	m.workersTotal.Set(float64(p.Size()))
	m.workersIdle.Set(float64(p.Idle()))
	m.queueDepth.Set(float64(p.QueueDepth()))
}

func (m *Metrics) observeProcess(s ProcessStats) {
	m.processRSS.Set(float64(s.RSSBytes))
	m.processCPU.Set(s.CPUPercent)
}
