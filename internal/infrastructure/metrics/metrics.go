package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dizzycode.xyz/trading-engine/internal/application"
)

const namespace = "trading_engine"

var _ application.Recorder = (*Metrics)(nil)

// Metrics 決策引擎的 Prometheus 指標
//
// 使用獨立的 Registry，測試可以建立多個實例而不互相衝突。
type Metrics struct {
	registry *prometheus.Registry

	CycleDuration    prometheus.Histogram
	Signals          *prometheus.CounterVec
	Orders           *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	EvaluationErrors *prometheus.CounterVec
	UpkeepDuration   *prometheus.HistogramVec
	UpkeepErrors     *prometheus.CounterVec
}

// New 建立並註冊所有指標
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one buy/dca/sell decision cycle",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals emitted by strategies, by kind",
		}, []string{"kind"}),

		Orders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders placed, by side",
		}, []string{"side"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_rejections_total",
			Help:      "Candidate trades dropped by gating, by reason",
		}, []string{"reason"}),

		EvaluationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Strategy evaluation failures, by strategy",
		}, []string{"strategy"}),

		UpkeepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upkeep_duration_seconds",
			Help:      "Duration of background upkeep tasks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),

		UpkeepErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upkeep_errors_total",
			Help:      "Failed upkeep task runs",
		}, []string{"task"}),
	}
}

// Registry 供測試讀取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CycleCompleted(d time.Duration) {
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) SignalEmitted(kind string) {
	m.Signals.WithLabelValues(kind).Inc()
}

func (m *Metrics) OrderPlaced(side string) {
	m.Orders.WithLabelValues(side).Inc()
}

func (m *Metrics) TradeRejected(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) EvaluationFailed(strategy string) {
	m.EvaluationErrors.WithLabelValues(strategy).Inc()
}

func (m *Metrics) UpkeepRun(task string, d time.Duration, err error) {
	m.UpkeepDuration.WithLabelValues(task).Observe(d.Seconds())
	if err != nil {
		m.UpkeepErrors.WithLabelValues(task).Inc()
	}
}
