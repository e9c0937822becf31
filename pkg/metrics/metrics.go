// Package metrics expone los colectores Prometheus del servicio.
//
// Los métodos aceptan receptor nil para que los casos de uso funcionen sin métricas (tests, METRICS_ENABLED=false).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Resultados por ítem al finalizar un inventario.
const (
	ItemAdjusted  = "adjusted"
	ItemUnchanged = "unchanged"
	ItemFailed    = "failed"
)

// Metrics agrupa los colectores del motor de inventario y del transporte HTTP.
type Metrics struct {
	movements        *prometheus.CounterVec
	movementRejects  *prometheus.CounterVec
	sessionsCreated  prometheus.Counter
	snapshotItems    prometheus.Histogram
	finalizeItems    *prometheus.CounterVec
	finalizeDuration prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
}

// New crea y registra los colectores en reg. Con un Registry propio los tests no chocan con el global.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labinventario",
			Name:      "movements_total",
			Help:      "Movimientos de stock registrados por tipo.",
		}, []string{"type"}),
		movementRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labinventario",
			Name:      "movement_rejections_total",
			Help:      "Movimientos rechazados por motivo.",
		}, []string{"reason"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labinventario",
			Name:      "inventory_sessions_created_total",
			Help:      "Sesiones de inventario creadas.",
		}),
		snapshotItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "labinventario",
			Name:      "inventory_snapshot_items",
			Help:      "Ítems por foto de inventario.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		finalizeItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labinventario",
			Name:      "inventory_finalize_items_total",
			Help:      "Ítems procesados al finalizar inventarios por resultado.",
		}, []string{"result"}),
		finalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "labinventario",
			Name:      "inventory_finalize_duration_seconds",
			Help:      "Duración de la finalización de un inventario.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labinventario",
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y código.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labinventario",
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de las peticiones HTTP.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labinventario",
			Name:      "http_requests_in_flight",
			Help:      "Peticiones HTTP en curso.",
		}),
	}
	reg.MustRegister(
		m.movements, m.movementRejects, m.sessionsCreated, m.snapshotItems,
		m.finalizeItems, m.finalizeDuration,
		m.httpRequests, m.httpDuration, m.httpInFlight,
	)
	return m
}

// NewRegistry devuelve un Registry con los colectores de proceso y runtime de Go ya registrados.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MovementRecorded cuenta un movimiento aceptado.
func (m *Metrics) MovementRecorded(movementType string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(movementType).Inc()
}

// MovementRejected cuenta un movimiento rechazado (insufficient_stock, invalid_type, ...).
func (m *Metrics) MovementRejected(reason string) {
	if m == nil {
		return
	}
	m.movementRejects.WithLabelValues(reason).Inc()
}

// SessionCreated registra una foto de inventario con itemCount ítems.
func (m *Metrics) SessionCreated(itemCount int) {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.snapshotItems.Observe(float64(itemCount))
}

// FinalizeItem cuenta un ítem procesado por el finalizador (ItemAdjusted, ItemUnchanged, ItemFailed).
func (m *Metrics) FinalizeItem(result string) {
	if m == nil {
		return
	}
	m.finalizeItems.WithLabelValues(result).Inc()
}

// FinalizeObserved registra la duración de una finalización.
func (m *Metrics) FinalizeObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.finalizeDuration.Observe(d.Seconds())
}

// HTTPStarted incrementa las peticiones en curso. Emparejar con HTTPFinished.
func (m *Metrics) HTTPStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// HTTPFinished registra una petición terminada.
func (m *Metrics) HTTPFinished(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
