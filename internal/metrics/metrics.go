// Package metrics exposes prometheus counters for the terminal and the data
// service. A nil receiver is a no-op so callers never need to guard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Terminal records terminal-side operation outcomes.
type Terminal struct {
	scans       *prometheus.CounterVec
	operations  *prometheus.CounterVec
	settlements prometheus.Counter
}

// NewTerminal registers the terminal metrics on the provided registerer.
func NewTerminal(reg prometheus.Registerer) *Terminal {
	if reg == nil {
		return &Terminal{}
	}
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablepos",
		Subsystem: "terminal",
		Name:      "scans_total",
		Help:      "Completed scanner bursts by lookup result.",
	}, []string{"result"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablepos",
		Subsystem: "terminal",
		Name:      "operations_total",
		Help:      "Terminal operations by name and outcome.",
	}, []string{"operation", "outcome"})
	settlements := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tablepos",
		Subsystem: "terminal",
		Name:      "settlements_total",
		Help:      "Invoices settled at this terminal.",
	})
	reg.MustRegister(scans, operations, settlements)
	return &Terminal{scans: scans, operations: operations, settlements: settlements}
}

// ObserveScan counts a scan by result: found, not_found or error.
func (t *Terminal) ObserveScan(result string) {
	if t == nil || t.scans == nil {
		return
	}
	t.scans.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveOperation counts an operation with outcome derived from err.
func (t *Terminal) ObserveOperation(op string, err error) {
	if t == nil || t.operations == nil {
		return
	}
	t.operations.WithLabelValues(normalizeLabel(op), outcome(err)).Inc()
}

func (t *Terminal) IncSettlement() {
	if t == nil || t.settlements == nil {
		return
	}
	t.settlements.Inc()
}

// Server records data-service business events.
type Server struct {
	tickets   prometheus.Counter
	lines     prometheus.Counter
	invoices  *prometheus.CounterVec
	sales     *prometheus.CounterVec
	shifts    *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	txLatency *prometheus.HistogramVec
}

// NewServer registers the data-service metrics on the provided registerer.
func NewServer(reg prometheus.Registerer) *Server {
	if reg == nil {
		return &Server{}
	}
	s := &Server{
		tickets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "kitchen_tickets_total",
			Help: "Kitchen tickets created.",
		}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "kitchen_ticket_lines_total",
			Help: "Lines sent to the kitchen.",
		}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "invoices_total",
			Help: "Invoices created by payment mode.",
		}, []string{"mode"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "sales_amount_total",
			Help: "Invoice grand totals by payment mode.",
		}, []string{"mode"}),
		shifts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "shift_transitions_total",
			Help: "Shift opens and closes.",
		}, []string{"transition"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablepos", Name: "item_cache_lookups_total",
			Help: "Item lookup cache results.",
		}, []string{"result"}),
		txLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tablepos", Name: "tx_duration_seconds",
			Help:    "Duration of business transactions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(s.tickets, s.lines, s.invoices, s.sales, s.shifts, s.cacheHits, s.txLatency)
	return s
}

func (s *Server) ObserveTicket(lines int) {
	if s == nil || s.tickets == nil {
		return
	}
	s.tickets.Inc()
	s.lines.Add(float64(lines))
}

func (s *Server) ObserveInvoice(mode string, grandTotal float64) {
	if s == nil || s.invoices == nil {
		return
	}
	s.invoices.WithLabelValues(normalizeLabel(mode)).Inc()
	s.sales.WithLabelValues(normalizeLabel(mode)).Add(grandTotal)
}

func (s *Server) ObserveShift(transition string) {
	if s == nil || s.shifts == nil {
		return
	}
	s.shifts.WithLabelValues(normalizeLabel(transition)).Inc()
}

func (s *Server) ObserveCache(hit bool) {
	if s == nil || s.cacheHits == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.cacheHits.WithLabelValues(result).Inc()
}

func (s *Server) ObserveTx(operation string, d time.Duration) {
	if s == nil || s.txLatency == nil {
		return
	}
	s.txLatency.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
