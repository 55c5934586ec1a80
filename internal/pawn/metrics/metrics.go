package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transaction ledger.
// Tracks ledger growth and the duration of each ledger operation.
type Metrics struct {
	TransactionsCreated prometheus.Counter
	PriceAppends        prometheus.Counter
	HistoryReplacements prometheus.Counter
	DanglingReferences  prometheus.Counter
	OperationDuration   *prometheus.HistogramVec
}

// New registers the ledger metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransactionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "pawnshop_pawn_transactions_created_total",
			Help: "Total number of pawn transactions created",
		}),
		PriceAppends: f.NewCounter(prometheus.CounterOpts{
			Name: "pawnshop_pawn_price_appends_total",
			Help: "Total number of prices appended to transaction histories",
		}),
		HistoryReplacements: f.NewCounter(prometheus.CounterOpts{
			Name: "pawnshop_pawn_history_replacements_total",
			Help: "Total number of wholesale price history replacements",
		}),
		DanglingReferences: f.NewCounter(prometheus.CounterOpts{
			Name: "pawnshop_pawn_dangling_references_total",
			Help: "Writes rejected because the client or category does not exist",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pawnshop_pawn_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.TransactionsCreated.Inc()
	}
}

func (m *Metrics) IncrementPriceAppends() {
	if m != nil {
		m.PriceAppends.Inc()
	}
}

func (m *Metrics) IncrementHistoryReplacements() {
	if m != nil {
		m.HistoryReplacements.Inc()
	}
}

func (m *Metrics) IncrementDanglingReferences() {
	if m != nil {
		m.DanglingReferences.Inc()
	}
}

// ObserveOperation records the duration of op.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
