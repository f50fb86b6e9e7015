package command

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/logger"
)

// Metrics records ledger outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	orders     prometheus.Counter
	unitsSold  prometheus.Counter
}

// NewMetrics registers the ledger collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_ledger_operations_total",
				Help: "Total number of ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_ledger_operation_duration_seconds",
				Help:    "Ledger operation duration in seconds, including lock waits",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_orders_created_total",
			Help: "Total number of committed orders",
		}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_units_sold_total",
			Help: "Total number of units deducted by orders",
		}),
	}
	reg.MustRegister(m.operations, m.duration, m.orders, m.unitsSold)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) orderCreated(order *domain.Order) {
	if m == nil {
		return
	}
	m.orders.Inc()
	for _, item := range order.Items {
		m.unitsSold.Add(float64(item.Quantity))
	}
}

func outcome(err error) string {
	switch kind := domain.KindOf(err); {
	case err == nil:
		return "success"
	case errors.Is(kind, domain.ErrValidation):
		return "validation"
	case errors.Is(kind, domain.ErrNotFound):
		return "not_found"
	case errors.Is(kind, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(kind, domain.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(kind, domain.ErrContention):
		return "contention"
	default:
		return "error"
	}
}

// logFailure logs business rejections at warn and everything else at error.
func logFailure(ctx context.Context, op string, err error) {
	if domain.KindOf(err) != nil && !errors.Is(err, domain.ErrContention) {
		logger.Warn(ctx).Err(err).Str("operation", op).Msg("Ledger operation rejected")
		return
	}
	logger.Error(ctx).Err(err).Str("operation", op).Msg("Ledger operation failed")
}

func publishMovements(ctx context.Context, events domain.EventPublisher, movements []domain.StockMovement) {
	if events == nil || len(movements) == 0 {
		return
	}
	if err := events.PublishStockMoved(ctx, movements); err != nil {
		logger.Warn(ctx).Err(err).Int("movements", len(movements)).Msg("Failed to publish stock moved event")
	}
}
