// Package metrics provides Prometheus instrumentation for the temperature store.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// Operation outcome labels.
const (
	StatusSuccess             = "success"
	StatusValidationError     = "validation_error"
	StatusConstraintViolation = "constraint_violation"
	StatusNotFound            = "not_found"
	StatusStorageError        = "storage_error"
)

// StoreMetrics counts and times store operations. It satisfies
// storage.Observer.
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates the store metrics and registers them with registry.
func NewStoreMetrics(registry prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "city_temperature_store_operations_total",
				Help: "Total number of store operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "city_temperature_store_operation_duration_seconds",
				Help:    "Time taken by store operations, including the transaction",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{m.operationsTotal, m.operationDuration} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering store metrics: %w", err)
		}
	}

	return m, nil
}

// Observe records the outcome and latency of one operation.
func (m *StoreMetrics) Observe(op string, err error, elapsed time.Duration) {
	m.operationsTotal.WithLabelValues(op, Status(err)).Inc()
	m.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Status maps an operation error to its outcome label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, temperature.ErrValidation):
		return StatusValidationError
	case errors.Is(err, temperature.ErrConstraintViolation):
		return StatusConstraintViolation
	case errors.Is(err, temperature.ErrNotFound):
		return StatusNotFound
	default:
		return StatusStorageError
	}
}
