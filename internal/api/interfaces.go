package api

import (
	"context"
	"time"

	"github.com/saleemayman/city-temperatures-service/internal/storage"
	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// TemperatureStore defines the storage operations needed by handlers.
type TemperatureStore interface {
	Insert(ctx context.Context, rec temperature.Record) (storage.Result, error)
	UpdateField(ctx context.Context, date time.Time, city string, field temperature.Field, value float64) (storage.Result, error)
	TopNByTemperature(ctx context.Context, start, end time.Time, n int) ([]temperature.Record, error)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}
