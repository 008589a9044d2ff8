//go:build integration

package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saleemayman/city-temperatures-service/internal/storage"
	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// startPostgres runs a throwaway PostgreSQL container with the temperature
// table created from testdata/schema.sql.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "temperatures",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://test:test@%s:%s/temperatures?sslmode=disable", host, port.Port())
	pool, err := storage.Connect(ctx, storage.PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("testdata/schema.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return pool
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "TRUNCATE global_land_temperatures_by_city")
	require.NoError(t, err)
}

func insertAll(t *testing.T, s *storage.Store, recs ...temperature.Record) {
	t.Helper()
	for _, r := range recs {
		_, err := s.Insert(context.Background(), r)
		require.NoError(t, err)
	}
}

func cityReading(t *testing.T, dt, city, country string, temp float64) temperature.Record {
	t.Helper()
	return temperature.Record{
		Date:           day(t, dt),
		AvgTemperature: ptr(temp),
		City:           city,
		Country:        country,
		Latitude:       "30.00N",
		Longitude:      "31.00E",
	}
}

func TestIntegration_Store(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	require.NoError(t, storage.VerifySchema(ctx, pool))

	modes := []storage.RankingMode{storage.RankingWindow, storage.RankingStream}

	t.Run("round trip", func(t *testing.T) {
		truncate(t, pool)
		s := storage.NewStore(pool)
		rec := berlin(t)
		insertAll(t, s, rec)

		got, err := s.TopNByTemperature(ctx, day(t, "2001-05-01"), day(t, "2001-07-01"), 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rec, got[0])
	})

	t.Run("composite key: same date, different city", func(t *testing.T) {
		truncate(t, pool)
		s := storage.NewStore(pool)
		insertAll(t, s,
			cityReading(t, "2001-06-01", "Berlin", "Germany", 25),
			cityReading(t, "2001-06-01", "Cairo", "Egypt", 30),
		)

		got, err := s.TopNByTemperature(ctx, day(t, "2001-01-01"), day(t, "2002-01-01"), 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("composite key: duplicate date and city", func(t *testing.T) {
		truncate(t, pool)
		s := storage.NewStore(pool)
		insertAll(t, s, cityReading(t, "2001-06-01", "Berlin", "Germany", 25))

		_, err := s.Insert(ctx, cityReading(t, "2001-06-01", "Berlin", "Germany", 99))
		require.Error(t, err)
		assert.ErrorIs(t, err, temperature.ErrConstraintViolation)

		got, err := s.TopNByTemperature(ctx, day(t, "2001-01-01"), day(t, "2002-01-01"), 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 25.0, *got[0].AvgTemperature)
	})

	t.Run("update touches only the named field", func(t *testing.T) {
		truncate(t, pool)
		s := storage.NewStore(pool)
		rec := berlin(t)
		insertAll(t, s, rec)

		res, err := s.UpdateField(ctx, rec.Date, rec.City, temperature.FieldAvgTemperatureUncertainty, 0.9)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.RowsAffected)

		got, err := s.TopNByTemperature(ctx, day(t, "2001-05-01"), day(t, "2001-07-01"), 10)
		require.NoError(t, err)
		require.Len(t, got, 1)

		want := rec
		want.AvgTemperatureUncertainty = ptr(0.9)
		assert.Equal(t, want, got[0])
	})

	t.Run("update of a missing row", func(t *testing.T) {
		truncate(t, pool)
		s := storage.NewStore(pool)

		_, err := s.UpdateField(ctx, day(t, "2001-06-01"), "Atlantis", temperature.FieldAvgTemperature, 1)
		assert.ErrorIs(t, err, temperature.ErrNotFound)
	})

	for _, mode := range modes {
		t.Run("ranking scenario "+string(mode), func(t *testing.T) {
			truncate(t, pool)
			s := storage.NewStore(pool, storage.WithRankingMode(mode))
			insertAll(t, s,
				cityReading(t, "2001-01-01", "Berlin", "Germany", 5),
				cityReading(t, "2001-06-01", "Berlin", "Germany", 25),
				cityReading(t, "2001-03-01", "Cairo", "Egypt", 30),
			)
			noReading := cityReading(t, "2001-07-01", "Oslo", "Norway", 0)
			noReading.AvgTemperature = nil
			insertAll(t, s, noReading)

			got, err := s.TopNByTemperature(ctx, day(t, "2000-01-01"), day(t, "2002-01-01"), 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "Cairo", got[0].City)
			assert.Equal(t, 30.0, *got[0].AvgTemperature)
			assert.Equal(t, "Berlin", got[1].City)
			assert.Equal(t, 25.0, *got[1].AvgTemperature)

			swapped, err := s.TopNByTemperature(ctx, day(t, "2002-01-01"), day(t, "2000-01-01"), 2)
			require.NoError(t, err)
			assert.Equal(t, got, swapped)

			// Both bounds are exclusive.
			edge, err := s.TopNByTemperature(ctx, day(t, "2001-03-01"), day(t, "2001-06-01"), 10)
			require.NoError(t, err)
			assert.Empty(t, edge)
		})
	}

	t.Run("window and stream agree", func(t *testing.T) {
		truncate(t, pool)
		window := storage.NewStore(pool)
		stream := storage.NewStore(pool, storage.WithRankingMode(storage.RankingStream))

		for m := 1; m <= 12; m++ {
			for i, city := range []string{"Athens", "Berlin", "Cairo", "Delhi", "Lima"} {
				insertAll(t, window, cityReading(t, fmt.Sprintf("2005-%02d-01", m), city, "X", float64((m*7+i*3)%20)))
			}
		}

		for _, n := range []int{1, 3, 5, 0} {
			a, err := window.TopNByTemperature(ctx, day(t, "2004-12-31"), day(t, "2006-01-01"), n)
			require.NoError(t, err)
			b, err := stream.TopNByTemperature(ctx, day(t, "2004-12-31"), day(t, "2006-01-01"), n)
			require.NoError(t, err)
			assert.Equal(t, a, b, "n=%d", n)
		}
	})
}
