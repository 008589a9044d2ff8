package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// RankingMode selects where the two ranking stages of TopNByTemperature run.
type RankingMode string

const (
	// RankingWindow runs both stages in SQL using ROW_NUMBER() per city.
	RankingWindow RankingMode = "window"
	// RankingStream filters in SQL and ranks the streamed rows in Go, for
	// engines without window functions.
	RankingStream RankingMode = "stream"
)

// ParseRankingMode accepts "window" or "stream"; empty means window.
func ParseRankingMode(s string) (RankingMode, error) {
	switch m := RankingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return RankingWindow, nil
	case RankingWindow, RankingStream:
		return m, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

const recordColumns = `dt, avg_temperature, avg_temperature_uncertainty, city, country, latitude, longitude`

// topNWindowQuery: stage 1 keeps each city's rank-1 row (hottest, then most
// recent), stage 2 orders the winners and applies the limit.
const topNWindowQuery = `
	WITH ranked AS (
		SELECT ` + recordColumns + `,
		       ROW_NUMBER() OVER (
		           PARTITION BY city
		           ORDER BY avg_temperature DESC, dt DESC
		       ) AS city_rank
		FROM global_land_temperatures_by_city
		WHERE dt > $1 AND dt < $2
		  AND avg_temperature IS NOT NULL
	)
	SELECT ` + recordColumns + `
	FROM ranked
	WHERE city_rank = 1
	ORDER BY avg_temperature DESC, dt DESC, city ASC
	LIMIT $3
`

const rangeQuery = `
	SELECT ` + recordColumns + `
	FROM global_land_temperatures_by_city
	WHERE dt > $1 AND dt < $2
	  AND avg_temperature IS NOT NULL
`

func topNWindow(ctx context.Context, tx pgx.Tx, start, end time.Time, n int) ([]temperature.Record, error) {
	rows, err := tx.Query(ctx, topNWindowQuery, start, end, n)
	if err != nil {
		return nil, fmt.Errorf("querying top %d cities: %w", n, err)
	}

	var results []temperature.Record
	if err := eachRecord(rows, func(r temperature.Record) {
		results = append(results, r)
	}); err != nil {
		return nil, err
	}
	return results, nil
}

func topNStream(ctx context.Context, tx pgx.Tx, start, end time.Time, n int) ([]temperature.Record, error) {
	rows, err := tx.Query(ctx, rangeQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying readings in range: %w", err)
	}

	board := temperature.NewLeaderboard()
	if err := eachRecord(rows, board.Offer); err != nil {
		return nil, err
	}
	return board.Top(n), nil
}

// eachRecord scans every row into a Record and hands it to fn. It always
// closes rows.
func eachRecord(rows pgx.Rows, fn func(temperature.Record)) error {
	defer rows.Close()

	for rows.Next() {
		var r temperature.Record
		var lat, lon *string

		if err := rows.Scan(
			&r.Date,
			&r.AvgTemperature,
			&r.AvgTemperatureUncertainty,
			&r.City,
			&r.Country,
			&lat,
			&lon,
		); err != nil {
			return fmt.Errorf("scanning temperature row: %w", err)
		}

		if lat != nil {
			r.Latitude = *lat
		}
		if lon != nil {
			r.Longitude = *lon
		}
		fn(r)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating temperature rows: %w", err)
	}

	return nil
}
