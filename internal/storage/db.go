package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// PoolConfig configures Connect.
type PoolConfig struct {
	URL      string
	MaxConns int32
	// QueryLogger receives pgx query traces. Nil disables query logging.
	QueryLogger *slog.Logger
}

// Connect opens a pgxpool connection and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	if cfg.QueryLogger != nil {
		poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   NewSlogQueryLogger(cfg.QueryLogger),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// SchemaQuerier is the minimal interface required to verify the schema.
// *pgxpool.Pool satisfies this interface.
type SchemaQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// requiredColumns lists the columns every store operation reads or writes.
var requiredColumns = []string{
	"dt",
	"avg_temperature",
	"avg_temperature_uncertainty",
	"city",
	"country",
	"latitude",
	"longitude",
}

// VerifySchema checks that the temperature table exists with every column
// the store uses. The service never creates or migrates the schema itself.
func VerifySchema(ctx context.Context, q SchemaQuerier) error {
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		AND table_name = $1
	`

	rows, err := q.Query(ctx, query, temperature.Table)
	if err != nil {
		return fmt.Errorf("querying columns of %s: %w", temperature.Table, err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning column name: %w", err)
		}
		found[name] = true
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating column rows: %w", err)
	}

	if len(found) == 0 {
		return fmt.Errorf("table %s does not exist", temperature.Table)
	}

	var missing []string
	for _, col := range requiredColumns {
		if !found[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("table %s is missing columns: %s", temperature.Table, strings.Join(missing, ", "))
	}

	return nil
}
