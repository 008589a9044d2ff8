package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

// Operation names reported in errors and to the Observer.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpTopN   = "top_n"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

// TxBeginner is the subset of *pgxpool.Pool used by Store.
// This allows injection of a mock in tests.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Observer is notified once per store operation.
type Observer interface {
	Observe(op string, err error, elapsed time.Duration)
}

// Result is the outcome of a successful write.
type Result struct {
	Message      string `json:"message"`
	RowsAffected int64  `json:"rows_affected"`
}

// Store provides transactional access to the city temperature table.
// It keeps no state between calls; every operation runs in its own
// transaction that is committed or rolled back before returning.
type Store struct {
	db       TxBeginner
	mode     RankingMode
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithRankingMode selects how TopNByTemperature ranks rows.
func WithRankingMode(mode RankingMode) Option {
	return func(s *Store) { s.mode = mode }
}

// WithObserver reports every operation outcome to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// NewStore constructs a Store backed by db, usually a *pgxpool.Pool.
func NewStore(db TxBeginner, opts ...Option) *Store {
	s := &Store{db: db, mode: RankingWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert writes one new record. An existing row with the same key is never
// overwritten: the insert fails with temperature.ErrConstraintViolation.
func (s *Store) Insert(ctx context.Context, rec temperature.Record) (res Result, err error) {
	defer s.observe(OpInsert, time.Now(), &err)

	key := temperature.RecordKey(rec.Date, rec.City)
	if err := temperature.Validate(rec); err != nil {
		return Result{}, opError(OpInsert, temperature.ErrValidation, key, err)
	}

	const q = `
		INSERT INTO global_land_temperatures_by_city
			(dt, avg_temperature, avg_temperature_uncertainty, city, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	err = s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q,
			rec.Date,
			rec.AvgTemperature,
			rec.AvgTemperatureUncertainty,
			rec.City,
			rec.Country,
			nullString(rec.Latitude),
			nullString(rec.Longitude),
		)
		if err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
		res.RowsAffected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return Result{}, opError(OpInsert, classify(err), key, err)
	}

	res.Message = fmt.Sprintf("Added record: dt=%s, city=%s, avg_temperature=%s",
		temperature.FormatDate(rec.Date), rec.City, temperature.FormatValue(rec.AvgTemperature))
	return res, nil
}

// updateQueries holds one statement per updatable column so that the
// column name never comes from caller input.
var updateQueries = map[temperature.Field]string{
	temperature.FieldAvgTemperature: `
		UPDATE global_land_temperatures_by_city
		SET avg_temperature = $1
		WHERE dt = $2 AND city = $3
	`,
	temperature.FieldAvgTemperatureUncertainty: `
		UPDATE global_land_temperatures_by_city
		SET avg_temperature_uncertainty = $1
		WHERE dt = $2 AND city = $3
	`,
}

// UpdateField sets exactly one temperature column on every row matching
// (date, city). Matching no row is reported as temperature.ErrNotFound.
func (s *Store) UpdateField(ctx context.Context, date time.Time, city string, field temperature.Field, value float64) (res Result, err error) {
	defer s.observe(OpUpdate, time.Now(), &err)

	key := temperature.RecordKey(date, city)
	if err := validateUpdate(date, city, field, value); err != nil {
		return Result{}, opError(OpUpdate, temperature.ErrValidation, key, err)
	}

	err = s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateQueries[field], value, date, city)
		if err != nil {
			return fmt.Errorf("updating %s: %w", field, err)
		}
		if tag.RowsAffected() == 0 {
			return temperature.ErrNotFound
		}
		res.RowsAffected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		if errors.Is(err, temperature.ErrNotFound) {
			return Result{}, opError(OpUpdate, temperature.ErrNotFound, key, nil)
		}
		return Result{}, opError(OpUpdate, classify(err), key, err)
	}

	res.Message = fmt.Sprintf("Updated %s=%s for dt=%s, city=%s",
		field, temperature.FormatValue(&value), temperature.FormatDate(date), city)
	return res, nil
}

func validateUpdate(date time.Time, city string, field temperature.Field, value float64) error {
	switch {
	case date.IsZero():
		return fmt.Errorf("%w: dt is required", temperature.ErrValidation)
	case city == "":
		return fmt.Errorf("%w: city is required", temperature.ErrValidation)
	case !field.Valid():
		_, err := temperature.ParseField(string(field))
		return err
	case math.IsNaN(value) || math.IsInf(value, 0):
		return fmt.Errorf("%w: %s must be a finite number", temperature.ErrValidation, field)
	}
	return nil
}

// TopNByTemperature returns the hottest reading of up to n cities within the
// open interval (start, end), hottest first. Each city contributes at most
// one record. The bounds are swapped when start is after end, and n outside
// (0, 100] falls back to temperature.DefaultLimit.
func (s *Store) TopNByTemperature(ctx context.Context, start, end time.Time, n int) (records []temperature.Record, err error) {
	defer s.observe(OpTopN, time.Now(), &err)

	start, end = temperature.NormalizeRange(start, end)
	n = temperature.ClampLimit(n)

	err = s.withTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		if s.mode == RankingStream {
			records, err = topNStream(ctx, tx, start, end, n)
		} else {
			records, err = topNWindow(ctx, tx, start, end, n)
		}
		return err
	})
	if err != nil {
		key := fmt.Sprintf("range (%s, %s) n=%d", temperature.FormatDate(start), temperature.FormatDate(end), n)
		return nil, opError(OpTopN, temperature.ErrStorage, key, err)
	}

	if records == nil {
		records = []temperature.Record{}
	}
	return records, nil
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// succeeds and rolled back on every other path.
func (s *Store) withTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) observe(op string, start time.Time, errp *error) {
	if s.observer != nil {
		s.observer.Observe(op, *errp, time.Since(start))
	}
}

func opError(op string, kind error, key string, err error) error {
	return &temperature.Error{Op: op, Kind: kind, Key: key, Err: err}
}

// classify maps a storage error to its kind.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return temperature.ErrConstraintViolation
	}
	return temperature.ErrStorage
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
