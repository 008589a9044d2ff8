package storage_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---- mock TxBeginner ----

type mockDB struct {
	tx       *mockTx
	beginErr error
	begun    []pgx.TxOptions
}

func (m *mockDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	m.begun = append(m.begun, opts)
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

// ---- mock pgx.Tx ----

// mockTx records whether it was committed or rolled back.
type mockTx struct {
	execFn    func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFn   func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	commitErr error

	committed  bool
	rolledBack bool
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.queryFn(ctx, sql, args...)
}
func (t *mockTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}
func (t *mockTx) Rollback(_ context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

// pgx.Tx has many more methods; stub them all out.
func (t *mockTx) Begin(_ context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return nil }
func (t *mockTx) Conn() *pgx.Conn                                        { return nil }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
	closed  bool
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       { f.closed = true }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case **string:
			if row[i] == nil {
				*v = nil
			} else {
				s := row[i].(string)
				*v = &s
			}
		case **float64:
			if row[i] == nil {
				*v = nil
			} else {
				f := row[i].(float64)
				*v = &f
			}
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

// ---- mock SchemaQuerier ----

type mockSchemaQuerier struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockSchemaQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}

// ---- mock Observer ----

type observation struct {
	op  string
	err error
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) Observe(op string, err error, _ time.Duration) {
	o.seen = append(o.seen, observation{op: op, err: err})
}
