package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	sql []string
	err error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	return pgconn.NewCommandTag("SELECT 1"), f.err
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.sql) != 1 || db.sql[0] != Schema() {
		t.Fatalf("expected the embedded schema in one Exec, got %d calls", len(db.sql))
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	db := &fakeExecer{err: errors.New("permission denied")}
	err := EnsureSchema(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "apply schema: permission denied") {
		t.Errorf("err = %v", err)
	}
}

func TestSchema_Tables(t *testing.T) {
	schema := Schema()
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS stock_trades",
		"CREATE TABLE IF NOT EXISTS stock_bars",
		"create_hypertable('stock_trades', 'ts', if_not_exists => TRUE)",
		"create_hypertable('stock_bars', 'ts', if_not_exists => TRUE)",
		"PRIMARY KEY (symbol, ts, exchange_id, trade_id)",
		"PRIMARY KEY (symbol, ts)",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
