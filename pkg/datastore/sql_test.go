package datastore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/NicolasHaas/godata/pkg/datastore"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func NewTestSqlConn(t *testing.T) (*datastore.ProviderFactory, error) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	st, err := datastore.NewProviderFactory(dbPath)
	if err != nil {
		return nil, fmt.Errorf("store_test: failed to open db: %w", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			fmt.Printf("Error closing database: %v\n", err)
		}
	})

	return st, nil
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "twice.db")

	first, err := datastore.NewProviderFactory(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := datastore.NewProviderFactory(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	version, err := second.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 3 {
		t.Errorf("SchemaVersion() = %d, want 3", version)
	}
}

func TestListTables(t *testing.T) {
	store, err := NewTestSqlConn(t)
	if err != nil {
		t.Fatalf("failed to open test connection: %v", err)
	}

	got, err := store.NonTx().ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if diff := cmp.Diff([]string{"teams", "users"}, got); diff != "" {
		t.Errorf("store.NonTx().ListTables mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribeTable(t *testing.T) {
	t.Parallel()

	type tcase struct {
		table string
		want  []string
	}

	tcases := map[string]tcase{
		"users": {
			table: "users",
			want:  []string{"id", "team_id", "username", "email", "password", "role", "banned_at", "created_at", "updated_at"},
		},
		"teams": {
			table: "teams",
			want:  []string{"id", "name", "banned_at", "created_at", "updated_at"},
		},
		"unknown_table": {
			table: "nope",
			want:  nil,
		},
		"injection_table_name": {
			table: "users; DROP TABLE users",
			want:  nil,
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			store, err := NewTestSqlConn(t)
			if err != nil {
				t.Fatalf("failed to open test connection: %v", err)
			}

			cols, err := store.NonTx().DescribeTable(context.Background(), tc.table)
			if err != nil {
				t.Fatalf("DescribeTable: %v", err)
			}
			var got []string
			for _, c := range cols {
				got = append(got, c.Name)
			}
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("store.NonTx().DescribeTable mismatch (-want +got):\n%s", diff)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}

func TestDescribeTableColumnDetails(t *testing.T) {
	store, err := NewTestSqlConn(t)
	if err != nil {
		t.Fatalf("failed to open test connection: %v", err)
	}

	cols, err := store.NonTx().DescribeTable(context.Background(), "teams")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	want := []datastore.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true},
		{Name: "name", Type: "TEXT", NotNull: true},
		{Name: "banned_at", Type: "TEXT"},
		{Name: "created_at", Type: "TEXT", NotNull: true},
		{Name: "updated_at", Type: "TEXT", NotNull: true},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("DescribeTable(teams) mismatch (-want +got):\n%s", diff)
	}
}

func TestTxRollback(t *testing.T) {
	ctx := context.Background()
	store, err := NewTestSqlConn(t)
	if err != nil {
		t.Fatalf("failed to open test connection: %v", err)
	}

	tx, err := store.Tx(ctx)
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO teams (name) VALUES (?)", "core"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	var n int
	if err := store.NonTx().QueryRowContext(ctx, "SELECT COUNT(*) FROM teams").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("teams after rollback = %d, want 0", n)
	}
}
