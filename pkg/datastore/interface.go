package datastore

import (
	"context"

	"github.com/NicolasHaas/godata/pkg/orm"
)

type DataProviderFactory interface {
	NonTx() DataStore
	Tx(context.Context) (DataStoreTx, error)
}

type DataStoreTx interface {
	DataStore
	Rollback() error
	Commit() error
}

// DataStore is the handle record types are registered against. It runs
// queries for the orm layer and answers schema questions. The default
// implementation is SQLite; a transaction satisfies it too.
type DataStore interface {
	orm.DB
	SchemaReadProvider
}

// Compile-time check: *ProviderFactory implements DataProviderFactory.
var _ DataProviderFactory = (*ProviderFactory)(nil)

type SchemaReadProvider interface {
	orm.SchemaDescriber
	DescribeTable(ctx context.Context, table string) ([]Column, error)
	ListTables(ctx context.Context) ([]string, error)
}

// Column describes one table column.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	NotNull    bool   `json:"not_null" yaml:"not_null"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
}
