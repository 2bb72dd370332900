package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/orm"
)

// ErrSchemaMismatch reports a type declaration its table cannot serve.
var ErrSchemaMismatch = errors.New("type does not match the database schema")

// CheckSchema verifies teams and users against their tables: the table
// exists, it has the banned-at column, and every export path starts at a
// column, an appended attribute or a declared relation.
func CheckSchema(ctx context.Context, types Types) error {
	for _, meta := range []*orm.Meta{types.Teams, types.Users} {
		if err := checkType(ctx, meta); err != nil {
			return err
		}
	}
	return nil
}

func checkType(ctx context.Context, meta *orm.Meta) error {
	fields, err := meta.Fields(ctx)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%s: table %q not found: %w", meta.Name, meta.Table, ErrSchemaMismatch)
	}
	if col := meta.Column(bannable.DefaultColumn); !slices.Contains(fields, col) {
		return fmt.Errorf("%s: banned-at column %q not found: %w", meta.Name, col, ErrSchemaMismatch)
	}

	for _, c := range meta.ExportMap {
		head, _, nested := strings.Cut(c.Path, ".")
		if nested {
			if _, ok := meta.Relations[head]; !ok {
				return fmt.Errorf("%s: export path %q: unknown relation %q: %w", meta.Name, c.Path, head, ErrSchemaMismatch)
			}
			continue
		}
		if _, ok := meta.Accessors[head]; ok || slices.Contains(fields, head) {
			continue
		}
		return fmt.Errorf("%s: export path %q: unknown attribute: %w", meta.Name, c.Path, ErrSchemaMismatch)
	}
	return nil
}
