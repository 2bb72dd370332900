package model_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/NicolasHaas/godata/pkg/datastore"
	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"

	"github.com/google/go-cmp/cmp"
)

func TestFields(t *testing.T) {
	now := createdAt
	types := newTypes(t, &now)

	got, err := types.Teams.Fields(context.Background())
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "name", "banned_at", "created_at", "updated_at"}, got); diff != "" {
		t.Errorf("teams Fields mismatch (-want +got):\n%s", diff)
	}

	detached := model.Register(orm.NewRegistry(nil), nil)
	if _, err := detached.Users.Fields(context.Background()); !errors.Is(err, orm.ErrNoSchema) {
		t.Errorf("Fields without a store error = %v, want ErrNoSchema", err)
	}
}

func TestCheckSchema(t *testing.T) {
	t.Parallel()

	type tcase struct {
		opts    map[string]model.TypeOptions
		wantErr error
	}

	tcases := map[string]tcase{
		"defaults": {},
		"export_with_accessor_and_relation": {
			opts: map[string]model.TypeOptions{model.TypeUsers: {ExportMap: []orm.ExportColumn{
				{Path: "username", Header: "Username"},
				{Path: "is_banned", Header: "Banned"},
				{Path: "team.name", Header: "Team"},
			}}},
		},
		"missing_banned_at_column": {
			opts:    map[string]model.TypeOptions{model.TypeUsers: {BannedAtColumn: "suspended_at"}},
			wantErr: model.ErrSchemaMismatch,
		},
		"unknown_export_attribute": {
			opts: map[string]model.TypeOptions{model.TypeTeams: {ExportMap: []orm.ExportColumn{
				{Path: "nickname", Header: "Nickname"},
			}}},
			wantErr: model.ErrSchemaMismatch,
		},
		"unknown_export_relation": {
			opts: map[string]model.TypeOptions{model.TypeUsers: {ExportMap: []orm.ExportColumn{
				{Path: "manager.name", Header: "Manager"},
			}}},
			wantErr: model.ErrSchemaMismatch,
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			store, err := datastore.NewProviderFactory(filepath.Join(t.TempDir(), "schema.db"))
			if err != nil {
				t.Fatalf("NewProviderFactory: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			types := model.Register(orm.NewRegistry(store.NonTx()), tc.opts)
			err = model.CheckSchema(context.Background(), types)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckSchema: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CheckSchema error = %v, want %v", err, tc.wantErr)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}
