package bannable_test

import (
	"context"
	"testing"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/orm"

	"github.com/google/go-cmp/cmp"
)

func TestScopeSQL(t *testing.T) {
	t.Parallel()

	type tcase struct {
		columns map[string]string
		build   func(m *orm.Meta) *orm.Builder
		want    string
	}

	tcases := map[string]tcase{
		"default_scope": {
			build: func(m *orm.Meta) *orm.Builder { return m.Query() },
			want:  `SELECT * FROM "members" WHERE "banned_at" IS NULL`,
		},
		"with_banned": {
			build: func(m *orm.Meta) *orm.Builder { return bannable.WithBanned(m.Query()) },
			want:  `SELECT * FROM "members"`,
		},
		"only_banned": {
			build: func(m *orm.Meta) *orm.Builder { return bannable.OnlyBanned(m.Query()) },
			want:  `SELECT * FROM "members" WHERE "banned_at" IS NOT NULL`,
		},
		"without_banned_after_with_banned": {
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.WithoutBanned(bannable.WithBanned(m.Query()))
			},
			want: `SELECT * FROM "members" WHERE "banned_at" IS NULL`,
		},
		"joined_query_qualifies_column": {
			build: func(m *orm.Meta) *orm.Builder {
				return m.Query().Join("teams", "teams.id", "=", "members.team_id")
			},
			want: `SELECT "members".* FROM "members" INNER JOIN "teams" ON "teams"."id" = "members"."team_id" WHERE "members"."banned_at" IS NULL`,
		},
		"custom_column": {
			columns: map[string]string{bannable.DefaultColumn: "custom_banned_at"},
			build:   func(m *orm.Meta) *orm.Builder { return m.Query() },
			want:    `SELECT * FROM "members" WHERE "custom_banned_at" IS NULL`,
		},
		"local_banned_scope": {
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.WithBanned(m.Query()).Scopes(bannable.Banned)
			},
			want: `SELECT * FROM "members" WHERE "banned_at" IS NOT NULL`,
		},
		"only_banned_then_join": {
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.OnlyBanned(m.Query()).LeftJoin("teams", "teams.id", "=", "members.team_id")
			},
			want: `SELECT "members".* FROM "members" LEFT JOIN "teams" ON "teams"."id" = "members"."team_id" WHERE "members"."banned_at" IS NOT NULL`,
		},
		"without_banned_then_join": {
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.WithoutBanned(m.Query()).LeftJoin("teams", "teams.id", "=", "members.team_id")
			},
			want: `SELECT "members".* FROM "members" LEFT JOIN "teams" ON "teams"."id" = "members"."team_id" WHERE "members"."banned_at" IS NULL`,
		},
		"local_banned_then_join": {
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.WithBanned(m.Query()).Scopes(bannable.Banned).Join("teams", "teams.id", "=", "members.team_id")
			},
			want: `SELECT "members".* FROM "members" INNER JOIN "teams" ON "teams"."id" = "members"."team_id" WHERE "members"."banned_at" IS NOT NULL`,
		},
		"custom_column_then_join": {
			columns: map[string]string{bannable.DefaultColumn: "custom_banned_at"},
			build: func(m *orm.Meta) *orm.Builder {
				return bannable.OnlyBanned(m.Query()).Join("teams", "teams.id", "=", "members.team_id")
			},
			want: `SELECT "members".* FROM "members" INNER JOIN "teams" ON "teams"."id" = "members"."team_id" WHERE "members"."custom_banned_at" IS NOT NULL`,
		},
		"local_not_banned_composes_with_default": {
			build: func(m *orm.Meta) *orm.Builder { return m.Query().Scopes(bannable.NotBanned) },
			want:  `SELECT * FROM "members" WHERE "banned_at" IS NULL AND "banned_at" IS NULL`,
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			reg := orm.NewRegistry(nil)
			m := reg.Register(&orm.Meta{Name: "members", PrimaryKey: "id", Columns: tc.columns}, bannable.Boot)

			got, _ := tc.build(m).ToSQL()
			if got != tc.want {
				t.Errorf("ToSQL() = %q, want %q", got, tc.want)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}

func TestBootIsIdempotent(t *testing.T) {
	reg := orm.NewRegistry(nil)
	m := reg.Register(&orm.Meta{Name: "members", PrimaryKey: "id"}, bannable.Boot, bannable.Boot)
	bannable.Boot(m)

	if diff := cmp.Diff([]string{bannable.ScopeName}, m.GlobalScopeNames()); diff != "" {
		t.Errorf("GlobalScopeNames mismatch (-want +got):\n%s", diff)
	}
	got, _ := m.Query().ToSQL()
	if want := `SELECT * FROM "members" WHERE "banned_at" IS NULL`; got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQueryBanAndUnban(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)

	for _, name := range []string{"ana", "bo", "cy"} {
		fx.create(t, fx.members, orm.Attributes{"name": name})
	}

	n, err := bannable.Ban(ctx, fx.members.Query().Where("name", "!=", "cy"))
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if n != 2 {
		t.Errorf("Ban affected %d rows, want 2", n)
	}

	banned, err := bannable.OnlyBanned(fx.members.Query()).Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if banned != 2 {
		t.Errorf("banned rows = %d, want 2", banned)
	}

	// The scope stays on, so a second ban over everyone only touches cy.
	n, err = bannable.Ban(ctx, fx.members.Query())
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if n != 1 {
		t.Errorf("second Ban affected %d rows, want 1", n)
	}

	n, err = bannable.Unban(ctx, fx.members.Query())
	if err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if n != 3 {
		t.Errorf("Unban affected %d rows, want 3", n)
	}

	active, err := fx.members.Query().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if active != 3 {
		t.Errorf("active rows = %d, want 3", active)
	}
}

func TestScopesOnJoinedQueries(t *testing.T) {
	t.Parallel()

	type tcase struct {
		build func(m *orm.Meta) *orm.Builder
		want  []string
	}

	joinTeams := func(q *orm.Builder) *orm.Builder {
		return q.LeftJoin("teams", "teams.id", "=", "members.team_id").OrderBy("members.id", "asc")
	}

	tcases := map[string]tcase{
		"default_scope": {
			build: func(m *orm.Meta) *orm.Builder { return joinTeams(m.Query()) },
			want:  []string{"ana", "cy"},
		},
		"only_banned": {
			build: func(m *orm.Meta) *orm.Builder { return joinTeams(bannable.OnlyBanned(m.Query())) },
			want:  []string{"bo"},
		},
		"without_banned": {
			build: func(m *orm.Meta) *orm.Builder { return joinTeams(bannable.WithoutBanned(m.Query())) },
			want:  []string{"ana", "cy"},
		},
		"local_banned": {
			build: func(m *orm.Meta) *orm.Builder {
				return joinTeams(bannable.WithBanned(m.Query()).Scopes(bannable.Banned))
			},
			want: []string{"bo"},
		},
		"local_not_banned": {
			build: func(m *orm.Meta) *orm.Builder {
				return joinTeams(bannable.WithBanned(m.Query()).Scopes(bannable.NotBanned))
			},
			want: []string{"ana", "cy"},
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			ctx := context.Background()
			fx := newFixture(t, nil)

			core := fx.create(t, fx.teams, orm.Attributes{"name": "core"})
			fx.create(t, fx.members, orm.Attributes{"name": "ana", "team_id": core.Key()})
			fx.create(t, fx.members, orm.Attributes{"name": "bo", "team_id": core.Key()})
			fx.create(t, fx.members, orm.Attributes{"name": "cy"})

			if _, err := bannable.Ban(ctx, fx.members.Query().Where("name", "=", "bo")); err != nil {
				t.Fatalf("Ban: %v", err)
			}
			// A banned_at on the joined table must not leak into the filter.
			if _, err := fx.db.ExecContext(ctx, "UPDATE teams SET banned_at = '2024-01-01 00:00:00'"); err != nil {
				t.Fatalf("ban team: %v", err)
			}

			recs, err := tc.build(fx.members).Get(ctx)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			var got []string
			for _, r := range recs {
				got = append(got, r.Get("name").(string))
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}
