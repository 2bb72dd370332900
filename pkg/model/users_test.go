package model_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NicolasHaas/godata/pkg/datastore"
	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
	"github.com/NicolasHaas/godata/pkg/transform"

	"github.com/google/go-cmp/cmp"
)

var createdAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTypes(t *testing.T, now *time.Time) model.Types {
	t.Helper()

	store, err := datastore.NewProviderFactory(filepath.Join(t.TempDir(), "model.db"))
	if err != nil {
		t.Fatalf("NewProviderFactory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reg := orm.NewRegistry(store.NonTx(), orm.WithClock(func() time.Time { return *now }))
	return model.Register(reg, nil)
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateUserAndTransform(t *testing.T) {
	ctx := context.Background()
	now := createdAt
	types := newTypes(t, &now)

	team, err := model.CreateTeam(ctx, types, "core")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	created, err := model.CreateUser(ctx, types, model.NewUser{
		Username: "ana",
		Email:    "Ana@Example.com",
		Password: "secret",
		TeamID:   int64Ptr(team.Key().(int64)),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !created.CheckPassword("secret") || created.CheckPassword("nope") {
		t.Errorf("CheckPassword does not match the stored hash")
	}

	user, err := model.FindUser(ctx, types, created.ID(), false, "team")
	if err != nil || user == nil {
		t.Fatalf("FindUser = %v, %v", user, err)
	}

	got, err := transform.TransformEntity(user.Model, model.NewUserTransformer(), transform.DataSerializer{})
	if err != nil {
		t.Fatalf("TransformEntity: %v", err)
	}
	want := map[string]any{
		"data": map[string]any{
			"id":         int64(1),
			"team_id":    int64(1),
			"username":   "ana",
			"email":      "ana@example.com",
			"role":       "user",
			"banned_at":  nil,
			"is_banned":  false,
			"created_at": createdAt,
			"updated_at": createdAt,
			"team": map[string]any{
				"id":         int64(1),
				"name":       "core",
				"banned_at":  nil,
				"is_banned":  false,
				"created_at": createdAt,
				"updated_at": createdAt,
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TransformEntity mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUserErrors(t *testing.T) {
	t.Parallel()

	type tcase struct {
		user    model.NewUser
		wantErr error
	}

	tcases := map[string]tcase{
		"unknown_team": {
			user:    model.NewUser{Username: "ana", TeamID: int64Ptr(99)},
			wantErr: model.ErrTeamNotFound,
		},
		"invalid_username": {
			user:    model.NewUser{Username: "ana banana"},
			wantErr: model.ErrUsernameInvalidChars,
		},
		"invalid_role": {
			user:    model.NewUser{Username: "ana", Role: "root"},
			wantErr: model.ErrInvalidRole,
		},
		"invalid_email": {
			user:    model.NewUser{Username: "ana", Email: "nope"},
			wantErr: model.ErrInvalidEmail,
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			now := createdAt
			types := newTypes(t, &now)
			if _, err := model.CreateUser(context.Background(), types, tc.user); !errors.Is(err, tc.wantErr) {
				t.Errorf("CreateUser error = %v, want %v", err, tc.wantErr)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}

func TestBannedTeamRejectsMembers(t *testing.T) {
	ctx := context.Background()
	now := createdAt
	types := newTypes(t, &now)

	team, err := model.CreateTeam(ctx, types, "core")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if ok, err := team.Ban(ctx); err != nil || !ok {
		t.Fatalf("Ban = %v, %v", ok, err)
	}

	_, err = model.CreateUser(ctx, types, model.NewUser{Username: "ana", TeamID: int64Ptr(team.Key().(int64))})
	if !errors.Is(err, model.ErrTeamNotFound) {
		t.Errorf("CreateUser error = %v, want ErrTeamNotFound", err)
	}
}

func TestBanUserTouchesTeam(t *testing.T) {
	ctx := context.Background()
	now := createdAt
	types := newTypes(t, &now)

	team, err := model.CreateTeam(ctx, types, "core")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	user, err := model.CreateUser(ctx, types, model.NewUser{Username: "ana", TeamID: int64Ptr(team.Key().(int64))})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	later := createdAt.Add(time.Hour)
	now = later
	if ok, err := user.Ban(ctx); err != nil || !ok {
		t.Fatalf("Ban = %v, %v", ok, err)
	}

	hidden, err := model.FindUser(ctx, types, user.ID(), false)
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if hidden != nil {
		t.Errorf("FindUser found a banned user without withBanned")
	}

	banned, err := model.FindUser(ctx, types, user.ID(), true)
	if err != nil || banned == nil {
		t.Fatalf("FindUser(withBanned) = %v, %v", banned, err)
	}
	if !banned.IsBanned() {
		t.Errorf("IsBanned() = false after Ban")
	}
	if diff := cmp.Diff(later, banned.Get("banned_at")); diff != "" {
		t.Errorf("banned_at mismatch (-want +got):\n%s", diff)
	}

	reloaded, err := model.FindTeam(ctx, types, team.Key().(int64), false, "users")
	if err != nil || reloaded == nil {
		t.Fatalf("FindTeam = %v, %v", reloaded, err)
	}
	if diff := cmp.Diff(later, reloaded.Get("updated_at")); diff != "" {
		t.Errorf("team updated_at mismatch (-want +got):\n%s", diff)
	}
	if n := len(reloaded.Members()); n != 0 {
		t.Errorf("Members() = %d users, want 0 (banned users are scoped out)", n)
	}
}

func TestExportUsersCSV(t *testing.T) {
	ctx := context.Background()
	now := createdAt
	types := newTypes(t, &now)

	team, err := model.CreateTeam(ctx, types, "core")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if _, err := model.CreateUser(ctx, types, model.NewUser{Username: "ana", Email: "ana@example.com", Role: "admin", TeamID: int64Ptr(team.Key().(int64))}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bo, err := model.CreateUser(ctx, types, model.NewUser{Username: "bo"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := bo.Ban(ctx); err != nil {
		t.Fatalf("Ban: %v", err)
	}

	users, err := types.Users.QueryWithoutScopes().With("team").OrderBy("id", "asc").Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	payload, err := transform.NewFactory().
		CollectionWith(users, transform.ExportTransformer{}, "").
		Serialize(transform.CSVSerializer{Columns: transform.ExportHeaders(types.Users.ExportMap)})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var buf bytes.Buffer
	if err := transform.WriteCSV(&buf, payload); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "ID,Username,Email,Role,Team,Banned At\n" +
		"1,ana,ana@example.com,admin,core,\n" +
		"2,bo,,user,,2024-03-01 09:30:00\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterHonoursColumnOverride(t *testing.T) {
	reg := orm.NewRegistry(nil)
	types := model.Register(reg, map[string]model.TypeOptions{
		model.TypeUsers: {BannedAtColumn: "suspended_at"},
	})

	user, err := types.Users.New(orm.Attributes{"username": "ana"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := model.WrapUser(user).BannedAtColumn(); got != "suspended_at" {
		t.Errorf("BannedAtColumn() = %q, want suspended_at", got)
	}
	if got := model.WrapTeam(mustNewTeam(t, types)).BannedAtColumn(); got != "banned_at" {
		t.Errorf("teams BannedAtColumn() = %q, want banned_at", got)
	}

	query, _ := types.Users.Query().ToSQL()
	if want := `SELECT * FROM "users" WHERE "suspended_at" IS NULL`; query != want {
		t.Errorf("ToSQL() = %q, want %q", query, want)
	}
}

func mustNewTeam(t *testing.T, types model.Types) *orm.Model {
	t.Helper()
	rec, err := types.Teams.New(orm.Attributes{"name": "core"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rec
}
