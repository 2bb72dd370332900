package server_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
	"github.com/NicolasHaas/godata/pkg/server"
)

func TestParseTypeConfig(t *testing.T) {
	t.Parallel()

	type tcase struct {
		data    string
		want    server.TypeConfig
		wantErr bool
	}

	tcases := map[string]tcase{
		"column_and_export": {
			data: `
types:
  users:
    banned_at_column: suspended_at
    export:
      - {path: username, header: Username}
      - {path: team.name, header: Team}
`,
			want: server.TypeConfig{Types: map[string]model.TypeOptions{
				model.TypeUsers: {
					BannedAtColumn: "suspended_at",
					ExportMap: []orm.ExportColumn{
						{Path: "username", Header: "Username"},
						{Path: "team.name", Header: "Team"},
					},
				},
			}},
		},
		"empty": {
			data: ``,
			want: server.TypeConfig{},
		},
		"unknown_type": {
			data:    "types:\n  posts: {}\n",
			wantErr: true,
		},
		"export_without_header": {
			data:    "types:\n  teams:\n    export:\n      - {path: name}\n",
			wantErr: true,
		},
		"malformed": {
			data:    "types: [",
			wantErr: true,
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			got, err := server.ParseTypeConfig([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseTypeConfig() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTypeConfig: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseTypeConfig mismatch (-want +got):\n%s", diff)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}

func TestExportUsersYAML(t *testing.T) {
	srv := newTestServer(t)
	seed(t, srv)
	mustDo(t, srv, http.MethodPost, "/users", `{"username":"bo","role":"moderator"}`, http.StatusCreated)
	mustDo(t, srv, http.MethodPost, "/users/2/ban", "", http.StatusOK)

	data, err := server.ExportUsersYAML(context.Background(), srv.Types())
	if err != nil {
		t.Fatalf("ExportUsersYAML: %v", err)
	}

	var got server.UsersExport
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	want := server.UsersExport{Users: []server.UserYAML{
		{ID: 1, Username: "ana", Email: "ana@example.com", Role: "user", Team: "core", CreatedAt: "2024-03-01T09:30:00Z"},
		{ID: 2, Username: "bo", Role: "moderator", BannedAt: "2024-03-01T09:30:00Z", CreatedAt: "2024-03-01T09:30:00Z"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportUsersYAML mismatch (-want +got):\n%s", diff)
	}
}
