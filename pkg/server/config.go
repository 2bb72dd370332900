package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
)

// TypeConfig is the top-level YAML for per-type options:
//
//	types:
//	  users:
//	    banned_at_column: banned_at
//	    export:
//	      - {path: username, header: Username}
//	      - {path: team.name, header: Team}
type TypeConfig struct {
	Types map[string]model.TypeOptions `yaml:"types"`
}

// UserYAML represents a user in YAML export.
type UserYAML struct {
	ID        int64  `yaml:"id"`
	Username  string `yaml:"username"`
	Email     string `yaml:"email,omitempty"`
	Role      string `yaml:"role"`
	Team      string `yaml:"team,omitempty"`
	BannedAt  string `yaml:"banned_at,omitempty"`
	CreatedAt string `yaml:"created_at"`
}

// UsersExport is the top-level YAML for user export.
type UsersExport struct {
	Users []UserYAML `yaml:"users"`
}

// LoadTypeConfig reads a type config YAML file.
func LoadTypeConfig(path string) (TypeConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return TypeConfig{}, fmt.Errorf("read types config: %w", err)
	}
	return ParseTypeConfig(data)
}

// ParseTypeConfig parses YAML data and checks every named type exists.
func ParseTypeConfig(data []byte) (TypeConfig, error) {
	var cfg TypeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TypeConfig{}, fmt.Errorf("parse types config: %w", err)
	}
	for name, opts := range cfg.Types {
		if name != model.TypeUsers && name != model.TypeTeams {
			return TypeConfig{}, fmt.Errorf("parse types config: unknown type %q", name)
		}
		for _, c := range opts.ExportMap {
			if c.Path == "" || c.Header == "" {
				return TypeConfig{}, fmt.Errorf("parse types config: %s: export column needs path and header", name)
			}
		}
	}
	return cfg, nil
}

// ExportUsersYAML exports all users, banned ones included, as YAML.
func ExportUsersYAML(ctx context.Context, types model.Types) ([]byte, error) {
	users, err := types.Users.QueryWithoutScopes().With("team").OrderBy("id", "asc").Get(ctx)
	if err != nil {
		return nil, err
	}

	export := UsersExport{}
	for _, rec := range users {
		u := model.WrapUser(rec)
		entry := UserYAML{
			ID:        u.ID(),
			Username:  u.Username(),
			Role:      u.Role().String(),
			CreatedAt: formatTime(u.Get(orm.ColumnCreatedAt)),
			BannedAt:  formatTime(u.Get(u.BannedAtColumn())),
		}
		entry.Email, _ = u.Get("email").(string)
		if team, ok := u.Relation("team").(*orm.Model); ok && team != nil {
			entry.Team = model.WrapTeam(team).Name()
		}
		export.Users = append(export.Users, entry)
	}
	return yaml.Marshal(&export)
}

func formatTime(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05Z")
	default:
		return fmt.Sprint(v)
	}
}
