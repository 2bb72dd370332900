// Package model declares the teams and users record types on top of the orm
// registry. Both types carry the ban capability; users belong to a team and
// touch it when their ban state changes.
package model

import (
	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/orm"
)

const (
	TypeTeams = "teams"
	TypeUsers = "users"
)

// TypeOptions are the per-type settings read from the type config file.
type TypeOptions struct {
	// BannedAtColumn overrides the "banned_at" column name.
	BannedAtColumn string             `yaml:"banned_at_column"`
	ExportMap      []orm.ExportColumn `yaml:"export"`
}

// Types holds the registered record types.
type Types struct {
	Registry *orm.Registry
	Teams    *orm.Meta
	Users    *orm.Meta
}

// Register declares teams and users on reg. opts is keyed by type name and
// may be nil.
func Register(reg *orm.Registry, opts map[string]TypeOptions) Types {
	return Types{
		Registry: reg,
		Teams:    reg.Register(teamsMeta(opts[TypeTeams]), bannable.Boot),
		Users:    reg.Register(usersMeta(opts[TypeUsers]), bannable.Boot),
	}
}

func teamsMeta(opts TypeOptions) *orm.Meta {
	col := bannedColumn(opts)
	export := opts.ExportMap
	if len(export) == 0 {
		export = []orm.ExportColumn{
			{Path: "id", Header: "ID"},
			{Path: "name", Header: "Name"},
			{Path: col, Header: "Banned At"},
		}
	}
	return &orm.Meta{
		Name:       TypeTeams,
		PrimaryKey: "id",
		Timestamps: true,
		Dates:      []string{col},
		Appends:    []string{"is_banned"},
		Accessors: map[string]orm.AccessorFunc{
			"is_banned": isBanned,
		},
		Mutators: map[string]orm.MutatorFunc{
			"name": mutateTeamName,
		},
		Relations: map[string]orm.Relation{
			"users": {Kind: orm.HasMany, Related: TypeUsers, ForeignKey: "team_id"},
		},
		Columns:   columns(opts),
		ExportMap: export,
	}
}

func usersMeta(opts TypeOptions) *orm.Meta {
	col := bannedColumn(opts)
	export := opts.ExportMap
	if len(export) == 0 {
		export = []orm.ExportColumn{
			{Path: "id", Header: "ID"},
			{Path: "username", Header: "Username"},
			{Path: "email", Header: "Email"},
			{Path: "role", Header: "Role"},
			{Path: "team.name", Header: "Team"},
			{Path: col, Header: "Banned At"},
		}
	}
	return &orm.Meta{
		Name:       TypeUsers,
		PrimaryKey: "id",
		Timestamps: true,
		Dates:      []string{col},
		Hidden:     []string{"password"},
		Appends:    []string{"is_banned"},
		Accessors: map[string]orm.AccessorFunc{
			"role":      func(_ *orm.Model, v any) any { return roleOf(v).String() },
			"is_banned": isBanned,
		},
		Mutators: map[string]orm.MutatorFunc{
			"username": mutateUsername,
			"email":    mutateEmail,
			"password": mutatePassword,
			"role":     mutateRole,
			"team_id":  mutateTeamID,
		},
		Relations: map[string]orm.Relation{
			"team": {Kind: orm.BelongsTo, Related: TypeTeams, ForeignKey: "team_id"},
		},
		Touches:   []string{"team"},
		Columns:   columns(opts),
		ExportMap: export,
	}
}

func isBanned(m *orm.Model, _ any) any {
	return bannable.New(m).IsBanned()
}

func bannedColumn(opts TypeOptions) string {
	if opts.BannedAtColumn != "" {
		return opts.BannedAtColumn
	}
	return bannable.DefaultColumn
}

func columns(opts TypeOptions) map[string]string {
	if opts.BannedAtColumn == "" {
		return nil
	}
	return map[string]string{bannable.DefaultColumn: opts.BannedAtColumn}
}
