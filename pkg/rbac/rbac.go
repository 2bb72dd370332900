// Package rbac maps user roles to permissions. It guards bans and exposes
// each user's permissions as a record attribute.
package rbac

import (
	"context"
	"log/slog"
	"slices"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
)

// Permission represents a specific action that can be checked against a role.
type Permission int

const (
	PermBanUsers Permission = iota
	PermUnbanUsers
	PermExportUsers
	PermManageTeams
	PermBanImmune // the role cannot be banned
)

// AttributePermissions is the users attribute listing granted permissions.
const AttributePermissions = "permissions"

var allPermissions = []Permission{PermBanUsers, PermUnbanUsers, PermExportUsers, PermManageTeams, PermBanImmune}

// permissionMatrix maps roles to their allowed permissions.
var permissionMatrix = map[model.Role]map[Permission]bool{
	model.RoleAdmin: {
		PermBanUsers:    true,
		PermUnbanUsers:  true,
		PermExportUsers: true,
		PermManageTeams: true,
		PermBanImmune:   true,
	},
	model.RoleModerator: {
		PermBanUsers:   true,
		PermUnbanUsers: true,
	},
	model.RoleUser: {
		// No special permissions
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role model.Role, perm Permission) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// Permissions returns the names of the permissions role grants, in
// declaration order.
func Permissions(role model.Role) []string {
	out := []string{}
	for _, p := range allPermissions {
		if HasPermission(role, p) {
			out = append(out, p.String())
		}
	}
	return out
}

func (p Permission) String() string {
	switch p {
	case PermBanUsers:
		return "ban_users"
	case PermUnbanUsers:
		return "unban_users"
	case PermExportUsers:
		return "export_users"
	case PermManageTeams:
		return "manage_teams"
	case PermBanImmune:
		return "ban_immune"
	default:
		return "unknown"
	}
}

// GuardBans registers a banning listener on the users type that vetoes bans
// of users whose role is immune.
func GuardBans(users *orm.Meta) {
	bannable.OnBanning(users, func(ctx context.Context, m *orm.Model) bool {
		u := model.WrapUser(m)
		if HasPermission(u.Role(), PermBanImmune) {
			slog.InfoContext(ctx, "ban vetoed", "user", u.Username(), "role", u.Role().String())
			return false
		}
		return true
	})
}

// ExposePermissions appends a "permissions" attribute to every users record.
// Call it during setup, before records are created.
func ExposePermissions(users *orm.Meta) {
	if users.Accessors == nil {
		users.Accessors = make(map[string]orm.AccessorFunc)
	}
	users.Accessors[AttributePermissions] = func(m *orm.Model, _ any) any {
		return Permissions(model.WrapUser(m).Role())
	}
	if !slices.Contains(users.Appends, AttributePermissions) {
		users.Appends = append(users.Appends, AttributePermissions)
	}
}
