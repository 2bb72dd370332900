package model

import (
	"fmt"

	"github.com/NicolasHaas/godata/pkg/orm"
)

// Role represents a user's permission level.
type Role int

const (
	RoleUser      Role = iota // Default role
	RoleModerator             // Can ban and unban users
	RoleAdmin                 // Full control, cannot be banned
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a string to a Role.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "moderator":
		return RoleModerator
	default:
		return RoleUser
	}
}

// Valid returns true if the role is a recognised value (User, Moderator, or Admin).
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

// roleOf reads a stored role column, which SQLite hands back as int64.
func roleOf(v any) Role {
	n, ok := orm.AsInt(v).(int64)
	if !ok {
		return RoleUser
	}
	return Role(n)
}

// mutateRole accepts a Role, a number (JSON decodes to float64) or a role
// name and stores the integer value.
func mutateRole(_ *orm.Model, value any) (any, error) {
	var r Role
	switch v := value.(type) {
	case nil:
		return int64(RoleUser), nil
	case Role:
		r = v
	case string:
		r = ParseRole(v)
		if r.String() != v {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, v)
		}
	case int, int64, float64:
		r = Role(orm.AsInt(v).(int64))
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidRole, value)
	}
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return int64(r), nil
}
