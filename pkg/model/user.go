package model

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/crypto"
	"github.com/NicolasHaas/godata/pkg/orm"
)

const MaxUsernameLength = 32

var ErrUsernameEmpty = errors.New("username must not be empty")
var ErrUsernameTooLong = fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
var ErrUsernameInvalidChars = errors.New("username must contain only alphanumeric characters, underscores, or hyphens")
var ErrInvalidRole = errors.New("invalid role: must be user (0), moderator (1), or admin (2)")
var ErrInvalidEmail = errors.New("invalid email address")
var ErrTeamNotFound = errors.New("team not found")

// ErrVetoed is returned when a lifecycle listener cancelled a write.
var ErrVetoed = errors.New("operation cancelled by a listener")

// User is a users record with the ban capability.
type User struct {
	*orm.Model
	bannable.Bannable
}

var _ bannable.CanBeBanned = (*User)(nil)

// WrapUser binds the ban capability to a hydrated users record.
func WrapUser(rec *orm.Model) *User {
	return &User{Model: rec, Bannable: bannable.New(rec)}
}

// NewUser carries the fields accepted when creating a user.
type NewUser struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password,omitempty" yaml:"-"`
	Role     string `json:"role" yaml:"role"`
	TeamID   *int64 `json:"team_id" yaml:"team_id"`
}

func (u *User) ID() int64 {
	id, _ := orm.AsInt(u.Key()).(int64)
	return id
}

func (u *User) Username() string {
	s, _ := u.Get("username").(string)
	return s
}

func (u *User) Role() Role {
	return roleOf(u.Get("role"))
}

// TeamID returns the owning team, false when the user has none.
func (u *User) TeamID() (int64, bool) {
	id, ok := orm.AsInt(u.Get("team_id")).(int64)
	return id, ok
}

// CheckPassword verifies password against the stored hash. Users created
// without a password never match.
func (u *User) CheckPassword(password string) bool {
	encoded, _ := u.Get("password").(string)
	if encoded == "" {
		return false
	}
	ok, err := crypto.VerifyPassword(encoded, password)
	return err == nil && ok
}

// ValidateUsername checks that a username is 1-32 ASCII alphanumeric, underscore,
// or hyphen characters. Returns nil on success or a descriptive error.
func ValidateUsername(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return ErrUsernameInvalidChars
		}
	}
	return nil
}

// CreateUser validates and inserts a user. A team id must name an active
// (not banned) team.
func CreateUser(ctx context.Context, types Types, nu NewUser) (*User, error) {
	attrs := orm.Attributes{
		"username": nu.Username,
		"email":    nu.Email,
		"role":     nu.Role,
	}
	if nu.Role == "" {
		attrs["role"] = RoleUser
	}
	if nu.Password != "" {
		attrs["password"] = nu.Password
	}
	if nu.TeamID != nil {
		team, err := types.Teams.Query().Find(ctx, *nu.TeamID)
		if err != nil {
			return nil, fmt.Errorf("model: create user: %w", err)
		}
		if team == nil {
			return nil, fmt.Errorf("model: create user: %w", ErrTeamNotFound)
		}
		attrs["team_id"] = *nu.TeamID
	}

	rec, err := types.Users.New(attrs)
	if err != nil {
		return nil, fmt.Errorf("model: create user: %w", err)
	}
	ok, err := rec.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("model: create user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("model: create user: %w", ErrVetoed)
	}
	return WrapUser(rec), nil
}

// FindUser loads one user, or (nil, nil) when none matches. Banned users are
// only found with withBanned set.
func FindUser(ctx context.Context, types Types, id int64, withBanned bool, includes ...string) (*User, error) {
	q := types.Users.Query().With(includes...)
	if withBanned {
		q = bannable.WithBanned(q)
	}
	rec, err := q.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("model: find user: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return WrapUser(rec), nil
}

func mutateUsername(_ *orm.Model, value any) (any, error) {
	name := stringValue(value)
	if err := ValidateUsername(name); err != nil {
		return nil, err
	}
	return name, nil
}

func mutateEmail(_ *orm.Model, value any) (any, error) {
	email := strings.TrimSpace(stringValue(value))
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return strings.ToLower(email), nil
}

// mutatePassword hashes plain text and keeps already encoded hashes.
func mutatePassword(_ *orm.Model, value any) (any, error) {
	pw := stringValue(value)
	if pw == "" || crypto.IsHashed(pw) {
		return pw, nil
	}
	return crypto.HashPassword(pw)
}

func mutateTeamID(_ *orm.Model, value any) (any, error) {
	return orm.AsInt(value), nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
