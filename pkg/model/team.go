package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/orm"
)

const MaxTeamNameLength = 64

var ErrTeamNameEmpty = errors.New("team name must not be empty")
var ErrTeamNameTooLong = errors.New("team name too long")

// Team is a teams record with the ban capability.
type Team struct {
	*orm.Model
	bannable.Bannable
}

// WrapTeam binds the ban capability to a hydrated teams record.
func WrapTeam(rec *orm.Model) *Team {
	return &Team{Model: rec, Bannable: bannable.New(rec)}
}

func (t *Team) Name() string {
	s, _ := t.Get("name").(string)
	return s
}

// Members returns the loaded users relation, nil when it was not loaded.
func (t *Team) Members() orm.Collection {
	c, _ := t.Relation("users").(orm.Collection)
	return c
}

// ValidateTeamName rejects blank names and names longer than
// MaxTeamNameLength runes.
func ValidateTeamName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrTeamNameEmpty
	} else if utf8.RuneCountInString(name) > MaxTeamNameLength {
		return ErrTeamNameTooLong
	}
	return nil
}

// CreateTeam validates and inserts a team.
func CreateTeam(ctx context.Context, types Types, name string) (*Team, error) {
	rec, err := types.Teams.New(orm.Attributes{"name": name})
	if err != nil {
		return nil, fmt.Errorf("model: create team: %w", err)
	}
	ok, err := rec.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("model: create team: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("model: create team: %w", ErrVetoed)
	}
	return WrapTeam(rec), nil
}

// FindTeam loads one team, or (nil, nil) when none matches.
func FindTeam(ctx context.Context, types Types, id int64, withBanned bool, includes ...string) (*Team, error) {
	q := types.Teams.Query().With(includes...)
	if withBanned {
		q = bannable.WithBanned(q)
	}
	rec, err := q.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("model: find team: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return WrapTeam(rec), nil
}

func mutateTeamName(_ *orm.Model, value any) (any, error) {
	name := stringValue(value)
	if err := ValidateTeamName(name); err != nil {
		return nil, err
	}
	return name, nil
}
