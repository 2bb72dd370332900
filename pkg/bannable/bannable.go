package bannable

import (
	"context"
	"fmt"

	"github.com/NicolasHaas/godata/pkg/orm"
)

// Bannable implements the ban state machine for one record.
type Bannable struct {
	rec *orm.Model
}

// New binds the capability to rec.
func New(rec *orm.Model) Bannable {
	return Bannable{rec: rec}
}

// Boot registers the banning scope on a record type. Pass it to
// orm.Registry.Register; running it twice on the same type is a no-op.
func Boot(m *orm.Meta) {
	m.AddGlobalScope(ScopeName, Scope{})
}

// Ban stamps the record's banned-at column with the current time. It returns
// false without touching storage when a banning listener vetoes.
func (b Bannable) Ban(ctx context.Context) (bool, error) {
	m := b.rec
	if m.KeyName() == "" || m.Key() == nil {
		return false, fmt.Errorf("bannable: ban %s: %w", m.Meta().Name, ErrNoPrimaryKey)
	}

	if !m.FireEvent(ctx, EventBanning, true) {
		return false, nil
	}

	if err := m.TouchOwners(ctx); err != nil {
		return false, fmt.Errorf("bannable: ban %s: %w", m.Meta().Name, err)
	}

	if err := b.runBan(ctx); err != nil {
		return false, err
	}

	m.FireEvent(ctx, EventBanned, false)
	return true, nil
}

// runBan writes the column directly, bypassing scopes and the save path so
// mutators and saving listeners do not run.
func (b Bannable) runBan(ctx context.Context) error {
	m := b.rec
	now := m.FreshTimestamp()
	col := b.BannedAtColumn()

	values := map[string]any{col: now}
	if m.Meta().Timestamps {
		values[orm.ColumnUpdatedAt] = now
	}

	if _, err := m.NewQueryWithoutScopes().
		Where(m.KeyName(), "=", m.Key()).
		Update(ctx, values); err != nil {
		return fmt.Errorf("bannable: ban %s: %w", m.Meta().Name, err)
	}

	for k, v := range values {
		m.SetRaw(k, v)
		m.SyncOriginalAttribute(k)
	}
	return nil
}

// Unban clears the banned-at column with a full save. It returns false
// without changes when an unbanning listener vetoes, otherwise the save
// result.
func (b Bannable) Unban(ctx context.Context) (bool, error) {
	m := b.rec
	if !m.FireEvent(ctx, EventUnbanning, true) {
		return false, nil
	}

	m.SetRaw(b.BannedAtColumn(), nil)
	m.SetExists(true)

	ok, err := m.Save(ctx)
	if err != nil {
		return false, fmt.Errorf("bannable: unban %s: %w", m.Meta().Name, err)
	}

	m.FireEvent(ctx, EventUnbanned, false)
	return ok, nil
}

// IsBanned reports whether the banned-at column is set.
func (b Bannable) IsBanned() bool {
	return b.rec.Get(b.BannedAtColumn()) != nil
}

// BannedAtColumn returns the type's banned-at column name.
func (b Bannable) BannedAtColumn() string {
	return b.rec.Meta().Column(DefaultColumn)
}

// QualifiedBannedAtColumn returns the column prefixed with the table name.
func (b Bannable) QualifiedBannedAtColumn() string {
	return b.rec.Meta().QualifyColumn(b.BannedAtColumn())
}

// Banned is a local scope keeping banned rows only. Combine it with
// WithBanned, otherwise the global scope filters everything out.
func Banned(q *orm.Builder) *orm.Builder {
	return q.WhereOwnNotNull(column(q))
}

// NotBanned is a local scope keeping active rows only.
func NotBanned(q *orm.Builder) *orm.Builder {
	return q.WhereOwnNull(column(q))
}

func OnBanning(m *orm.Meta, l orm.Listener)   { m.Listen(EventBanning, l) }
func OnBanned(m *orm.Meta, l orm.Listener)    { m.Listen(EventBanned, l) }
func OnUnbanning(m *orm.Meta, l orm.Listener) { m.Listen(EventUnbanning, l) }
func OnUnbanned(m *orm.Meta, l orm.Listener)  { m.Listen(EventUnbanned, l) }
