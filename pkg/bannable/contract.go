// Package bannable adds a soft-ban state to orm record types: a nullable
// banned-at timestamp, a global scope hiding banned rows, and four lifecycle
// events around the transition.
//
// A record type opts in at registration time:
//
//	users := reg.Register(&orm.Meta{Name: "users", PrimaryKey: "id"}, bannable.Boot)
//
// and concrete record wrappers embed the capability next to the record:
//
//	type User struct {
//		*orm.Model
//		bannable.Bannable
//	}
package bannable

import (
	"context"
	"errors"
)

// Lifecycle events. Banning and unbanning are halting: a listener returning
// false cancels the transition.
const (
	EventBanning   = "banning"
	EventBanned    = "banned"
	EventUnbanning = "unbanning"
	EventUnbanned  = "unbanned"
)

// DefaultColumn is the banned-at column unless the type overrides it through
// Meta.Columns[DefaultColumn].
const DefaultColumn = "banned_at"

// ScopeName is the name the banning scope is registered under.
const ScopeName = "bannable"

var ErrNoPrimaryKey = errors.New("no primary key defined on model")

// CanBeBanned is implemented by every record wrapper embedding Bannable.
type CanBeBanned interface {
	Ban(ctx context.Context) (bool, error)
	Unban(ctx context.Context) (bool, error)
	IsBanned() bool
}

var _ CanBeBanned = Bannable{}
