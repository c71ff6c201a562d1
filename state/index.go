package state

import (
	"errors"
	"time"

	"github.com/m-lab/ircd/casemap"
	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/metrics"
)

// Errors returned by index operations.
var (
	// ErrNickInUse is returned when registering a nick already held by
	// another User (the 433 case).
	ErrNickInUse = errors.New("nick in use")
)

// Index holds the Nick Index and Channel Index: one server-state value,
// threaded through every handler, rather than free functions reaching into
// module-level mutables. This generalizes a current/previous map-swap
// cache shape to two independent case-folded maps, since an IRC index has
// no "current vs. previous cycle" distinction — entries live until
// explicitly removed.
type Index struct {
	Hooks *hooks.Registry

	nicks    map[string]*User
	channels map[string]*Channel
	byFd     map[int]*User
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		Hooks:    &hooks.Registry{},
		nicks:    make(map[string]*User),
		channels: make(map[string]*Channel),
		byFd:     make(map[int]*User),
	}
}

// RegisterFd records the fd->User mapping made at accept time, kept as a
// map rather than a sparse array.
func (ix *Index) RegisterFd(u *User) { ix.byFd[u.Fd] = u }

// UserByFd returns the User owning fd, or nil.
func (ix *Index) UserByFd(fd int) *User { return ix.byFd[fd] }

// UserByConnID returns the User whose ConnID matches connID, or nil. Used
// to apply an asynchronous DNS completion back to its originating
// connection, which may still be mid-registration and so not yet present
// in the Nick Index.
func (ix *Index) UserByConnID(connID string) *User {
	for _, u := range ix.byFd {
		if u.ConnID == connID {
			return u
		}
	}
	return nil
}

// Connections returns every accepted connection, registered or not — the
// full fd table, used by the background sweep (registration timeout, ping,
// sendQ-error) which must see pre-registration connections too.
func (ix *Index) Connections() []*User {
	out := make([]*User, 0, len(ix.byFd))
	for _, u := range ix.byFd {
		out = append(out, u)
	}
	return out
}

// ForgetFd removes the fd->User mapping once the connection is closed.
func (ix *Index) ForgetFd(fd int) { delete(ix.byFd, fd) }

// UserByNick looks up a User by nick, case-insensitively.
func (ix *Index) UserByNick(nick string) *User {
	return ix.nicks[casemap.Fold(nick)]
}

// BindNick inserts u into the Nick Index under its current Nick field.
// It enforces the one-nick-one-user bijection: if the folded nick is
// already bound to a different User, ErrNickInUse is returned and the
// index is unchanged.
func (ix *Index) BindNick(u *User) error {
	folded := u.FoldedNick()
	if existing, ok := ix.nicks[folded]; ok && existing != u {
		return ErrNickInUse
	}
	ix.nicks[folded] = u
	return nil
}

// Rename moves u from its old folded nick to newNick across the Nick
// Index and every channel it is a member of, preserving membership
// status. A newNick that differs from the current nick only in case keeps
// the same index key; only the displayed nick changes.
func (ix *Index) Rename(u *User, newNick string) error {
	newFolded := casemap.Fold(newNick)
	oldFolded := u.FoldedNick()
	if existing, ok := ix.nicks[newFolded]; ok && existing != u {
		return ErrNickInUse
	}
	delete(ix.nicks, oldFolded)
	for chName := range u.ChannelNames {
		if ch, ok := ix.channels[chName]; ok {
			ch.renameMember(oldFolded, newNick)
		}
	}
	u.Nick = newNick
	ix.nicks[newFolded] = u
	return nil
}

// UnbindNick removes u from the Nick Index (used on quit/kill/timeout).
func (ix *Index) UnbindNick(u *User) {
	if existing, ok := ix.nicks[u.FoldedNick()]; ok && existing == u {
		delete(ix.nicks, u.FoldedNick())
	}
	metrics.UserCount.Set(float64(len(ix.nicks)))
}

// MarkRegistered finalizes u's entry in the Nick Index once registration
// completes, refreshing the user-count gauge.
func (ix *Index) MarkRegistered(u *User) {
	metrics.UserCount.Set(float64(len(ix.nicks)))
}

// Channel looks up a channel by name, case-insensitively.
func (ix *Index) Channel(name string) *Channel {
	return ix.channels[casemap.Fold(name)]
}

// GetOrCreateChannel returns the named channel, creating it with the given
// timestamp if it doesn't exist yet: a JOIN to a non-existent channel
// creates it with TS set to the current time. The second return value
// reports whether the channel was newly created.
func (ix *Index) GetOrCreateChannel(name string, now time.Time) (*Channel, bool) {
	folded := casemap.Fold(name)
	if ch, ok := ix.channels[folded]; ok {
		return ch, false
	}
	ch := NewChannel(name, now)
	ix.channels[folded] = ch
	metrics.ChannelCount.Set(float64(len(ix.channels)))
	return ch, true
}

// DestroyChannelIfEmpty removes ch from the Channel Index if it has no
// members, upholding the no-ghost-channels invariant. It is always safe to
// call after any PART/KICK/QUIT.
func (ix *Index) DestroyChannelIfEmpty(ch *Channel) {
	if !ch.Empty() {
		return
	}
	delete(ix.channels, ch.FoldedName())
	metrics.ChannelCount.Set(float64(len(ix.channels)))
}

// Channels returns every channel currently indexed; used by LUSERS, the
// KILL sweep and stats snapshots.
func (ix *Index) Channels() []*Channel {
	out := make([]*Channel, 0, len(ix.channels))
	for _, ch := range ix.channels {
		out = append(out, ch)
	}
	return out
}

// Users returns every user bound in the Nick Index, including one still
// registering that has already sent NICK; used by WHO/background timers
// and the X-line apply walk.
func (ix *Index) Users() []*User {
	out := make([]*User, 0, len(ix.nicks))
	for _, u := range ix.nicks {
		out = append(out, u)
	}
	return out
}

// ChannelMemberUsers resolves every member of ch to its live *User, skipping
// any folded nick whose User somehow isn't bound (shouldn't happen under the
// membership-symmetry invariant, but tolerated defensively since this is a
// read path used for broadcast).
func (ix *Index) ChannelMemberUsers(ch *Channel) []*User {
	out := make([]*User, 0, len(ch.Members))
	for folded := range ch.Members {
		if u, ok := ix.nicks[folded]; ok {
			out = append(out, u)
		}
	}
	return out
}

// CommonChannelUsers returns every distinct User sharing at least one
// channel with u, not including u itself — the common-channels set used to
// scope PART/KICK/QUIT broadcasts.
func (ix *Index) CommonChannelUsers(u *User) []*User {
	seen := make(map[string]struct{})
	var out []*User
	for chName := range u.ChannelNames {
		ch, ok := ix.channels[chName]
		if !ok {
			continue
		}
		for _, e := range ch.Members {
			other := ix.nicks[casemap.Fold(e.Nick)]
			if other == nil || other == u {
				continue
			}
			key := other.FoldedNick()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, other)
		}
	}
	return out
}
