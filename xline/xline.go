// Package xline implements the five access-control ban/exemption line
// kinds (K, G, Z, Q, E): per-kind storage of permanent entries plus a
// duration-sorted vector of temporary entries, mask matching, and
// background expiry.
//
// The two-container-per-kind shape (a permanent list, a second container
// that gets swapped/rebuilt each cycle) follows a "current/previous" split
// otherwise used to track connection state across polling cycles; here the
// second container is kept sorted by expiry instead of being a generation
// snapshot.
package xline

import (
	"sort"
	"strings"
	"time"

	"github.com/m-lab/ircd/glob"
	"github.com/m-lab/ircd/metrics"
)

// Kind identifies one of the five line types.
type Kind string

// The five line kinds.
const (
	K Kind = "K" // user@host, local ident@host
	G Kind = "G" // user@host, any ident@host
	Z Kind = "Z" // IP glob/CIDR
	Q Kind = "Q" // nick glob
	E Kind = "E" // user@host, exemption against K/G/Z
)

// Entry is one ban or exemption.
type Entry struct {
	Kind     Kind
	Mask     string
	Setter   string
	Reason   string
	SetTime  time.Time
	Duration time.Duration // 0 = permanent
}

// Expiry returns the time at which a temporary entry should be removed. It
// is meaningless for permanent entries (Duration == 0).
func (e *Entry) Expiry() time.Time {
	return e.SetTime.Add(e.Duration)
}

// kindStore holds one Kind's permanent and temporary entries.
type kindStore struct {
	permanent []*Entry // unordered
	temp      []*Entry // sorted ascending by Expiry()
}

// Store holds all five kinds of line. The zero Store is not usable; use
// New.
type Store struct {
	kinds map[Kind]*kindStore
}

// New creates an empty Store with all five kinds initialized.
func New() *Store {
	s := &Store{kinds: make(map[Kind]*kindStore, 5)}
	for _, k := range []Kind{K, G, Z, Q, E} {
		s.kinds[k] = &kindStore{}
	}
	return s
}

// Add inserts or replaces an entry. Add is idempotent on mask: an existing
// entry of the same kind and mask is removed before the new one is added.
func (s *Store) Add(e *Entry) {
	ks := s.kinds[e.Kind]
	if ks == nil {
		return
	}
	s.Remove(e.Kind, e.Mask)
	if e.Duration == 0 {
		ks.permanent = append(ks.permanent, e)
		return
	}
	ks.temp = append(ks.temp, e)
	sort.Slice(ks.temp, func(i, j int) bool {
		return ks.temp[i].Expiry().Before(ks.temp[j].Expiry())
	})
}

// Remove deletes the entry of the given kind and mask, if present. It
// reports whether an entry was removed.
func (s *Store) Remove(kind Kind, mask string) bool {
	ks := s.kinds[kind]
	if ks == nil {
		return false
	}
	removed := false
	for i, e := range ks.permanent {
		if strings.EqualFold(e.Mask, mask) {
			ks.permanent = append(ks.permanent[:i], ks.permanent[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		return true
	}
	for i, e := range ks.temp {
		if strings.EqualFold(e.Mask, mask) {
			ks.temp = append(ks.temp[:i], ks.temp[i+1:]...)
			return true
		}
	}
	return false
}

// Match returns the first entry of kind whose mask matches target, or nil.
// Permanent entries are checked before temporary ones; permanent entries
// in the order they were added, temporary ones soonest-expiring first.
// target is matched both textually (glob) and, for a
// CIDR mask against an IP-shaped target (Z-lines), numerically.
func (s *Store) Match(kind Kind, target string) *Entry {
	ks := s.kinds[kind]
	if ks == nil {
		return nil
	}
	for _, e := range ks.permanent {
		if glob.MatchHost(e.Mask, target, target) {
			return e
		}
	}
	for _, e := range ks.temp {
		if glob.MatchHost(e.Mask, target, target) {
			return e
		}
	}
	return nil
}

// List returns every entry of kind, permanent first, for display commands
// like STATS.
func (s *Store) List(kind Kind) []*Entry {
	ks := s.kinds[kind]
	if ks == nil {
		return nil
	}
	out := make([]*Entry, 0, len(ks.permanent)+len(ks.temp))
	out = append(out, ks.permanent...)
	out = append(out, ks.temp...)
	return out
}

// Expire removes every temporary entry, of any kind, whose expiry has
// passed as of now, invoking notify once per expired entry so operators can
// be told. The temp vector is sorted ascending by expiry, so popping from
// the front is sufficient.
func (s *Store) Expire(now time.Time, notify func(*Entry)) {
	for kind, ks := range s.kinds {
		i := 0
		for i < len(ks.temp) && !ks.temp[i].Expiry().After(now) {
			expired := ks.temp[i]
			i++
			metrics.XlineExpireCount.WithLabelValues(string(kind)).Inc()
			if notify != nil {
				notify(expired)
			}
		}
		if i > 0 {
			ks.temp = ks.temp[i:]
		}
	}
}

// CheckConnect evaluates K/G/Z/Q in that order against a connecting user's
// identity, honoring E-line exemption first: if an E entry matches, every
// other kind is skipped. It returns the matching deny entry, or nil if the
// connection is clear.
func CheckConnect(s *Store, identHost, ip, nick string) *Entry {
	if s.Match(E, identHost) != nil {
		return nil
	}
	if e := s.Match(K, identHost); e != nil {
		return e
	}
	if e := s.Match(G, identHost); e != nil {
		return e
	}
	if e := s.Match(Z, ip); e != nil {
		return e
	}
	if e := s.Match(Q, nick); e != nil {
		return e
	}
	return nil
}
