package state

import (
	"sort"
	"strings"
	"time"

	"github.com/m-lab/ircd/casemap"
	"github.com/m-lab/ircd/glob"
	"github.com/m-lab/ircd/modes"
)

// statusBitForRank converts a modes.Def.Rank (status modes only) into the
// bit stored in a Membership's Status field.
func statusBitForRank(rank int) modeStatusBits {
	return modeStatusBits(1 << uint(rank-1))
}

// HasStatus reports whether the membership carries the given status
// letter (one of q/a/o/h/v).
func (m *Membership) HasStatus(letter byte) bool {
	d, ok := modes.StatusLookup(letter)
	if !ok {
		return false
	}
	return m.Status&statusBitForRank(d.Rank) != 0
}

// HighestRank returns the numeric rank of the membership's highest status,
// or 0 if the member holds no status.
func (m *Membership) HighestRank() int {
	best := 0
	for _, d := range modes.StatusTable {
		if m.Status&statusBitForRank(d.Rank) != 0 && d.Rank > best {
			best = d.Rank
		}
	}
	return best
}

// setStatus sets or clears a status bit.
func (m *Membership) setStatus(rank int, on bool) {
	bit := statusBitForRank(rank)
	if on {
		m.Status |= bit
	} else {
		m.Status &^= bit
	}
}

// ListEntry is one ban/except/invex entry.
type ListEntry struct {
	Mask    string
	Setter  string
	SetTime time.Time
}

// Channel is the authoritative state for one channel. Its membership
// table is keyed by the member's folded nick; the User only stores the
// set of channel names it belongs to, so there is no pointer cycle
// between the two types.
type Channel struct {
	Name      string
	CreatedAt time.Time // TS

	Topic      string
	TopicSetBy string
	TopicSetAt time.Time

	ModeBits modes.Bit
	Key      string
	Limit    int

	Bans    []ListEntry
	Excepts []ListEntry
	Invex   []ListEntry

	// Members maps a folded nick to that member's Membership and the
	// user's current (unfolded) nick, for display.
	Members map[string]*memberEntry
}

type memberEntry struct {
	Nick       string
	Membership *Membership
}

// NewChannel creates a channel with the given name and creation timestamp.
func NewChannel(name string, createdAt time.Time) *Channel {
	return &Channel{
		Name:      name,
		CreatedAt: createdAt,
		Members:   make(map[string]*memberEntry),
	}
}

// FoldedName returns the case-folded channel name, for indexing.
func (c *Channel) FoldedName() string { return casemap.Fold(c.Name) }

// Empty reports whether the channel has no members: a channel is
// destroyed when the last member parts and no persistence mode is set;
// persistence modes are a module concern out of core scope, so Empty
// alone gates destruction here.
func (c *Channel) Empty() bool { return len(c.Members) == 0 }

// AddMember adds u to the channel with the given initial status and
// returns the new Membership.
func (c *Channel) AddMember(u *User, initialRank int, now time.Time) *Membership {
	mem := &Membership{Since: now}
	if initialRank > 0 {
		mem.setStatus(initialRank, true)
	}
	c.Members[u.FoldedNick()] = &memberEntry{Nick: u.Nick, Membership: mem}
	u.ChannelNames[c.FoldedName()] = struct{}{}
	return mem
}

// RemoveMember removes u from the channel.
func (c *Channel) RemoveMember(u *User) {
	delete(c.Members, u.FoldedNick())
	delete(u.ChannelNames, c.FoldedName())
}

// MembershipOf returns u's Membership on this channel, or nil.
func (c *Channel) MembershipOf(u *User) *Membership {
	e, ok := c.Members[u.FoldedNick()]
	if !ok {
		return nil
	}
	return e.Membership
}

// IsMember reports whether u currently belongs to the channel.
func (c *Channel) IsMember(u *User) bool {
	_, ok := c.Members[u.FoldedNick()]
	return ok
}

// renameMember re-keys an existing member's entry from oldFolded to the
// folded form of newNick and updates its display nick, keeping the same
// Membership. Index.Rename calls it for every channel the user belongs to.
func (c *Channel) renameMember(oldFolded, newNick string) {
	e, ok := c.Members[oldFolded]
	if !ok {
		return
	}
	delete(c.Members, oldFolded)
	e.Nick = newNick
	c.Members[casemap.Fold(newNick)] = e
}

// NamesReply returns the NAMES-list tokens for this channel, each prefixed
// with its highest status's display prefix if any, sorted for determinism.
func (c *Channel) NamesReply() []string {
	names := make([]string, 0, len(c.Members))
	for _, e := range c.Members {
		prefix := byte(0)
		bestRank := 0
		for _, d := range modes.StatusTable {
			if e.Membership.Status&statusBitForRank(d.Rank) != 0 && d.Rank > bestRank {
				bestRank = d.Rank
				prefix = modes.StatusPrefix(d.Letter)
			}
		}
		if prefix != 0 {
			names = append(names, string(prefix)+e.Nick)
		} else {
			names = append(names, e.Nick)
		}
	}
	sort.Strings(names)
	return names
}

// splitMask splits a normalized nick!user@host mask into its three parts.
func splitMask(mask string) (nick, user, host string) {
	bang := strings.IndexByte(mask, '!')
	at := strings.IndexByte(mask, '@')
	if bang < 0 || at < 0 || at < bang {
		return mask, "", ""
	}
	return mask[:bang], mask[bang+1 : at], mask[at+1:]
}

// maskMatches reports whether a nick!user@host pattern matches a target's
// nick/user/host, with the host component also checked numerically
// against ip when pattern's host part is a CIDR.
func maskMatches(pattern, nick, user, host, ip string) bool {
	pn, pu, ph := splitMask(pattern)
	return glob.Match(pn, nick) && glob.Match(pu, user) && glob.MatchHost(ph, host, ip)
}

// MatchBan reports whether mask (nick!user@host) with the given IP is
// matched by a ban and not preempted by an except: except entries, if
// present, preempt ban entries. A ban's host component may be a CIDR,
// matched numerically against ip as well as textually against the host.
func (c *Channel) MatchBan(mask, ip string) bool {
	nick, user, host := splitMask(mask)
	for _, e := range c.Excepts {
		if maskMatches(e.Mask, nick, user, host, ip) {
			return false
		}
	}
	for _, e := range c.Bans {
		if maskMatches(e.Mask, nick, user, host, ip) {
			return true
		}
	}
	return false
}

// MatchInvex reports whether mask/ip is covered by an invite-exception,
// bypassing +i's join check.
func (c *Channel) MatchInvex(mask, ip string) bool {
	nick, user, host := splitMask(mask)
	for _, e := range c.Invex {
		if maskMatches(e.Mask, nick, user, host, ip) {
			return true
		}
	}
	return false
}

// NormalizeMask upgrades a bare nick or partial mask to full
// nick!user@host form. Masks that already contain '!' and '@' pass
// through unchanged.
func NormalizeMask(raw string) string {
	if strings.Contains(raw, "!") && strings.Contains(raw, "@") {
		return raw
	}
	if !strings.Contains(raw, "@") {
		if !strings.Contains(raw, "!") {
			raw += "!*@*"
		} else {
			raw += "@*"
		}
		return raw
	}
	// Has '@' but no '!': fill in a wildcard nick!user.
	return "*!" + raw
}

func addListEntry(list *[]ListEntry, mask, setter string, now time.Time) bool {
	mask = NormalizeMask(mask)
	for _, e := range *list {
		if casemap.Fold(e.Mask) == casemap.Fold(mask) {
			return false // already present; redundant
		}
	}
	*list = append(*list, ListEntry{Mask: mask, Setter: setter, SetTime: now})
	return true
}

func removeListEntry(list *[]ListEntry, mask string) bool {
	folded := casemap.Fold(NormalizeMask(mask))
	for i, e := range *list {
		if casemap.Fold(e.Mask) == folded {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
