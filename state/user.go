// Package state owns the authoritative in-memory model: Users, Channels,
// Memberships, and the Nick/Channel indexes over them. This is
// deliberately one package — a single server state value threaded through
// every handler — rather than a tangle of packages that would otherwise
// need a User->Channel->User reference cycle.
//
// The per-connection bookkeeping fields (recvQ/sendQ, flood counters,
// registration phase) generalize a per-connection struct that tracked
// id/timestamps/expiration/writer the same way.
package state

import (
	"strings"
	"time"

	"github.com/m-lab/ircd/casemap"
	"github.com/m-lab/ircd/connid"
)

// RegPhase is the bitmask of outstanding registration requirements. A User
// is FULLY_REGISTERED only when every bit has cleared.
type RegPhase uint8

const (
	WaitNick RegPhase = 1 << iota
	WaitUser
	WaitDNS
)

// Pending reports whether any registration requirement is still
// outstanding.
func (p RegPhase) Pending() bool { return p != 0 }

// Membership is the join between a User and a Channel, carrying a status
// bitmask and a join timestamp. Only the Channel's member table holds a
// pointer to it, keyed by the member's folded nick, so there is no
// ownership cycle: the Channel owns the map of Memberships, and the User's
// ChannelNames is just a set of keys into the ChannelIndex.
type Membership struct {
	Status  modeStatusBits
	Since   time.Time
}

// modeStatusBits is a small bitmask over status mode letters (owner,
// admin, op, halfop, voice); kept unexported since only this package's
// rank-comparison logic needs to see the Bit encoding.
type modeStatusBits uint8

// User is a single client connection's state.
type User struct {
	ConnID string // from connid.Next(), matches DNS completions to this connection

	Fd int // raw file descriptor; owned by netio, observed here for lookups

	ConnectedAt    time.Time
	LastActivity   time.Time

	Nick       string
	Ident      string
	RealHost   string
	DisplayHost string
	IP         string
	GECOS      string
	ServerName string // server-of-origin; set to this server's name when registration completes
	OperType   string // "" if not oper

	UserModes UserModeBits

	Phase RegPhase

	// RecvQ/SendQ are raw byte buffers. netio appends/drains them; the
	// line codec (netio.ExtractLines) scans RecvQ for complete lines.
	RecvQ []byte
	SendQ []byte
	SendQError bool

	FloodWindowStart time.Time
	LinesInWindow    int
	Penalty          int

	// Invites maps a case-folded channel name to the time the invite
	// expires (zero Time = does not expire on its own; an invite is
	// cleared when the user JOINs that channel).
	Invites map[string]time.Time

	// ChannelNames is the set of case-folded channel names this user is a
	// member of; the authoritative per-channel status lives in that
	// Channel's Members map, looked up by this user's folded nick.
	ChannelNames map[string]struct{}

	AwayMessage string

	LastPingSent time.Time
	LastPong     time.Time

	FloodLimit  int
	FloodWindowMS int
	MaxChannels int

	sendQLimit int
}

// UserModeBits is a bitmask of user modes (+i invisible, +w wallops, +o
// oper, +x host-hiding, etc.)
type UserModeBits uint32

const (
	UserModeInvisible UserModeBits = 1 << iota
	UserModeWallops
	UserModeOper
	UserModeHostHiding
	UserModeAway // set and cleared by AWAY alongside AwayMessage; IsAway reads AwayMessage
)

// NewUser creates a freshly-accepted, unregistered User.
func NewUser(fd int, ip string, now time.Time) *User {
	return &User{
		ConnID:           connid.Next(),
		Fd:               fd,
		ConnectedAt:      now,
		LastActivity:     now,
		IP:               ip,
		ServerName:       "",
		Phase:            WaitNick | WaitUser | WaitDNS,
		Invites:          make(map[string]time.Time),
		ChannelNames:     make(map[string]struct{}),
		FloodWindowStart: now,
	}
}

// FoldedNick returns the case-folded form of the user's current nick, for
// indexing.
func (u *User) FoldedNick() string { return casemap.Fold(u.Nick) }

// Registered reports whether the user has completed registration.
func (u *User) Registered() bool { return u.Phase == 0 }

// Mask returns the nick!user@host form used as message prefixes and ban
// targets.
func (u *User) Mask() string {
	host := u.DisplayHost
	if host == "" {
		host = u.RealHost
	}
	if host == "" {
		host = u.IP
	}
	return u.Nick + "!" + u.Ident + "@" + host
}

// IdentHost returns "ident@host" as used for K/G/E-line matching.
func (u *User) IdentHost() string {
	host := u.RealHost
	if host == "" {
		host = u.IP
	}
	return u.Ident + "@" + host
}

// IsAway reports whether the user has an away message set.
func (u *User) IsAway() bool { return u.AwayMessage != "" }

// IsOper reports whether the user holds any operator privilege.
func (u *User) IsOper() bool { return u.OperType != "" }

// CheckFlood advances the rolling flood window and reports whether the
// user has now exceeded their connect class's flood_limit. now is the
// time of the line just processed.
func (u *User) CheckFlood(now time.Time) bool {
	threshold := time.Duration(u.FloodWindowMS) * time.Millisecond
	if threshold <= 0 {
		threshold = 2 * time.Second
	}
	if now.After(u.FloodWindowStart.Add(threshold)) {
		u.FloodWindowStart = now
		u.LinesInWindow = 0
	}
	u.LinesInWindow++
	limit := u.FloodLimit
	if limit <= 0 {
		limit = 20
	}
	return u.LinesInWindow > limit
}

// AddPenalty adds a dispatched command's penalty cost to the user's
// running total. Nothing reads the total back: it neither throttles nor
// disconnects; flood disconnects come from CheckFlood.
func (u *User) AddPenalty(ms int) { u.Penalty += ms }

// ModeString renders the user's mode bitmask as a "+abc" string for the
// welcome burst and MODE replies.
func (u *User) ModeString() string {
	var b strings.Builder
	b.WriteByte('+')
	if u.UserModes&UserModeInvisible != 0 {
		b.WriteByte('i')
	}
	if u.UserModes&UserModeWallops != 0 {
		b.WriteByte('w')
	}
	if u.UserModes&UserModeOper != 0 {
		b.WriteByte('o')
	}
	if u.UserModes&UserModeHostHiding != 0 {
		b.WriteByte('x')
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}
