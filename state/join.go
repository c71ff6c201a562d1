package state

import (
	"time"

	"github.com/m-lab/ircd/modes"
)

// JoinDenyReason explains why a JoinChecks call refused a join, matching
// the numeric reply each case produces.
type JoinDenyReason int

const (
	JoinOK JoinDenyReason = iota
	JoinAlreadyMember
	JoinBadKey       // 475
	JoinInviteOnly   // 473
	JoinLimitReached // 471
	JoinBanned       // 474
)

// JoinChecks runs the ordered checks for a JOIN to an existing channel:
// already-member, key, invite, limit, ban
// (except-aware). u.Invites and ch's invex list are both consulted for
// the invite-only case; a hook wanting to force a decision should act on
// the result rather than being threaded through here, keeping this
// function a pure, hook-free predicate.
func JoinChecks(ch *Channel, u *User, key string) JoinDenyReason {
	if ch.IsMember(u) {
		return JoinAlreadyMember
	}

	if ch.ModeBits&modes.BitKey != 0 && ch.Key != "" && ch.Key != key {
		return JoinBadKey
	}

	if ch.ModeBits&modes.BitInviteOnly != 0 {
		invited := false
		if _, ok := u.Invites[ch.FoldedName()]; ok {
			invited = true
		}
		if !invited && ch.MatchInvex(u.Mask(), u.IP) {
			invited = true
		}
		if !invited {
			return JoinInviteOnly
		}
	}

	if ch.ModeBits&modes.BitLimit != 0 && ch.Limit > 0 && len(ch.Members) >= ch.Limit {
		return JoinLimitReached
	}

	if ch.MatchBan(u.Mask(), u.IP) {
		return JoinBanned
	}

	return JoinOK
}

// Join performs the join once JoinChecks (or an overriding hook decision)
// has cleared: creates the channel if it
// doesn't exist, grants op to the first member, adds u, and clears any
// pending invite for this channel. It returns the Channel and whether it
// was newly created, matching Index.GetOrCreateChannel's signature.
func Join(ix *Index, name string, u *User, now time.Time) (*Channel, bool) {
	ch, created := ix.GetOrCreateChannel(name, now)
	initialRank := 0
	if created {
		initialRank = modes.StatusOp.Rank
	}
	ch.AddMember(u, initialRank, now)
	delete(u.Invites, ch.FoldedName())
	return ch, created
}

// Part removes u from ch, destroying the channel if it's now empty. The
// caller is responsible for broadcasting the PART to the channel's members,
// Index.ChannelMemberUsers(ch) (computed before this call, since Part
// itself removes u from the channel).
func Part(ix *Index, ch *Channel, u *User) {
	ch.RemoveMember(u)
	ix.DestroyChannelIfEmpty(ch)
}

// Quit removes u from every channel it belongs to, destroying any that
// become empty. It does not touch the Nick Index; callers also need
// Index.UnbindNick.
func Quit(ix *Index, u *User) {
	for chName := range u.ChannelNames {
		ch := ix.Channel(chName)
		if ch == nil {
			continue
		}
		ch.RemoveMember(u)
		ix.DestroyChannelIfEmpty(ch)
	}
}
