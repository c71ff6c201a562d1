package state

import (
	"testing"
	"time"

	"github.com/m-lab/ircd/modes"
)

func TestJoinChecksOrderAlreadyMemberFirst(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Ident = "al"
	ch.AddMember(u, 0, time.Unix(1000, 0))
	ch.ModeBits |= modes.BitKey
	ch.Key = "secret"

	if got := JoinChecks(ch, u, "wrong"); got != JoinAlreadyMember {
		t.Fatalf("expected JoinAlreadyMember, got %v", got)
	}
}

func TestJoinChecksBadKey(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	ch.ModeBits |= modes.BitKey
	ch.Key = "secret"
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Ident = "al"

	if got := JoinChecks(ch, u, "wrong"); got != JoinBadKey {
		t.Fatalf("expected JoinBadKey, got %v", got)
	}
	if got := JoinChecks(ch, u, "secret"); got != JoinOK {
		t.Fatalf("expected JoinOK with correct key, got %v", got)
	}
}

func TestJoinChecksInviteOnly(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	ch.ModeBits |= modes.BitInviteOnly
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Ident = "al"

	if got := JoinChecks(ch, u, ""); got != JoinInviteOnly {
		t.Fatalf("expected JoinInviteOnly, got %v", got)
	}
	u.Invites[ch.FoldedName()] = time.Time{}
	if got := JoinChecks(ch, u, ""); got != JoinOK {
		t.Fatalf("expected JoinOK once invited, got %v", got)
	}
}

func TestJoinChecksLimit(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	ch.ModeBits |= modes.BitLimit
	ch.Limit = 1
	existing := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	existing.Nick = "bob"
	ch.AddMember(existing, 0, time.Unix(1000, 0))

	u := NewUser(2, "10.0.0.2", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Ident = "al"
	if got := JoinChecks(ch, u, ""); got != JoinLimitReached {
		t.Fatalf("expected JoinLimitReached, got %v", got)
	}
}

func TestJoinChecksBanned(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Ident = "al"
	u.RealHost = "evil.example.org"
	addListEntry(&ch.Bans, "*!*@evil.example.org", "op", time.Unix(1000, 0))

	if got := JoinChecks(ch, u, ""); got != JoinBanned {
		t.Fatalf("expected JoinBanned, got %v", got)
	}
}

func TestJoinCreatesChannelAndGrantsOp(t *testing.T) {
	ix := NewIndex()
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	u.Invites["#test"] = time.Time{}

	ch, created := Join(ix, "#test", u, time.Unix(1000, 0))
	if !created {
		t.Fatal("expected the first join to create the channel")
	}
	if !ch.MembershipOf(u).HasStatus('o') {
		t.Fatal("expected the channel creator to receive op status")
	}
	if _, stillInvited := u.Invites["#test"]; stillInvited {
		t.Fatal("expected the invite to be cleared on join")
	}
}

func TestJoinSecondMemberGetsNoStatus(t *testing.T) {
	ix := NewIndex()
	now := time.Unix(1000, 0)
	a := NewUser(1, "10.0.0.1", now)
	a.Nick = "alice"
	Join(ix, "#test", a, now)

	b := NewUser(2, "10.0.0.2", now)
	b.Nick = "bob"
	ch, created := Join(ix, "#test", b, now)
	if created {
		t.Fatal("expected the channel to already exist for the second joiner")
	}
	if ch.MembershipOf(b).HighestRank() != 0 {
		t.Fatal("expected the second joiner to receive no status")
	}
}

func TestPartDestroysEmptyChannel(t *testing.T) {
	ix := NewIndex()
	now := time.Unix(1000, 0)
	u := NewUser(1, "10.0.0.1", now)
	u.Nick = "alice"
	ch, _ := Join(ix, "#test", u, now)

	Part(ix, ch, u)
	if ix.Channel("#test") != nil {
		t.Fatal("expected the channel to be destroyed once the last member parts")
	}
}

func TestQuitRemovesFromAllChannels(t *testing.T) {
	ix := NewIndex()
	now := time.Unix(1000, 0)
	u := NewUser(1, "10.0.0.1", now)
	u.Nick = "alice"
	Join(ix, "#one", u, now)
	Join(ix, "#two", u, now)

	Quit(ix, u)
	if ix.Channel("#one") != nil || ix.Channel("#two") != nil {
		t.Fatal("expected both channels destroyed after quit removed the only member")
	}
	if len(u.ChannelNames) != 0 {
		t.Fatal("expected the user's channel set cleared after quit")
	}
}
