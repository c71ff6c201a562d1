package state

import (
	"testing"
	"time"
)

func TestBindNickRejectsDuplicates(t *testing.T) {
	ix := NewIndex()
	a := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	a.Nick = "alice"
	b := NewUser(2, "10.0.0.2", time.Unix(1000, 0))
	b.Nick = "Alice"

	if err := ix.BindNick(a); err != nil {
		t.Fatalf("unexpected error binding first nick: %v", err)
	}
	if err := ix.BindNick(b); err != ErrNickInUse {
		t.Fatalf("expected ErrNickInUse for a case-folded collision, got %v", err)
	}
	if ix.UserByNick("ALICE") != a {
		t.Fatal("expected case-insensitive lookup to find the bound user")
	}
}

func TestRenameMovesAcrossChannels(t *testing.T) {
	ix := NewIndex()
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	if err := ix.BindNick(u); err != nil {
		t.Fatal(err)
	}
	ch, _ := ix.GetOrCreateChannel("#test", time.Unix(1000, 0))
	ch.AddMember(u, 0, time.Unix(1000, 0))

	if err := ix.Rename(u, "alicia"); err != nil {
		t.Fatalf("unexpected rename error: %v", err)
	}
	if ix.UserByNick("alicia") != u {
		t.Fatal("expected new nick bound in the Nick Index")
	}
	if ix.UserByNick("alice") != nil {
		t.Fatal("expected old nick no longer bound")
	}
	if !ch.IsMember(u) {
		t.Fatal("expected membership preserved across rename")
	}
}

func TestGetOrCreateChannelIdempotent(t *testing.T) {
	ix := NewIndex()
	ch1, created1 := ix.GetOrCreateChannel("#test", time.Unix(1000, 0))
	if !created1 {
		t.Fatal("expected created=true on first call")
	}
	ch2, created2 := ix.GetOrCreateChannel("#TEST", time.Unix(2000, 0))
	if created2 {
		t.Fatal("expected created=false for a case-folded duplicate")
	}
	if ch1 != ch2 {
		t.Fatal("expected the same channel for a case-folded duplicate name")
	}
}

func TestDestroyChannelIfEmpty(t *testing.T) {
	ix := NewIndex()
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	ch, _ := ix.GetOrCreateChannel("#test", time.Unix(1000, 0))
	ch.AddMember(u, 0, time.Unix(1000, 0))

	ix.DestroyChannelIfEmpty(ch)
	if ix.Channel("#test") == nil {
		t.Fatal("non-empty channel should not have been destroyed")
	}

	ch.RemoveMember(u)
	ix.DestroyChannelIfEmpty(ch)
	if ix.Channel("#test") != nil {
		t.Fatal("expected empty channel to be destroyed")
	}
}

func TestCommonChannelUsers(t *testing.T) {
	ix := NewIndex()
	now := time.Unix(1000, 0)
	a := NewUser(1, "10.0.0.1", now)
	a.Nick = "alice"
	b := NewUser(2, "10.0.0.2", now)
	b.Nick = "bob"
	c := NewUser(3, "10.0.0.3", now)
	c.Nick = "carol"

	ix.BindNick(a)
	ix.BindNick(b)
	ix.BindNick(c)

	ch1, _ := ix.GetOrCreateChannel("#one", now)
	ch1.AddMember(a, 0, now)
	ch1.AddMember(b, 0, now)
	ch2, _ := ix.GetOrCreateChannel("#two", now)
	ch2.AddMember(a, 0, now)
	ch2.AddMember(c, 0, now)

	common := ix.CommonChannelUsers(a)
	if len(common) != 2 {
		t.Fatalf("expected 2 common-channel users for alice, got %d", len(common))
	}
}
