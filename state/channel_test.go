package state

import (
	"testing"
	"time"

	"github.com/m-lab/ircd/modes"
)

func TestAddRemoveMemberSymmetry(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	ch.AddMember(u, modes.StatusOp.Rank, time.Unix(1000, 0))

	if !ch.IsMember(u) {
		t.Fatal("expected alice to be a member after AddMember")
	}
	if _, ok := u.ChannelNames[ch.FoldedName()]; !ok {
		t.Fatal("expected channel name recorded on the user side")
	}
	mem := ch.MembershipOf(u)
	if mem == nil || !mem.HasStatus('o') {
		t.Fatal("expected op status from initial rank")
	}

	ch.RemoveMember(u)
	if ch.IsMember(u) {
		t.Fatal("expected alice to no longer be a member")
	}
	if _, ok := u.ChannelNames[ch.FoldedName()]; ok {
		t.Fatal("expected channel name removed on the user side too")
	}
}

func TestRenameMemberPreservesStatus(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.Nick = "alice"
	mem := ch.AddMember(u, modes.StatusOp.Rank, time.Unix(1000, 0))

	ch.renameMember(u.FoldedNick(), "alicia")
	u.Nick = "alicia"

	if !ch.IsMember(u) {
		t.Fatal("expected renamed user to still be a member under the new nick")
	}
	if got := ch.MembershipOf(u); got != mem {
		t.Fatal("expected the same Membership value after rename")
	}
}

func TestNamesReplyPrefixesHighestStatus(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	op := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	op.Nick = "opuser"
	ch.AddMember(op, modes.StatusOp.Rank, time.Unix(1000, 0))
	voice := NewUser(2, "10.0.0.2", time.Unix(1000, 0))
	voice.Nick = "voiceuser"
	ch.AddMember(voice, modes.StatusVoice.Rank, time.Unix(1000, 0))
	plain := NewUser(3, "10.0.0.3", time.Unix(1000, 0))
	plain.Nick = "plainuser"
	ch.AddMember(plain, 0, time.Unix(1000, 0))

	names := ch.NamesReply()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["@opuser"] || !found["+voiceuser"] || !found["plainuser"] {
		t.Fatalf("unexpected NamesReply output: %v", names)
	}
}

func TestMatchBanExceptPreempts(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	addListEntry(&ch.Bans, "*!*@evil.example.org", "op", time.Unix(1000, 0))
	if !ch.MatchBan("troll!t@evil.example.org", "10.0.0.9") {
		t.Fatal("expected ban to match")
	}
	addListEntry(&ch.Excepts, "*!*@evil.example.org", "op", time.Unix(1000, 0))
	if ch.MatchBan("troll!t@evil.example.org", "10.0.0.9") {
		t.Fatal("expected except to preempt the ban")
	}
}

func TestMatchBanCIDRHostComponent(t *testing.T) {
	ch := NewChannel("#test", time.Unix(1000, 0))
	addListEntry(&ch.Bans, "*!*@10.0.0.0/8", "op", time.Unix(1000, 0))
	if !ch.MatchBan("troll!t@10.5.6.7", "10.5.6.7") {
		t.Fatal("expected IP inside the CIDR host component to match")
	}
	if ch.MatchBan("clean!c@192.168.0.1", "192.168.0.1") {
		t.Fatal("expected IP outside the CIDR host component not to match")
	}
}

func TestNormalizeMask(t *testing.T) {
	cases := map[string]string{
		"alice":            "alice!*@*",
		"alice!al":         "alice!al@*",
		"host.example.org": "host.example.org!*@*",
		"al@host":          "*!al@host",
		"*!*@*":            "*!*@*",
	}
	for in, want := range cases {
		if got := NormalizeMask(in); got != want {
			t.Errorf("NormalizeMask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddListEntryRedundant(t *testing.T) {
	var bans []ListEntry
	if !addListEntry(&bans, "*!*@x", "op", time.Unix(1000, 0)) {
		t.Fatal("first add should report added")
	}
	if addListEntry(&bans, "*!*@x", "op2", time.Unix(2000, 0)) {
		t.Fatal("duplicate mask should be rejected as redundant")
	}
	if len(bans) != 1 {
		t.Fatalf("expected one ban entry, got %d", len(bans))
	}
}
