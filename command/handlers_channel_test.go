package command

import (
	"strings"
	"testing"
	"time"

	"github.com/m-lab/ircd/modes"
	"github.com/m-lab/ircd/state"
)

func TestJoinCreatesChannelAndGrantsOp(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")

	if got := handleJoin(srv, alice, []string{"#chan"}); got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	ch := srv.Index.Channel("#chan")
	if ch == nil {
		t.Fatal("expected the channel to be created")
	}
	mem := ch.MembershipOf(alice)
	if mem == nil || mem.HighestRank() < modes.StatusOp.Rank {
		t.Fatal("expected the channel creator to be granted op")
	}
	if !strings.Contains(lastLine(alice), " 366 ") {
		t.Fatalf("expected end-of-names numeric, got %q", string(alice.SendQ))
	}
}

func TestJoinSecondMemberBroadcastIncludesSelfOnce(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	alice.SendQ = nil

	joinOne(srv, bob, "#chan", "")
	if !strings.Contains(string(alice.SendQ), "JOIN :#chan") {
		t.Fatalf("expected alice to see bob's JOIN, got %q", string(alice.SendQ))
	}
	joinCount := strings.Count(string(bob.SendQ), "JOIN :#chan")
	if joinCount != 1 {
		t.Fatalf("expected bob to see exactly one JOIN line for himself, got %d", joinCount)
	}
}

func TestJoinDeniedByBan(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	ch := srv.Index.Channel("#chan")
	ch.Bans = append(ch.Bans, state.ListEntry{Mask: state.NormalizeMask("bob!*@*"), Setter: "alice", SetTime: time.Unix(1000, 0)})

	joinOne(srv, bob, "#chan", "")
	if !strings.Contains(lastLine(bob), " 474 ") {
		t.Fatalf("expected 474 ban reply, got %q", lastLine(bob))
	}
	if ch.IsMember(bob) {
		t.Fatal("expected bob to be refused membership")
	}
}

func TestPartRemovesMembershipAndBroadcasts(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	joinOne(srv, bob, "#chan", "")
	alice.SendQ = nil

	partOne(srv, bob, "#chan", "done")
	ch := srv.Index.Channel("#chan")
	if ch.IsMember(bob) {
		t.Fatal("expected bob to no longer be a member")
	}
	if !strings.Contains(string(alice.SendQ), "PART #chan :done") {
		t.Fatalf("expected alice to see bob's PART, got %q", string(alice.SendQ))
	}
}

func TestKickRequiresOpRank(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	joinOne(srv, bob, "#chan", "")

	got := handleKick(srv, bob, []string{"#chan", "alice"})
	if got != Invalid {
		t.Fatalf("expected Invalid for a non-op KICK, got %v", got)
	}
	if !strings.Contains(lastLine(bob), " 482 ") {
		t.Fatalf("expected 482 reply, got %q", lastLine(bob))
	}
	ch := srv.Index.Channel("#chan")
	if !ch.IsMember(alice) {
		t.Fatal("alice should not have been kicked")
	}
}

func TestKickByOpRemovesTarget(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	joinOne(srv, bob, "#chan", "")

	got := handleKick(srv, alice, []string{"#chan", "bob", "out"})
	if got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	ch := srv.Index.Channel("#chan")
	if ch.IsMember(bob) {
		t.Fatal("expected bob to be kicked")
	}
}

func TestTopicSetAndQuery(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	joinOne(srv, alice, "#chan", "")
	alice.SendQ = nil

	if got := handleTopic(srv, alice, []string{"#chan", "new topic"}); got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	ch := srv.Index.Channel("#chan")
	if ch.Topic != "new topic" {
		t.Fatalf("expected topic to be set, got %q", ch.Topic)
	}

	alice.SendQ = nil
	if got := handleTopic(srv, alice, []string{"#chan"}); got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	if !strings.Contains(lastLine(alice), " 332 ") {
		t.Fatalf("expected a topic reply, got %q", lastLine(alice))
	}
}

func TestChannelModeApplyAndQuery(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	joinOne(srv, alice, "#chan", "")
	alice.SendQ = nil

	if got := handleMode(srv, alice, []string{"#chan", "+m"}); got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	ch := srv.Index.Channel("#chan")
	bit, _ := modes.BitFor('m')
	if ch.ModeBits&bit == 0 {
		t.Fatal("expected +m to be applied")
	}
	if !strings.Contains(string(alice.SendQ), "MODE #chan +m") {
		t.Fatalf("expected a MODE echo, got %q", string(alice.SendQ))
	}
}
