package command

import (
	"strings"
	"testing"
)

func TestPrivmsgToNickDeliversAndRepliesAway(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	bob.AwayMessage = "gone fishing"

	got := handlePrivmsg(srv, alice, []string{"bob", "hi there"})
	if got != Success {
		t.Fatalf("expected Success, got %v", got)
	}
	if !strings.Contains(string(bob.SendQ), "PRIVMSG bob :hi there") {
		t.Fatalf("expected bob to receive the message, got %q", string(bob.SendQ))
	}
	if !strings.Contains(lastLine(alice), " 301 ") {
		t.Fatalf("expected an away reply to alice, got %q", lastLine(alice))
	}
}

func TestPrivmsgToUnknownNick(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")

	got := handlePrivmsg(srv, alice, []string{"ghost", "hi"})
	if got != Success {
		t.Fatalf("expected Success (LoopCall itself never fails), got %v", got)
	}
	if !strings.Contains(lastLine(alice), " 401 ") {
		t.Fatalf("expected a no-such-nick reply, got %q", lastLine(alice))
	}
}

func TestPrivmsgEmptyTextRejected(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")

	got := handlePrivmsg(srv, alice, []string{"bob", ""})
	if got != Invalid {
		t.Fatalf("expected Invalid for empty text, got %v", got)
	}
	if !strings.Contains(lastLine(alice), " 412 ") {
		t.Fatalf("expected a no-text-to-send reply, got %q", lastLine(alice))
	}
}

func TestPrivmsgToChannelSkipsSender(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")
	bob := newRegisteredUser(t, srv, "bob")
	joinOne(srv, alice, "#chan", "")
	joinOne(srv, bob, "#chan", "")
	alice.SendQ = nil
	bob.SendQ = nil

	handlePrivmsg(srv, alice, []string{"#chan", "hello room"})
	if !strings.Contains(string(bob.SendQ), "PRIVMSG #chan :hello room") {
		t.Fatalf("expected bob to get the channel message, got %q", string(bob.SendQ))
	}
	if len(alice.SendQ) != 0 {
		t.Fatalf("expected the sender to not receive their own message, got %q", string(alice.SendQ))
	}
}

func TestAwayTogglesUserMode(t *testing.T) {
	srv := newTestServer()
	alice := newRegisteredUser(t, srv, "alice")

	handleAway(srv, alice, []string{"lunch"})
	if !alice.IsAway() {
		t.Fatal("expected alice to be away")
	}
	handleAway(srv, alice, nil)
	if alice.IsAway() {
		t.Fatal("expected alice to no longer be away")
	}
}
