package state

import (
	"strings"
	"testing"
	"time"
)

func TestQueueLineAppendsCRLF(t *testing.T) {
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	if !u.QueueLine(":srv 001 alice :hi") {
		t.Fatal("expected the line to be queued")
	}
	if !strings.HasSuffix(string(u.SendQ), "\r\n") {
		t.Fatalf("expected CRLF suffix, got %q", u.SendQ)
	}
}

func TestQueueLineCapEnforced(t *testing.T) {
	u := NewUser(1, "10.0.0.1", time.Unix(1000, 0))
	u.SetSendQLimit(16)
	if !u.QueueLine("short") {
		t.Fatal("expected a line under the cap to be queued")
	}
	if u.QueueLine("this line is far too long for the cap") {
		t.Fatal("expected the oversized line to be rejected")
	}
	if !u.SendQError {
		t.Fatal("expected SendQError set after a cap overrun")
	}
}
