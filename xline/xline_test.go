package xline

import (
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestAddRemoveRoundTrip(t *testing.T) {
	s := New()
	e := &Entry{Kind: K, Mask: "*!*@example.org", Setter: "oper", Reason: "test"}
	s.Add(e)
	if s.Match(K, "alice!al@example.org") == nil {
		t.Fatal("expected match after add")
	}
	if !s.Remove(K, "*!*@example.org") {
		t.Fatal("remove should report success")
	}
	if s.Match(K, "alice!al@example.org") != nil {
		t.Fatal("expected no match after remove")
	}
}

func TestAddIdempotentOnMask(t *testing.T) {
	s := New()
	s.Add(&Entry{Kind: K, Mask: "*@example.org", Reason: "first"})
	s.Add(&Entry{Kind: K, Mask: "*@example.org", Reason: "second"})
	if len(s.List(K)) != 1 {
		t.Fatalf("expected exactly one entry after re-add, got %d", len(s.List(K)))
	}
	if s.List(K)[0].Reason != "second" {
		t.Fatalf("expected the replacement entry, got reason %q", s.List(K)[0].Reason)
	}
}

func TestTemporaryOrdering(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	s.Add(&Entry{Kind: G, Mask: "c@c", SetTime: base, Duration: 30 * time.Second})
	s.Add(&Entry{Kind: G, Mask: "a@a", SetTime: base, Duration: 10 * time.Second})
	s.Add(&Entry{Kind: G, Mask: "b@b", SetTime: base, Duration: 20 * time.Second})

	list := s.List(G)
	for i := 1; i < len(list); i++ {
		if list[i-1].Expiry().After(list[i].Expiry()) {
			t.Fatalf("temp entries not sorted ascending by expiry: %v", list)
		}
	}
}

func TestExpire(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	s.Add(&Entry{Kind: Z, Mask: "1.2.3.4", SetTime: base, Duration: 2 * time.Second})

	var expired []*Entry
	s.Expire(base.Add(1*time.Second), func(e *Entry) { expired = append(expired, e) })
	if len(expired) != 0 {
		t.Fatal("entry should not have expired yet")
	}
	if s.Match(Z, "1.2.3.4") == nil {
		t.Fatal("entry should still match before expiry")
	}

	s.Expire(base.Add(2*time.Second), func(e *Entry) { expired = append(expired, e) })
	if len(expired) != 1 {
		t.Fatalf("expected exactly one expired entry, got %d", len(expired))
	}
	if s.Match(Z, "1.2.3.4") != nil {
		t.Fatal("entry should no longer match after expiry")
	}
}

func TestExceptionBypassesK(t *testing.T) {
	s := New()
	s.Add(&Entry{Kind: K, Mask: "*@example.org"})
	s.Add(&Entry{Kind: E, Mask: "*@example.org"})
	if CheckConnect(s, "al@example.org", "10.0.0.1", "alice") != nil {
		t.Fatal("exempted connection should not be denied")
	}
}

func TestCheckConnectOrder(t *testing.T) {
	s := New()
	s.Add(&Entry{Kind: Q, Mask: "badnick"})
	if e := CheckConnect(s, "al@clean.example.org", "10.0.0.1", "badnick"); e == nil || e.Kind != Q {
		t.Fatalf("expected a Q-line match, got %v", e)
	}
}

func TestMatchCIDR(t *testing.T) {
	s := New()
	s.Add(&Entry{Kind: Z, Mask: "10.1.0.0/16"})
	if s.Match(Z, "10.1.2.3") == nil {
		t.Fatal("expected IP inside the CIDR to match")
	}
	if s.Match(Z, "10.2.2.3") != nil {
		t.Fatal("expected IP outside the CIDR not to match")
	}
}

func TestMatchReturnsTheAddedEntry(t *testing.T) {
	s := New()
	want := &Entry{Kind: G, Mask: "*!*@spammer.example.org", Setter: "oper1", Reason: "spamming", SetTime: time.Unix(1000, 0)}
	s.Add(want)

	got := s.Match(G, "bot!b@spammer.example.org")
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"0", 0},
		{"", 0},
		{"120", 120 * time.Second},
		{"1h", time.Hour},
		{"1d12h", 36 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if _, err := ParseDuration("garbage"); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}
