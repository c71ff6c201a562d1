package glob

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*!*@*", "alice!al@example.org", true},
		{"*!*@example.org", "alice!al@example.org", true},
		{"*!*@example.org", "alice!al@other.net", false},
		{"Alice!*@*", "alice!al@example.org", true},
		{"a?ice!*@*", "alice!al@example.org", true},
		{"bob!*@*", "alice!al@example.org", false},
		{"*.example.org", "host.example.org", true},
		{"*.example.org", "example.org", false},
		{"", "", true},
		{"*", "anything at all", true},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.s); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}
