package ircmsg

import (
	"testing"

	"github.com/go-test/deep"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		line string
		want *Message
	}{
		{
			name: "simple command no params",
			line: "PING",
			want: &Message{Command: "PING"},
		},
		{
			name: "middle params followed by trailing",
			line: "USER guest 0 * :Ronnie Reagan",
			want: &Message{Command: "USER", Params: []string{"guest", "0", "*", "Ronnie Reagan"}},
		},
		{
			name: "prefix is recorded but does not affect params",
			line: ":Angel!wings@irc.org PRIVMSG Wiz :Are you receiving this message?",
			want: &Message{
				Prefix:  "Angel!wings@irc.org",
				Command: "PRIVMSG",
				Params:  []string{"Wiz", "Are you receiving this message?"},
			},
		},
		{
			name: "comma-separated targets stay a single middle param",
			line: "JOIN #channel1,#channel2",
			want: &Message{Command: "JOIN", Params: []string{"#channel1,#channel2"}},
		},
		{
			name: "command is case-folded to upper",
			line: "nick Alice",
			want: &Message{Command: "NICK", Params: []string{"Alice"}},
		},
		{
			name: "colon-only trailing with nothing before it",
			line: "TOPIC #chan :",
			want: &Message{Command: "TOPIC", Params: []string{"#chan", ""}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Parse(c.line)
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", c.line, err)
			}
			if diff := deep.Equal(got, c.want); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, line := range []string{"", ":onlyaprefix", ":   "} {
		if _, err := Parse(line); err != ErrEmpty {
			t.Errorf("Parse(%q) error = %v, want ErrEmpty", line, err)
		}
	}
}

func TestStringRoundTrips(t *testing.T) {
	cases := []struct {
		msg  *Message
		want string
	}{
		{&Message{Command: "PING"}, "PING"},
		{&Message{Command: "NICK", Params: []string{"alice"}}, "NICK alice"},
		{
			&Message{Prefix: "irc.example.org", Command: "PRIVMSG", Params: []string{"#chan", "hello there"}},
			":irc.example.org PRIVMSG #chan :hello there",
		},
		{
			&Message{Command: "TOPIC", Params: []string{"#chan", ""}},
			"TOPIC #chan :",
		},
	}
	for _, c := range cases {
		if got := c.msg.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}

	// Re-parsing a rendered line must reproduce the same params (modulo the
	// prefix, which the server never re-parses from its own output).
	for _, c := range cases {
		reparsed, err := Parse(c.want)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.want, err)
		}
		if diff := deep.Equal(reparsed.Params, c.msg.Params); diff != nil {
			t.Error(diff)
		}
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"#chan", []string{"#chan"}},
		{"#chan1,#chan2,#chan3", []string{"#chan1", "#chan2", "#chan3"}},
	}
	for _, c := range cases {
		if diff := deep.Equal(SplitList(c.in), c.want); diff != nil {
			t.Error(diff)
		}
	}
}
