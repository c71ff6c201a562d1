package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m-lab/ircd/state"
)

// Numeric queues a numeric reply to u: ":<server> <code> <nick> <params...>"
// with the final param treated as trailing if it contains a space or is
// explicitly marked with a leading ':' already.
func Numeric(srv *state.Server, u *state.User, code int, params ...string) {
	target := u.Nick
	if target == "" {
		target = "*"
	}
	line := formatLine(srv.Config.ServerName, fmt.Sprintf("%03d", code), append([]string{target}, params...))
	u.QueueLine(line)
}

// FromUser queues a line prefixed with the sending user's own mask to dest:
// the server always substitutes a client's actual mask rather than trusting
// whatever prefix (if any) it sent.
func FromUser(dest *state.User, from *state.User, command string, params ...string) {
	line := formatLine(from.Mask(), command, params)
	dest.QueueLine(line)
}

// FromServer queues a line prefixed with the server's own name to dest.
func FromServer(srv *state.Server, dest *state.User, command string, params ...string) {
	line := formatLine(srv.Config.ServerName, command, params)
	dest.QueueLine(line)
}

// formatLine builds ":prefix command middle middle :trailing". The last
// element of params is sent as a trailing parameter whenever it is empty or
// contains a space; callers that want a plain last middle param should
// ensure it has neither property.
func formatLine(prefix, command string, params []string) string {
	var b strings.Builder
	b.WriteByte(':')
	b.WriteString(prefix)
	b.WriteByte(' ')
	b.WriteString(command)
	for i, p := range params {
		b.WriteByte(' ')
		last := i == len(params)-1
		if last && (p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// itoa is a small convenience used by handlers formatting numeric params.
func itoa(n int) string { return strconv.Itoa(n) }
