package command

import (
	"strings"

	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/ircmsg"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/state"
)

// Result is a handler's outcome.
type Result int

const (
	Success Result = iota
	Failure
	Invalid
)

// HandlerFunc implements one protocol verb.
type HandlerFunc func(srv *state.Server, u *state.User, params []string) Result

// Entry is one command registry entry.
type Entry struct {
	Name                    string
	MinParams               int
	RequireOper             bool
	AllowBeforeRegistration bool
	Penalty                 int // ms added to the user's penalty counter; 0 means the default cost of 1000ms
	Handler                 HandlerFunc
}

// Registry is a name->Entry table with ASCII-case-insensitive lookup.
type Registry struct {
	entries map[string]*Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds e, keyed by the upper-cased command name.
func (r *Registry) Register(e *Entry) {
	r.entries[strings.ToUpper(e.Name)] = e
}

// Lookup finds the entry for name, case-insensitively.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[strings.ToUpper(name)]
	return e, ok
}

// Dispatch runs the six-step pipeline — registration gate, min-params
// check, oper-required gate, PreCommand veto, handler, PostCommand — for
// one already-parsed message against command. Unknown commands reply 421.
func Dispatch(r *Registry, srv *state.Server, u *state.User, command string, params []string) Result {
	entry, ok := r.Lookup(command)
	if !ok {
		Numeric(srv, u, ERRUnknownCommand, command, "Unknown command")
		return Invalid
	}

	metrics.CommandCount.WithLabelValues(strings.ToUpper(command)).Inc()

	cost := entry.Penalty
	if cost == 0 {
		cost = 1000
	}
	u.AddPenalty(cost)

	if !entry.AllowBeforeRegistration && u.Phase.Pending() {
		Numeric(srv, u, ERRNotRegistered, "You have not registered")
		return Invalid
	}

	if len(params) < entry.MinParams {
		Numeric(srv, u, ERRNeedMoreParams, strings.ToUpper(command), "Not enough parameters")
		return Invalid
	}

	if entry.RequireOper && !u.IsOper() {
		Numeric(srv, u, ERRNoPrivileges, "Permission Denied- You're not an IRC operator")
		return Invalid
	}

	ctx := &PreCommandContext{Server: srv, User: u, Command: command, Params: params}
	if srv.Index.Hooks.Fire(hooks.PreCommand, ctx) == hooks.Deny {
		return Invalid
	}

	result := entry.Handler(srv, u, params)

	srv.Index.Hooks.FireAdvisory(hooks.PostCommand, &PostCommandContext{
		Server: srv, User: u, Command: command, Params: params, Result: result,
	})
	return result
}

// PreCommandContext is the ctx payload fired at hooks.PreCommand.
type PreCommandContext struct {
	Server  *state.Server
	User    *state.User
	Command string
	Params  []string
}

// PostCommandContext is the ctx payload fired at hooks.PostCommand.
type PostCommandContext struct {
	Server  *state.Server
	User    *state.User
	Command string
	Params  []string
	Result  Result
}

// LoopCall invokes fn once per comma-separated element of raw, short
// circuiting the split entirely (calling fn once with raw unchanged) when
// there is exactly one element.
func LoopCall(raw string, fn func(target string)) {
	targets := ircmsg.SplitList(raw)
	if len(targets) <= 1 {
		fn(raw)
		return
	}
	for _, t := range targets {
		fn(t)
	}
}
