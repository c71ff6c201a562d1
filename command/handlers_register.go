package command

import (
	"strings"
	"time"

	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/state"
)

func isValidNick(nick string) bool {
	if nick == "" || len(nick) > 30 {
		return false
	}
	c := nick[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || strings.ContainsRune("[]\\`_^{|}", rune(c))) {
		return false
	}
	for i := 1; i < len(nick); i++ {
		c := nick[i]
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			strings.ContainsRune("[]\\`_^{|}-", rune(c))
		if !ok {
			return false
		}
	}
	return true
}

func handleNick(srv *state.Server, u *state.User, params []string) Result {
	newNick := params[0]
	if !isValidNick(newNick) {
		Numeric(srv, u, ERRErroneousNickname, newNick, "Erroneous nickname")
		return Invalid
	}

	if u.Registered() {
		old := u.Mask()
		if err := srv.Index.Rename(u, newNick); err != nil {
			Numeric(srv, u, ERRNicknameInUse, newNick, "Nickname is already in use")
			return Invalid
		}
		for _, peer := range append(srv.Index.CommonChannelUsers(u), u) {
			peer.QueueLine(":" + old + " NICK :" + newNick)
		}
		srv.Index.Hooks.FireAdvisory(hooks.PostNick, &NickContext{Server: srv, User: u, OldMask: old})
		return Success
	}

	if existing := srv.Index.UserByNick(newNick); existing != nil && existing != u {
		Numeric(srv, u, ERRNicknameInUse, newNick, "Nickname is already in use")
		return Invalid
	}
	u.Nick = newNick
	if err := srv.Index.BindNick(u); err != nil {
		Numeric(srv, u, ERRNicknameInUse, newNick, "Nickname is already in use")
		return Invalid
	}
	u.Phase &^= state.WaitNick
	maybeCompleteRegistration(srv, u)
	return Success
}

// NickContext is the ctx payload fired at hooks.PostNick.
type NickContext struct {
	Server  *state.Server
	User    *state.User
	OldMask string
}

func handleUser(srv *state.Server, u *state.User, params []string) Result {
	if u.Registered() {
		Numeric(srv, u, ERRAlreadyRegistered, "You may not reregister")
		return Invalid
	}
	u.Ident = params[0]
	u.GECOS = params[len(params)-1]
	u.Phase &^= state.WaitUser
	maybeCompleteRegistration(srv, u)
	return Success
}

func handlePing(srv *state.Server, u *state.User, params []string) Result {
	FromServer(srv, u, "PONG", srv.Config.ServerName, params[0])
	return Success
}

func handlePong(srv *state.Server, u *state.User, params []string) Result {
	u.LastPong = u.LastActivity
	return Success
}

func handleQuit(srv *state.Server, u *state.User, params []string) Result {
	reason := "Client Quit"
	if len(params) > 0 {
		reason = params[0]
	}
	Disconnect(srv, u, "Quit: "+reason)
	return Success
}

// CompleteIfReady re-checks registration completion for u. It is exported
// for the event loop to call once an asynchronous DNS completion clears
// state.WaitDNS, since that phase bit doesn't clear from inside a command
// handler the way WaitNick/WaitUser do.
func CompleteIfReady(srv *state.Server, u *state.User) {
	maybeCompleteRegistration(srv, u)
}

// maybeCompleteRegistration checks whether u has cleared every phase bit and
// every CheckReady observer agrees, and if so runs the X-line connect check
// and sends the welcome burst.
func maybeCompleteRegistration(srv *state.Server, u *state.User) {
	if u.Phase.Pending() {
		return
	}
	if !srv.Index.Hooks.ReadyAll(&ReadyContext{Server: srv, User: u}) {
		return
	}
	if e := srv.CheckConnect(u.IdentHost(), u.IP, u.Nick); e != nil {
		metrics.XlineHitCount.WithLabelValues(string(e.Kind)).Inc()
		Disconnect(srv, u, string(e.Kind)+"-Lined: "+e.Reason)
		return
	}
	srv.ApplyConnectClass(u)
	u.ServerName = srv.Config.ServerName
	srv.Index.MarkRegistered(u)
	metrics.RegistrationLatency.Observe(time.Since(u.ConnectedAt).Seconds())
	sendWelcomeBurst(srv, u)
	srv.Index.Hooks.FireAdvisory(hooks.UserConnect, &ConnectContext{Server: srv, User: u})
}

// ReadyContext is the ctx payload fired at hooks.CheckReady.
type ReadyContext struct {
	Server *state.Server
	User   *state.User
}

// ConnectContext is the ctx payload fired at hooks.UserConnect/UserQuit/UserDisconnect.
type ConnectContext struct {
	Server *state.Server
	User   *state.User
	Reason string
}

func sendWelcomeBurst(srv *state.Server, u *state.User) {
	cfg := srv.Config
	Numeric(srv, u, RPLWelcome, "Welcome to the "+cfg.NetworkName+" Internet Relay Chat Network "+u.Mask())
	Numeric(srv, u, RPLYourHost, "Your host is "+cfg.ServerName+", running version ircd-0")
	Numeric(srv, u, RPLCreated, "This server was created at boot")
	Numeric(srv, u, RPLMyInfo, cfg.ServerName, "ircd-0", "iowx", "biklmnostv")
	Numeric(srv, u, RPLISupport, "CASEMAPPING=rfc1459", "PREFIX=(qaohv)~&@%+", "CHANTYPES=#", "are supported by this server")
	if u.ModeString() != "" {
		FromServer(srv, u, "MODE", u.Nick, u.ModeString())
	}
	Numeric(srv, u, ERRNoMotd, "MOTD File is missing")
}

// Disconnect performs the common QUIT/KILL/X-line/overrun teardown: it
// broadcasts QUIT to the common-channels set, fires UserQuit, removes u from
// every index, and queues a final ERROR line. The caller (or the event loop,
// for socket-level failures) is responsible for actually closing the fd once
// sendQ drains.
func Disconnect(srv *state.Server, u *state.User, reason string) {
	peers := srv.Index.CommonChannelUsers(u)
	for _, p := range peers {
		p.QueueLine(":" + u.Mask() + " QUIT :" + reason)
	}
	srv.Index.Hooks.FireAdvisory(hooks.UserQuit, &ConnectContext{Server: srv, User: u, Reason: reason})
	state.Quit(srv.Index, u)
	srv.Index.UnbindNick(u)
	srv.Index.ForgetFd(u.Fd)
	u.QueueLine("ERROR :Closing link (" + u.Mask() + ") [" + reason + "]")
}
