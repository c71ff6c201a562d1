package command

import (
	"strings"
	"time"

	"github.com/m-lab/ircd/glob"
	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/state"
)

// handleOper authenticates an OPER request against config's oper_block list.
// Password hashing (password_hash_kind) is a collaborator concern the core
// doesn't implement; a plaintext match is the baseline comparison, treating
// credential storage as out of core scope.
func handleOper(srv *state.Server, u *state.User, params []string) Result {
	name, password := params[0], params[1]
	host := u.RealHost
	if host == "" {
		host = u.IP
	}
	for _, ob := range srv.Config.OperBlocks {
		if ob.Name != name {
			continue
		}
		if !glob.Match(ob.HostGlob, host) || ob.Password != password {
			continue
		}
		u.OperType = ob.Type
		u.UserModes |= state.UserModeOper
		Numeric(srv, u, RPLYoureOper, "You are now an IRC operator")
		if u.ModeString() != "" {
			FromUser(u, u, "MODE", u.Nick, u.ModeString())
		}
		return Success
	}
	Numeric(srv, u, ERRNoOperHost, "Password incorrect")
	return Invalid
}

func handleKill(srv *state.Server, u *state.User, params []string) Result {
	target := srv.Index.UserByNick(params[0])
	if target == nil {
		Numeric(srv, u, ERRNoSuchNick, params[0], "No such nick")
		return Invalid
	}
	reason := "Killed"
	if len(params) > 1 {
		reason = params[1]
	}
	metrics.DisconnectCount.WithLabelValues("kill").Inc()
	Disconnect(srv, target, "Killed ("+u.Nick+" ("+reason+"))")

	// Sweep every channel in the index, even though Disconnect's state.Quit
	// already destroys the channels the killed user left empty: any empty
	// channel still indexed is purged here.
	for _, ch := range srv.Index.Channels() {
		srv.Index.DestroyChannelIfEmpty(ch)
	}
	return Success
}

func handleWallops(srv *state.Server, u *state.User, params []string) Result {
	for _, peer := range srv.Index.Users() {
		if peer.UserModes&state.UserModeWallops != 0 {
			FromUser(peer, u, "WALLOPS", params[0])
		}
	}
	return Success
}

// hostForViewer returns the host target should display to viewer: its
// real (resolved) host for itself and for opers, or the Server's
// anonymized form once target has set +x and viewer is neither — an
// optional host-cloaking mode that masks the IP before it leaves the
// process.
func hostForViewer(srv *state.Server, viewer, target *state.User) string {
	if viewer == target || viewer.IsOper() {
		if target.DisplayHost != "" {
			return target.DisplayHost
		}
		if target.RealHost != "" {
			return target.RealHost
		}
		return target.IP
	}
	return srv.HostFor(target)
}

func handleWhois(srv *state.Server, u *state.User, params []string) Result {
	LoopCall(params[0], func(nick string) {
		target := srv.Index.UserByNick(nick)
		if target == nil {
			Numeric(srv, u, ERRNoSuchNick, nick, "No such nick")
			return
		}
		host := hostForViewer(srv, u, target)
		Numeric(srv, u, RPLWhoisUser, target.Nick, target.Ident, host, "*", target.GECOS)
		Numeric(srv, u, RPLWhoisServer, target.Nick, target.ServerName, srv.Config.NetworkName)
		if target.IsOper() {
			Numeric(srv, u, RPLWhoisOperator, target.Nick, "is an IRC operator")
		}
		idle := time.Since(target.LastActivity) / time.Second
		Numeric(srv, u, RPLWhoisIdle, target.Nick, itoa(int(idle)), itoa(int(target.ConnectedAt.Unix())), "seconds idle, signon time")
		if len(target.ChannelNames) > 0 {
			var names []string
			for chName := range target.ChannelNames {
				if ch := srv.Index.Channel(chName); ch != nil {
					names = append(names, ch.Name)
				}
			}
			Numeric(srv, u, RPLWhoisChannels, target.Nick, strings.Join(names, " "))
		}
		Numeric(srv, u, RPLEndOfWhois, target.Nick, "End of /WHOIS list")
	})
	return Success
}

func handleWho(srv *state.Server, u *state.User, params []string) Result {
	if len(params) == 0 {
		Numeric(srv, u, RPLEndOfWho, "*", "End of /WHO list")
		return Success
	}
	mask := params[0]
	var users []*state.User
	if ch := srv.Index.Channel(mask); ch != nil {
		users = srv.Index.ChannelMemberUsers(ch)
	} else {
		for _, peer := range srv.Index.Users() {
			if glob.Match(mask, peer.Nick) {
				users = append(users, peer)
			}
		}
	}
	for _, peer := range users {
		host := hostForViewer(srv, u, peer)
		flag := "H"
		if peer.IsAway() {
			flag = "G"
		}
		Numeric(srv, u, RPLWhoReply, mask, peer.Ident, host, srv.Config.ServerName, peer.Nick, flag, "0 "+peer.GECOS)
	}
	Numeric(srv, u, RPLEndOfWho, mask, "End of /WHO list")
	return Success
}

func handleIson(srv *state.Server, u *state.User, params []string) Result {
	var online []string
	for _, nick := range params {
		if srv.Index.UserByNick(nick) != nil {
			online = append(online, nick)
		}
	}
	Numeric(srv, u, RPLISON, strings.Join(online, " "))
	return Success
}

func handleUserhost(srv *state.Server, u *state.User, params []string) Result {
	var replies []string
	for _, nick := range params {
		target := srv.Index.UserByNick(nick)
		if target == nil {
			continue
		}
		host := hostForViewer(srv, u, target)
		away := "+"
		if target.IsAway() {
			away = "-"
		}
		replies = append(replies, target.Nick+"="+away+target.Ident+"@"+host)
	}
	Numeric(srv, u, RPLUserHost, strings.Join(replies, " "))
	return Success
}

func handleVersion(srv *state.Server, u *state.User, params []string) Result {
	Numeric(srv, u, RPLVersion, "ircd-0", srv.Config.ServerName, "single-server core")
	return Success
}

func handleAdmin(srv *state.Server, u *state.User, params []string) Result {
	Numeric(srv, u, RPLAdminMe, srv.Config.ServerName, "Administrative info")
	Numeric(srv, u, RPLAdminLoc1, "Location unspecified")
	Numeric(srv, u, RPLAdminLoc2, "Location unspecified")
	Numeric(srv, u, RPLAdminEmail, "admin@"+srv.Config.ServerName)
	return Success
}

func handleTime(srv *state.Server, u *state.User, params []string) Result {
	Numeric(srv, u, RPLTime, srv.Config.ServerName, time.Now().UTC().Format(time.RFC1123))
	return Success
}

func handleLusers(srv *state.Server, u *state.User, params []string) Result {
	users := srv.Index.Users()
	var opers int
	for _, peer := range users {
		if peer.IsOper() {
			opers++
		}
	}
	Numeric(srv, u, RPLLUserClient, itoa(len(users))+" users")
	Numeric(srv, u, RPLLUserOp, itoa(opers), "operator(s) online")
	Numeric(srv, u, RPLLUserChannels, itoa(len(srv.Index.Channels())), "channels formed")
	Numeric(srv, u, RPLLUserMe, "I have "+itoa(len(users))+" clients and 1 server")
	return Success
}

func handleStats(srv *state.Server, u *state.User, params []string) Result {
	query := "*"
	if len(params) > 0 {
		query = params[0]
	}
	switch query {
	case "u":
		uptime := time.Since(srv.StartedAt)
		Numeric(srv, u, RPLStatsCommands, "Server Up "+uptime.String())
	default:
		Numeric(srv, u, RPLStatsCommands, "Unsupported query: "+query)
	}
	Numeric(srv, u, RPLEndOfStats, query, "End of /STATS report")
	return Success
}

func handleRehash(srv *state.Server, u *state.User, params []string) Result {
	srv.Index.Hooks.FireAdvisory(hooks.Rehash, srv)
	return Success
}
