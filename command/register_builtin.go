package command

// NewBuiltinRegistry builds the default command registry: one entry per
// core protocol verb plus the supplemented informational commands.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()

	reg := func(name string, minParams int, requireOper, beforeReg bool, penalty int, h HandlerFunc) {
		r.Register(&Entry{
			Name:                    name,
			MinParams:               minParams,
			RequireOper:             requireOper,
			AllowBeforeRegistration: beforeReg,
			Penalty:                 penalty,
			Handler:                 h,
		})
	}

	reg("NICK", 1, false, true, 0, handleNick)
	reg("USER", 4, false, true, 0, handleUser)
	reg("PING", 1, false, true, 0, handlePing)
	reg("PONG", 1, false, true, 0, handlePong)
	reg("QUIT", 0, false, true, 0, handleQuit)

	reg("JOIN", 1, false, false, 0, handleJoin)
	reg("PART", 1, false, false, 0, handlePart)
	reg("KICK", 2, false, false, 0, handleKick)
	reg("TOPIC", 1, false, false, 0, handleTopic)
	reg("NAMES", 0, false, false, 0, handleNames)
	reg("INVITE", 2, false, false, 0, handleInvite)
	reg("MODE", 1, false, false, 0, handleMode)

	reg("PRIVMSG", 1, false, false, 0, handlePrivmsg)
	reg("NOTICE", 1, false, false, 0, handleNotice)
	reg("AWAY", 0, false, false, 0, handleAway)

	reg("OPER", 2, false, false, 0, handleOper)
	reg("KILL", 1, true, false, 0, handleKill)
	reg("WALLOPS", 1, true, false, 0, handleWallops)
	reg("REHASH", 0, true, false, 0, handleRehash)

	reg("KLINE", 1, true, false, 0, handleKline)
	reg("GLINE", 1, true, false, 0, handleGline)
	reg("ZLINE", 1, true, false, 0, handleZline)
	reg("QLINE", 1, true, false, 0, handleQline)
	reg("ELINE", 1, true, false, 0, handleEline)

	reg("WHOIS", 1, false, false, 0, handleWhois)
	reg("WHO", 0, false, false, 0, handleWho)
	reg("ISON", 1, false, false, 0, handleIson)
	reg("USERHOST", 1, false, false, 0, handleUserhost)
	reg("VERSION", 0, false, false, 0, handleVersion)
	reg("ADMIN", 0, false, false, 0, handleAdmin)
	reg("TIME", 0, false, false, 0, handleTime)
	reg("LUSERS", 0, false, false, 0, handleLusers)
	reg("STATS", 0, true, false, 0, handleStats)

	return r
}
