package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/modes"
	"github.com/m-lab/ircd/state"
)

func isValidChannelName(name string) bool {
	return len(name) > 1 && name[0] == '#' && !strings.ContainsAny(name, " ,\x07")
}

func handleJoin(srv *state.Server, u *state.User, params []string) Result {
	var key string
	if len(params) > 1 {
		key = params[1]
	}
	LoopCall(params[0], func(name string) {
		joinOne(srv, u, name, key)
	})
	return Success
}

func joinOne(srv *state.Server, u *state.User, name, key string) {
	if !isValidChannelName(name) {
		Numeric(srv, u, ERRNoSuchChannel, name, "No such channel")
		return
	}
	if u.MaxChannels > 0 && len(u.ChannelNames) >= u.MaxChannels {
		Numeric(srv, u, ERRTooManyChannels, name, "You have joined too many channels")
		return
	}

	existing := srv.Index.Channel(name)
	if existing != nil {
		if reason := state.JoinChecks(existing, u, key); reason != state.JoinOK {
			if srv.Index.Hooks.Fire(hooks.PreJoin, &JoinContext{Server: srv, User: u, Channel: existing}) != hooks.Allow {
				replyJoinDenied(srv, u, name, reason)
				return
			}
		}
	}

	ch, _ := state.Join(srv.Index, name, u, time.Now())
	for _, peer := range srv.Index.ChannelMemberUsers(ch) {
		peer.QueueLine(":" + u.Mask() + " JOIN :" + ch.Name)
	}
	srv.Index.Hooks.FireAdvisory(hooks.PostJoin, &JoinContext{Server: srv, User: u, Channel: ch})

	if ch.Topic == "" {
		Numeric(srv, u, RPLNoTopic, ch.Name, "No topic is set")
	} else {
		Numeric(srv, u, RPLTopic, ch.Name, ch.Topic)
		Numeric(srv, u, RPLTopicWhoTime, ch.Name, ch.TopicSetBy, strconv.FormatInt(ch.TopicSetAt.Unix(), 10))
	}
	sendNames(srv, u, ch)
}

func replyJoinDenied(srv *state.Server, u *state.User, name string, reason state.JoinDenyReason) {
	switch reason {
	case state.JoinBadKey:
		Numeric(srv, u, ERRBadChannelKey, name, "Cannot join channel (+k)")
	case state.JoinInviteOnly:
		Numeric(srv, u, ERRInviteOnlyChan, name, "Cannot join channel (+i)")
	case state.JoinLimitReached:
		Numeric(srv, u, ERRChannelIsFull, name, "Cannot join channel (+l)")
	case state.JoinBanned:
		Numeric(srv, u, ERRBannedFromChan, name, "Cannot join channel (+b)")
	}
}

// JoinContext is the ctx payload fired at hooks.PreJoin/PostJoin.
type JoinContext struct {
	Server  *state.Server
	User    *state.User
	Channel *state.Channel
}

func sendNames(srv *state.Server, u *state.User, ch *state.Channel) {
	names := ch.NamesReply()
	Numeric(srv, u, RPLNamReply, "=", ch.Name, strings.Join(names, " "))
	Numeric(srv, u, RPLEndOfNames, ch.Name, "End of /NAMES list")
}

func handlePart(srv *state.Server, u *state.User, params []string) Result {
	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}
	LoopCall(params[0], func(name string) {
		partOne(srv, u, name, reason)
	})
	return Success
}

func partOne(srv *state.Server, u *state.User, name, reason string) {
	ch := srv.Index.Channel(name)
	if ch == nil {
		Numeric(srv, u, ERRNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.IsMember(u) {
		Numeric(srv, u, ERRNotOnChannel, name, "You're not on that channel")
		return
	}
	line := ":" + u.Mask() + " PART " + ch.Name
	if reason != "" {
		line += " :" + reason
	}
	for _, peer := range srv.Index.ChannelMemberUsers(ch) {
		peer.QueueLine(line)
	}
	state.Part(srv.Index, ch, u)
}

func handleKick(srv *state.Server, u *state.User, params []string) Result {
	chName := params[0]
	reason := u.Nick
	if len(params) > 2 {
		reason = params[2]
	}
	ch := srv.Index.Channel(chName)
	if ch == nil {
		Numeric(srv, u, ERRNoSuchChannel, chName, "No such channel")
		return Invalid
	}
	setterMem := ch.MembershipOf(u)
	if setterMem == nil || (setterMem.HighestRank() < modes.StatusOp.Rank && !u.IsOper()) {
		Numeric(srv, u, ERRChanOpPrivsNeeded, ch.Name, "You're not a channel operator")
		return Invalid
	}
	LoopCall(params[1], func(nick string) {
		kickOne(srv, u, ch, nick, reason)
	})
	return Success
}

func kickOne(srv *state.Server, u *state.User, ch *state.Channel, nick, reason string) {
	target := srv.Index.UserByNick(nick)
	if target == nil || !ch.IsMember(target) {
		Numeric(srv, u, ERRNotOnChannel, nick, "They aren't on that channel")
		return
	}
	line := ":" + u.Mask() + " KICK " + ch.Name + " " + target.Nick + " :" + reason
	for _, peer := range srv.Index.ChannelMemberUsers(ch) {
		peer.QueueLine(line)
	}
	state.Part(srv.Index, ch, target)
	srv.Index.Hooks.FireAdvisory(hooks.PostKick, &JoinContext{Server: srv, User: target, Channel: ch})
}

func handleTopic(srv *state.Server, u *state.User, params []string) Result {
	ch := srv.Index.Channel(params[0])
	if ch == nil {
		Numeric(srv, u, ERRNoSuchChannel, params[0], "No such channel")
		return Invalid
	}
	if !ch.IsMember(u) {
		Numeric(srv, u, ERRNotOnChannel, ch.Name, "You're not on that channel")
		return Invalid
	}
	if len(params) == 1 {
		if ch.Topic == "" {
			Numeric(srv, u, RPLNoTopic, ch.Name, "No topic is set")
		} else {
			Numeric(srv, u, RPLTopic, ch.Name, ch.Topic)
		}
		return Success
	}
	mem := ch.MembershipOf(u)
	if ch.ModeBits&modes.BitTopicLock != 0 && mem.HighestRank() < modes.StatusHalfop.Rank && !u.IsOper() {
		Numeric(srv, u, ERRChanOpPrivsNeeded, ch.Name, "You're not a channel operator")
		return Invalid
	}
	ch.Topic = params[1]
	ch.TopicSetBy = u.Nick
	ch.TopicSetAt = time.Now()
	for _, peer := range srv.Index.ChannelMemberUsers(ch) {
		peer.QueueLine(":" + u.Mask() + " TOPIC " + ch.Name + " :" + ch.Topic)
	}
	return Success
}

func handleNames(srv *state.Server, u *state.User, params []string) Result {
	if len(params) == 0 {
		return Success
	}
	LoopCall(params[0], func(name string) {
		if ch := srv.Index.Channel(name); ch != nil {
			sendNames(srv, u, ch)
		}
	})
	return Success
}

func handleInvite(srv *state.Server, u *state.User, params []string) Result {
	target := srv.Index.UserByNick(params[0])
	if target == nil {
		Numeric(srv, u, ERRNoSuchNick, params[0], "No such nick")
		return Invalid
	}
	ch := srv.Index.Channel(params[1])
	if ch == nil {
		Numeric(srv, u, ERRNoSuchChannel, params[1], "No such channel")
		return Invalid
	}
	if !ch.IsMember(u) {
		Numeric(srv, u, ERRNotOnChannel, ch.Name, "You're not on that channel")
		return Invalid
	}
	if ch.ModeBits != 0 {
		mem := ch.MembershipOf(u)
		if ch.ModeBits&modes.BitInviteOnly != 0 && mem.HighestRank() < modes.StatusHalfop.Rank && !u.IsOper() {
			Numeric(srv, u, ERRChanOpPrivsNeeded, ch.Name, "You're not a channel operator")
			return Invalid
		}
	}
	target.Invites[ch.FoldedName()] = time.Time{}
	FromUser(target, u, "INVITE", target.Nick, ch.Name)
	Numeric(srv, u, RPLInviting, target.Nick, ch.Name)
	srv.Index.Hooks.FireAdvisory(hooks.PostInvite, &JoinContext{Server: srv, User: target, Channel: ch})
	return Success
}

func handleMode(srv *state.Server, u *state.User, params []string) Result {
	if !isValidChannelName(params[0]) {
		return handleUserMode(srv, u, params)
	}
	ch := srv.Index.Channel(params[0])
	if ch == nil {
		Numeric(srv, u, ERRNoSuchChannel, params[0], "No such channel")
		return Invalid
	}
	if len(params) == 1 {
		Numeric(srv, u, RPLChannelModeIs(), ch.Name, channelModeString(ch))
		return Success
	}

	mem := ch.MembershipOf(u)
	rank := 0
	if mem != nil {
		rank = mem.HighestRank()
	}
	changes := modes.Parse(params[1], params[2:])
	results := state.ApplyChannelModeChanges(ch, changes, u.Nick, rank, u.IsOper(), time.Now(), nil)

	flags, changeParams := state.CompactModeString(results)
	if flags == "" {
		return Success
	}
	line := ":" + u.Mask() + " MODE " + ch.Name + " " + flags
	for _, p := range changeParams {
		line += " " + p
	}
	for _, peer := range srv.Index.ChannelMemberUsers(ch) {
		peer.QueueLine(line)
	}
	srv.Index.Hooks.FireAdvisory(hooks.OnMode, &JoinContext{Server: srv, User: u, Channel: ch})
	return Success
}

// RPLChannelModeIs is a tiny accessor so handleMode reads naturally; the
// numeric (324) isn't otherwise used often enough to warrant a top-level
// const block entry of its own.
func RPLChannelModeIs() int { return 324 }

func channelModeString(ch *state.Channel) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, d := range modes.Table {
		if d.Kind != modes.Boolean {
			continue
		}
		bit, _ := modes.BitFor(d.Letter)
		if ch.ModeBits&bit != 0 {
			b.WriteByte(d.Letter)
		}
	}
	if ch.ModeBits&modes.BitKey != 0 {
		b.WriteByte('k')
	}
	if ch.ModeBits&modes.BitLimit != 0 {
		b.WriteByte('l')
	}
	return b.String()
}
