package command

import (
	"strings"

	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/modes"
	"github.com/m-lab/ircd/state"
)

func handlePrivmsg(srv *state.Server, u *state.User, params []string) Result {
	return sendMessage(srv, u, params, "PRIVMSG")
}

func handleNotice(srv *state.Server, u *state.User, params []string) Result {
	return sendMessage(srv, u, params, "NOTICE")
}

func sendMessage(srv *state.Server, u *state.User, params []string, verb string) Result {
	if len(params) < 2 || params[1] == "" {
		if verb == "PRIVMSG" {
			Numeric(srv, u, ERRNoTextToSend, "No text to send")
		}
		return Invalid
	}
	text := params[1]
	LoopCall(params[0], func(target string) {
		messageOne(srv, u, target, text, verb)
	})
	return Success
}

func messageOne(srv *state.Server, u *state.User, target, text, verb string) {
	if strings.HasPrefix(target, "#") {
		ch := srv.Index.Channel(target)
		if ch == nil {
			if verb == "PRIVMSG" {
				Numeric(srv, u, ERRNoSuchChannel, target, "No such channel")
			}
			return
		}
		if !ch.IsMember(u) && ch.ModeBits&modes.BitNoExternal != 0 {
			if verb == "PRIVMSG" {
				Numeric(srv, u, ERRCannotSendToChan, ch.Name, "Cannot send to channel")
			}
			return
		}
		ctx := &MessageContext{Server: srv, User: u, Target: target, Text: text}
		if srv.Index.Hooks.Fire(hooks.PreMessage, ctx) == hooks.Deny {
			return
		}
		for _, peer := range srv.Index.ChannelMemberUsers(ch) {
			if peer == u {
				continue
			}
			FromUser(peer, u, verb, ch.Name, text)
		}
		srv.Index.Hooks.FireAdvisory(hooks.PostMessage, ctx)
		return
	}

	targetUser := srv.Index.UserByNick(target)
	if targetUser == nil {
		if verb == "PRIVMSG" {
			Numeric(srv, u, ERRNoSuchNick, target, "No such nick")
		}
		return
	}
	ctx := &MessageContext{Server: srv, User: u, Target: target, Text: text}
	if srv.Index.Hooks.Fire(hooks.PreMessage, ctx) == hooks.Deny {
		return
	}
	FromUser(targetUser, u, verb, targetUser.Nick, text)
	if targetUser.IsAway() && verb == "PRIVMSG" {
		Numeric(srv, u, RPLAway, targetUser.Nick, targetUser.AwayMessage)
	}
	srv.Index.Hooks.FireAdvisory(hooks.PostMessage, ctx)
}

// MessageContext is the ctx payload fired at hooks.PreMessage/PostMessage.
type MessageContext struct {
	Server *state.Server
	User   *state.User
	Target string
	Text   string
}

func handleAway(srv *state.Server, u *state.User, params []string) Result {
	if len(params) == 0 || params[0] == "" {
		u.AwayMessage = ""
		u.UserModes &^= state.UserModeAway
		return Success
	}
	u.AwayMessage = params[0]
	u.UserModes |= state.UserModeAway
	return Success
}
