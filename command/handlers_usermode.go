package command

import "github.com/m-lab/ircd/state"

func handleUserMode(srv *state.Server, u *state.User, params []string) Result {
	target := srv.Index.UserByNick(params[0])
	if target == nil {
		Numeric(srv, u, ERRNoSuchNick, params[0], "No such nick")
		return Invalid
	}
	if target != u {
		Numeric(srv, u, ERRNoPrivileges, "Cannot change mode for other users")
		return Invalid
	}
	if len(params) == 1 {
		Numeric(srv, u, RPLUModeIs, u.ModeString())
		return Success
	}
	applyUserModeFlags(u, params[1])
	if u.ModeString() != "" {
		FromUser(u, u, "MODE", u.Nick, u.ModeString())
	}
	return Success
}

func applyUserModeFlags(u *state.User, flags string) {
	adding := true
	for _, c := range flags {
		switch c {
		case '+':
			adding = true
		case '-':
			adding = false
		case 'i':
			setUserModeBit(u, state.UserModeInvisible, adding)
		case 'w':
			setUserModeBit(u, state.UserModeWallops, adding)
		case 'x':
			setUserModeBit(u, state.UserModeHostHiding, adding)
		// 'o' (oper) cannot be self-set (only OPER grants it); -o drops oper.
		case 'o':
			if !adding {
				setUserModeBit(u, state.UserModeOper, false)
				u.OperType = ""
			}
		}
	}
}

func setUserModeBit(u *state.User, bit state.UserModeBits, on bool) {
	if on {
		u.UserModes |= bit
	} else {
		u.UserModes &^= bit
	}
}
