package state

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-lab/ircd/casemap"
	"github.com/m-lab/ircd/modes"
)

// ErrNotOper-equivalent results for mode application are represented as
// simple skip decisions rather than errors, since a MODE command applies
// whichever of its changes are legal and silently drops the rest: there
// is no single error to report.

// ModeApplyResult is the outcome of applying one resolved mode change.
type ModeApplyResult struct {
	Change  modes.Change
	Applied bool
}

// ApplyChannelModeChanges processes changes left to right against ch,
// performing the permission check, redundancy check and state mutation
// for each one. setterRank is the acting
// user's highest status rank on ch (0 if not a member, e.g. for an oper
// using a force-override). allowOverride, if non-nil, is consulted for
// each change before the normal permission check and can force Allow or
// Deny (the "explicit allow from hook may override" escape hatch).
func ApplyChannelModeChanges(ch *Channel, changes []modes.Change, setterNick string, setterRank int, setterIsOper bool, now time.Time, allowOverride func(modes.Change) (bool, bool)) []ModeApplyResult {
	results := make([]ModeApplyResult, 0, len(changes))
	for _, chg := range changes {
		allowed := setterRank >= modes.StatusOp.Rank || setterIsOper
		if allowOverride != nil {
			if forced, ok := allowOverride(chg); ok {
				allowed = forced
			}
		}
		if !allowed {
			results = append(results, ModeApplyResult{Change: chg, Applied: false})
			continue
		}

		applied := applyOne(ch, chg, setterNick, setterRank, now)
		results = append(results, ModeApplyResult{Change: chg, Applied: applied})
	}
	return results
}

func applyOne(ch *Channel, chg modes.Change, setterNick string, setterRank int, now time.Time) bool {
	switch chg.Def.Kind {
	case modes.Boolean:
		bit, ok := modes.BitFor(chg.Def.Letter)
		if !ok {
			return false
		}
		currentlySet := ch.ModeBits&bit != 0
		if currentlySet == chg.Adding {
			return false // redundant
		}
		if chg.Adding {
			ch.ModeBits |= bit
		} else {
			ch.ModeBits &^= bit
		}
		return true

	case modes.ParamSetOnly:
		switch chg.Def.Letter {
		case modes.ModeKey.Letter:
			if chg.Adding {
				if ch.Key == chg.Param {
					return false
				}
				ch.Key = chg.Param
				ch.ModeBits |= modes.BitKey
			} else {
				if ch.Key == "" {
					return false
				}
				ch.Key = ""
				ch.ModeBits &^= modes.BitKey
			}
			return true
		case modes.ModeLimit.Letter:
			if chg.Adding {
				n, err := strconv.Atoi(chg.Param)
				if err != nil || n <= 0 {
					return false
				}
				if ch.Limit == n {
					return false
				}
				ch.Limit = n
				ch.ModeBits |= modes.BitLimit
			} else {
				if ch.Limit == 0 {
					return false
				}
				ch.Limit = 0
				ch.ModeBits &^= modes.BitLimit
			}
			return true
		}
		return false

	case modes.List:
		mask := NormalizeMask(chg.Param)
		switch chg.Def.Letter {
		case modes.ModeBan.Letter:
			if chg.Adding {
				return addListEntry(&ch.Bans, mask, setterNick, now)
			}
			return removeListEntry(&ch.Bans, mask)
		case modes.ModeExcept.Letter:
			if chg.Adding {
				return addListEntry(&ch.Excepts, mask, setterNick, now)
			}
			return removeListEntry(&ch.Excepts, mask)
		case modes.ModeInviteExcept.Letter:
			if chg.Adding {
				return addListEntry(&ch.Invex, mask, setterNick, now)
			}
			return removeListEntry(&ch.Invex, mask)
		}
		return false

	case modes.Status:
		targetFolded := casemap.Fold(chg.Param)
		entry, ok := ch.Members[targetFolded]
		if !ok {
			return false
		}
		// The setter must strictly outrank the target's current highest
		// rank, or be equal rank (peer ops may deop/devoice each other
		// within the same rank tier).
		if setterRank < entry.Membership.HighestRank() {
			return false
		}
		if entry.Membership.HasStatus(chg.Def.Letter) == chg.Adding {
			return false
		}
		entry.Membership.setStatus(chg.Def.Rank, chg.Adding)
		return true
	}
	return false
}

// CompactModeString renders the applied subset of a ModeApplyResult slice
// into a single compacted MODE line: one "+flags-flags param param"
// string, grouping consecutive same-sign changes.
func CompactModeString(results []ModeApplyResult) (string, []string) {
	var flags strings.Builder
	var params []string
	sign := byte(0)
	for _, r := range results {
		if !r.Applied {
			continue
		}
		wantSign := byte('+')
		if !r.Change.Adding {
			wantSign = '-'
		}
		if wantSign != sign {
			flags.WriteByte(wantSign)
			sign = wantSign
		}
		flags.WriteByte(r.Change.Def.Letter)
		if r.Change.Param != "" {
			params = append(params, r.Change.Param)
		}
	}
	return flags.String(), params
}
