// Package modes defines the channel and user mode tables used by the
// channel mode machine. It holds only metadata and pure helpers; applying
// a mode change to a live Channel is done by the state package, which owns
// the Channel type modes are applied to.
//
// Collapsing a "deep inheritance" design into data: a channel mode is
// `{ letter, name, kind, rank }`, not a class hierarchy. The bit-flag
// idiom itself is borrowed from flag-building code elsewhere in the
// codebase (`msg.IDiagExt |= (1 << (X - 1))`-style), generalized here to
// named mode bits instead of netlink attribute bits.
package modes

// Kind classifies how a channel mode's parameter behaves.
type Kind int

const (
	// Boolean modes take no parameter, e.g. +m (moderated), +n, +s, +t.
	Boolean Kind = iota
	// ParamAlways modes take a parameter on both set and unset, e.g. none
	// in the default set but reserved for third-party modules.
	ParamAlways
	// ParamSetOnly modes take a parameter only when being set, e.g. +l
	// (limit), +k (key).
	ParamSetOnly
	// List modes take a parameter on both set and unset, and accumulate
	// into a list rather than a single value, e.g. +b/+e/+I.
	List
	// Status modes are per-member rank bits set via a nick parameter,
	// e.g. +o/+h/+v.
	Status
)

// Def describes one channel mode.
type Def struct {
	Letter byte
	Name   string
	Kind   Kind
	// Rank, for Status modes only, is this status's position in the
	// privilege order; higher outranks lower. Owner/admin/op/halfop/voice
	// is the conventional ordering, but the exact set is config-defined,
	// so Rank is just an int, not a fixed enum.
	Rank int
}

// Bit is a single-bit flag used for Boolean, ParamAlways and ParamSetOnly
// modes stored in a Channel's mode bitmask.
type Bit uint64

// Default channel mode table. Bits are assigned in table order starting
// from 1<<0; list and status modes don't use the bitmask and are stored in
// their own slices/maps instead.
var (
	ModeNoExternal  = Def{Letter: 'n', Name: "no-external-messages", Kind: Boolean}
	ModeTopicLock   = Def{Letter: 't', Name: "topic-lock", Kind: Boolean}
	ModeSecret      = Def{Letter: 's', Name: "secret", Kind: Boolean}
	ModeModerated   = Def{Letter: 'm', Name: "moderated", Kind: Boolean}
	ModeInviteOnly  = Def{Letter: 'i', Name: "invite-only", Kind: Boolean}
	ModeRegOnly     = Def{Letter: 'r', Name: "registered-only", Kind: Boolean}
	ModeKey         = Def{Letter: 'k', Name: "key", Kind: ParamSetOnly}
	ModeLimit       = Def{Letter: 'l', Name: "limit", Kind: ParamSetOnly}
	ModeBan         = Def{Letter: 'b', Name: "ban", Kind: List}
	ModeExcept      = Def{Letter: 'e', Name: "except", Kind: List}
	ModeInviteExcept = Def{Letter: 'I', Name: "invex", Kind: List}

	// Status modes, highest rank first.
	StatusOwner  = Def{Letter: 'q', Name: "owner", Kind: Status, Rank: 5}
	StatusAdmin  = Def{Letter: 'a', Name: "admin", Kind: Status, Rank: 4}
	StatusOp     = Def{Letter: 'o', Name: "op", Kind: Status, Rank: 3}
	StatusHalfop = Def{Letter: 'h', Name: "halfop", Kind: Status, Rank: 2}
	StatusVoice  = Def{Letter: 'v', Name: "voice", Kind: Status, Rank: 1}
)

// Bits assigned to the boolean/param-set-only modes, in table order.
const (
	BitNoExternal Bit = 1 << iota
	BitTopicLock
	BitSecret
	BitModerated
	BitInviteOnly
	BitRegOnly
	BitKey
	BitLimit
)

// Table is the ordered set of non-status channel modes recognized by the
// default build. A real deployment's module loader would extend this;
// that machinery is out of core scope.
var Table = []Def{
	ModeNoExternal, ModeTopicLock, ModeSecret, ModeModerated, ModeInviteOnly,
	ModeRegOnly, ModeKey, ModeLimit, ModeBan, ModeExcept, ModeInviteExcept,
}

// BitFor returns the Bit constant for a boolean/param-set-only mode's
// letter, and ok=false if the letter names a list or status mode (which
// don't live in the bitmask) or an unknown mode.
func BitFor(letter byte) (Bit, bool) {
	switch letter {
	case ModeNoExternal.Letter:
		return BitNoExternal, true
	case ModeTopicLock.Letter:
		return BitTopicLock, true
	case ModeSecret.Letter:
		return BitSecret, true
	case ModeModerated.Letter:
		return BitModerated, true
	case ModeInviteOnly.Letter:
		return BitInviteOnly, true
	case ModeRegOnly.Letter:
		return BitRegOnly, true
	case ModeKey.Letter:
		return BitKey, true
	case ModeLimit.Letter:
		return BitLimit, true
	}
	return 0, false
}

// Lookup returns the Def for a channel mode letter (boolean/param/list, not
// status), and ok=false if unknown.
func Lookup(letter byte) (Def, bool) {
	for _, d := range Table {
		if d.Letter == letter {
			return d, true
		}
	}
	return Def{}, false
}

// StatusTable is the ordered set of status (membership rank) modes,
// highest rank first.
var StatusTable = []Def{StatusOwner, StatusAdmin, StatusOp, StatusHalfop, StatusVoice}

// StatusLookup returns the Def for a status mode letter, and ok=false if
// unknown.
func StatusLookup(letter byte) (Def, bool) {
	for _, d := range StatusTable {
		if d.Letter == letter {
			return d, true
		}
	}
	return Def{}, false
}

// StatusPrefix maps a status mode letter to its NAMES-list display prefix.
func StatusPrefix(letter byte) byte {
	switch letter {
	case StatusOwner.Letter:
		return '~'
	case StatusAdmin.Letter:
		return '&'
	case StatusOp.Letter:
		return '@'
	case StatusHalfop.Letter:
		return '%'
	case StatusVoice.Letter:
		return '+'
	}
	return 0
}

// Change is one concrete, resolved mode change produced by parsing a
// MODE command's flags against this table.
type Change struct {
	Def     Def
	Adding  bool
	Param   string // mask, limit, key, or target nick, depending on Def.Kind
}

// Parse walks flags (a signed sequence like "+oov-l") and params left to
// right, pairing each flag with a parameter according to its Kind, and
// returns the list of concrete changes it could resolve. Flags naming an
// unknown mode letter are silently skipped, matching real servers'
// tolerance of unknown mode letters rather than aborting the whole command.
func Parse(flags string, params []string) []Change {
	var changes []Change
	adding := true
	pi := 0

	nextParam := func() (string, bool) {
		if pi >= len(params) {
			return "", false
		}
		p := params[pi]
		pi++
		return p, true
	}

	for i := 0; i < len(flags); i++ {
		c := flags[i]
		switch c {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		if d, ok := StatusLookup(c); ok {
			if param, got := nextParam(); got {
				changes = append(changes, Change{Def: d, Adding: adding, Param: param})
			}
			continue
		}

		d, ok := Lookup(c)
		if !ok {
			continue
		}
		switch d.Kind {
		case Boolean:
			changes = append(changes, Change{Def: d, Adding: adding})
		case ParamAlways:
			if param, got := nextParam(); got {
				changes = append(changes, Change{Def: d, Adding: adding, Param: param})
			}
		case ParamSetOnly:
			if adding {
				if param, got := nextParam(); got {
					changes = append(changes, Change{Def: d, Adding: true, Param: param})
				}
			} else {
				changes = append(changes, Change{Def: d, Adding: false})
			}
		case List:
			if param, got := nextParam(); got {
				changes = append(changes, Change{Def: d, Adding: adding, Param: param})
			} else {
				// A bare +b/+e/+I with no parameter yields no Change and
				// nothing else: Parse does not report it as a list query.
			}
		}
	}
	return changes
}
