// Package hooks implements the server's observer surface: an ordered,
// priority-sorted list of slots, each of which may handle any subset of a
// fixed catalog of named hook points. Veto-able hooks stop at the first
// observer returning Deny or Allow; advisory hooks always run every
// observer.
//
// This generalizes a channel-fed worker pool shape — N identical workers
// draining one channel — into an ordered list of distinct observers, each
// optionally handling a given point: dispatch-by-name into a registered
// handler rather than a fixed worker set.
package hooks

import "sort"

// Point names a life-cycle point an observer can hook.
type Point string

const (
	PreJoin         Point = "PreJoin"
	PostJoin        Point = "PostJoin"
	PreMessage      Point = "PreMessage"
	PostMessage     Point = "PostMessage"
	PreNick         Point = "PreNick"
	PostNick        Point = "PostNick"
	PreKick         Point = "PreKick"
	PostKick        Point = "PostKick"
	UserConnect     Point = "UserConnect"
	UserQuit        Point = "UserQuit"
	UserDisconnect  Point = "UserDisconnect"
	PreCommand      Point = "PreCommand"
	PostCommand     Point = "PostCommand"
	CheckReady      Point = "CheckReady"
	CheckBan        Point = "CheckBan"
	CheckKey        Point = "CheckKey"
	CheckLimit      Point = "CheckLimit"
	CheckInvite     Point = "CheckInvite"
	AccessCheck     Point = "AccessCheck"
	OnMode          Point = "OnMode"
	BackgroundTimer Point = "BackgroundTimer"
	Rehash          Point = "Rehash"
	PostInvite      Point = "PostInvite"
)

// Result is returned by veto-able hooks.
type Result int

const (
	// PassThrough means this observer has no opinion; keep asking the
	// next one.
	PassThrough Result = iota
	// Allow short-circuits the chain with approval.
	Allow
	// Deny short-circuits the chain with refusal.
	Deny
	// Ready is CheckReady's affirmative result; NotReady keeps the user
	// in UNREG. CheckReady is unusual among veto-able hooks in that every
	// observer must return Ready for registration to complete, so callers
	// use ReadyAll rather than Fire for it.
	Ready
	NotReady
)

// VetoFunc is a veto-able hook handler. ctx carries whatever data point
// demands; concrete context struct types live alongside their point's
// callers (command, state) to avoid this package depending on them.
type VetoFunc func(ctx interface{}) Result

// AdvisoryFunc is an advisory hook handler; it has no return value.
type AdvisoryFunc func(ctx interface{})

// Observer is one registered slot. It need only populate the Veto/Advisory
// maps for the points it actually handles.
type Observer struct {
	Name     string
	Priority int // lower runs first
	Veto     map[Point]VetoFunc
	Advisory map[Point]AdvisoryFunc
}

// Registry holds the ordered observer list. The zero Registry is usable.
type Registry struct {
	observers []*Observer
	sorted    bool
}

// Register adds an observer. The registry re-sorts by Priority (ties broken
// by registration order) lazily, on the next Fire/FireAdvisory/ReadyAll.
func (r *Registry) Register(o *Observer) {
	r.observers = append(r.observers, o)
	r.sorted = false
}

func (r *Registry) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.observers, func(i, j int) bool {
		return r.observers[i].Priority < r.observers[j].Priority
	})
	r.sorted = true
}

// Fire runs a veto-able hook in priority order. The first observer
// returning Allow or Deny stops the chain and that result is returned;
// if every observer returns PassThrough, Fire returns PassThrough.
func (r *Registry) Fire(point Point, ctx interface{}) Result {
	r.ensureSorted()
	for _, o := range r.observers {
		fn, ok := o.Veto[point]
		if !ok {
			continue
		}
		switch res := fn(ctx); res {
		case Allow, Deny:
			return res
		}
	}
	return PassThrough
}

// ReadyAll runs CheckReady against every observer that registers it and
// requires every one of them to answer Ready: full registration gates on
// every observer agreeing, not first-match veto semantics, so this does not
// short-circuit on the first response.
func (r *Registry) ReadyAll(ctx interface{}) bool {
	r.ensureSorted()
	for _, o := range r.observers {
		fn, ok := o.Veto[CheckReady]
		if !ok {
			continue
		}
		if fn(ctx) != Ready {
			return false
		}
	}
	return true
}

// FireAdvisory runs every observer that registers the given point; order
// follows Priority but nothing can stop the chain early.
func (r *Registry) FireAdvisory(point Point, ctx interface{}) {
	r.ensureSorted()
	for _, o := range r.observers {
		if fn, ok := o.Advisory[point]; ok {
			fn(ctx)
		}
	}
}
