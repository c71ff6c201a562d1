package command

import (
	"strings"
	"time"

	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/state"
	"github.com/m-lab/ircd/xline"
)

// addOrRemoveXline implements the common KLINE/GLINE/ZLINE/QLINE/ELINE
// shape: three or more params add or replace an entry (mask, duration,
// reason), fewer remove the entry named by mask.
func addOrRemoveXline(srv *state.Server, u *state.User, kind xline.Kind, params []string) Result {
	mask := params[0]

	if len(params) < 3 {
		if srv.Xlines.Remove(kind, mask) {
			noticeOpers(srv, u.Nick+" removed "+string(kind)+"-line on "+mask+".")
		} else {
			FromServer(srv, u, "NOTICE", u.Nick, string(kind)+"-Line "+mask+" not found in list.")
		}
		return Success
	}

	dur, err := xline.ParseDuration(params[1])
	if err != nil {
		FromServer(srv, u, "NOTICE", u.Nick, "Invalid duration: "+params[1])
		return Invalid
	}
	reason := params[2]
	now := time.Now()

	srv.Xlines.Add(&xline.Entry{
		Kind:     kind,
		Mask:     mask,
		Setter:   u.Nick,
		Reason:   reason,
		SetTime:  now,
		Duration: dur,
	})
	if dur == 0 {
		noticeOpers(srv, u.Nick+" added permanent "+string(kind)+"-line for "+mask+": "+reason)
	} else {
		noticeOpers(srv, u.Nick+" added timed "+string(kind)+"-line for "+mask+", expires in "+dur.String()+": "+reason)
	}
	ApplyXlines(srv, now)
	return Success
}

func handleKline(srv *state.Server, u *state.User, params []string) Result {
	return addOrRemoveXline(srv, u, xline.K, params)
}

func handleGline(srv *state.Server, u *state.User, params []string) Result {
	return addOrRemoveXline(srv, u, xline.G, params)
}

func handleZline(srv *state.Server, u *state.User, params []string) Result {
	if strings.Contains(params[0], "@") {
		FromServer(srv, u, "NOTICE", u.Nick, "A Z-line must ban only an IP mask, not a user@host.")
		return Invalid
	}
	return addOrRemoveXline(srv, u, xline.Z, params)
}

func handleQline(srv *state.Server, u *state.User, params []string) Result {
	return addOrRemoveXline(srv, u, xline.Q, params)
}

func handleEline(srv *state.Server, u *state.User, params []string) Result {
	return addOrRemoveXline(srv, u, xline.E, params)
}

// ApplyXlines walks every User with a bound nick, disconnecting anyone
// matched by a K/G/Z/Q line unless an E-line exempts them first. Called
// once per background tick and again right after any X-line add, so a
// line set against an already-connected user takes effect immediately
// rather than waiting for their next action.
//
// Index.Users() returns a freshly built slice, not a live view over the
// Nick Index, so disconnecting a user mid-walk (which unbinds it from that
// index) cannot invalidate the iteration in progress.
func ApplyXlines(srv *state.Server, now time.Time) {
	for _, u := range srv.Index.Users() {
		identHost := u.IdentHost()
		if srv.Xlines.Match(xline.E, identHost) != nil {
			continue
		}
		hit := srv.Xlines.Match(xline.K, identHost)
		if hit == nil {
			hit = srv.Xlines.Match(xline.G, identHost)
		}
		if hit == nil {
			hit = srv.Xlines.Match(xline.Z, u.IP)
		}
		if hit == nil {
			hit = srv.Xlines.Match(xline.Q, u.Nick)
		}
		if hit == nil {
			continue
		}
		metrics.XlineHitCount.WithLabelValues(string(hit.Kind)).Inc()
		Disconnect(srv, u, string(hit.Kind)+"-Lined: "+hit.Reason)
	}
}

// noticeOpers sends a server NOTICE to every +w user, the same fan-out
// WALLOPS uses.
func noticeOpers(srv *state.Server, text string) {
	for _, peer := range srv.Index.Users() {
		if peer.UserModes&state.UserModeWallops != 0 {
			FromServer(srv, peer, "NOTICE", peer.Nick, text)
		}
	}
}
