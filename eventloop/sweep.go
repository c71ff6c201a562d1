package eventloop

import (
	"time"

	"github.com/m-lab/ircd/command"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/state"
)

// sweep walks every connection once a second, applying the three
// time-driven teardown rules: registration timeout, ping send/timeout, and
// a final catch-all for a User whose SendQError got set outside of a
// readiness callback (e.g. by a broadcast from another connection's
// handler).
func (l *Loop) sweep(now time.Time) {
	for _, u := range l.Server.Index.Connections() {
		l.sweepOne(u, now)
	}
}

// sweepOne applies the rules to a single connection. It returns true if u
// was torn down during this call.
func (l *Loop) sweepOne(u *state.User, now time.Time) bool {
	if u.SendQError {
		metrics.DisconnectCount.WithLabelValues("sendq").Inc()
		command.Disconnect(l.Server, u, "SendQ exceeded")
		l.finalize(u, "sendq")
		return true
	}

	if u.Phase.Pending() {
		regTimeout := l.Server.Config.RegTimeout
		if regTimeout > 0 && now.Sub(u.ConnectedAt) > regTimeout {
			command.Disconnect(l.Server, u, "Registration timeout")
			l.finalize(u, "reg_timeout")
			return true
		}
		return false
	}

	pingPeriod := l.Server.Config.PingPeriod
	if pingPeriod <= 0 {
		return false
	}
	if u.LastPong.Before(u.LastPingSent) && now.Sub(u.LastPingSent) > pingPeriod {
		command.Disconnect(l.Server, u, "Ping timeout")
		l.finalize(u, "ping_timeout")
		return true
	}
	if now.Sub(u.LastActivity) > pingPeriod && now.Sub(u.LastPingSent) > pingPeriod {
		u.LastPingSent = now
		command.FromServer(l.Server, u, "PING", l.Server.Config.ServerName)
	}
	return false
}
