package eventloop

import (
	"time"

	"github.com/m-lab/ircd/command"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/netio"
	"github.com/m-lab/ircd/state"
	"github.com/m-lab/ircd/xline"
)

// acceptAll drains every pending connection on the listener bound to fd,
// rejecting Z-lined IPs immediately and otherwise registering the new
// connection with the poller and submitting it for reverse DNS.
func (l *Loop) acceptAll(listenerFd int) {
	ln := l.findListener(listenerFd)
	if ln == nil {
		return
	}
	for {
		fd, ip, err := ln.Accept()
		if err != nil || fd < 0 {
			return
		}

		if e := l.Server.Xlines.Match(xline.Z, ip); e != nil {
			metrics.XlineHitCount.WithLabelValues(string(xline.Z)).Inc()
			netio.WriteSendQ(fd, []byte("ERROR :Closing link: (Z-Lined: "+e.Reason+")\r\n"))
			netio.CloseFd(fd)
			continue
		}

		now := time.Now()
		u := state.NewUser(fd, ip, now)
		u.RealHost = ip
		u.DisplayHost = ip

		if err := l.Poller.Add(fd, false); err != nil {
			netio.CloseFd(fd)
			continue
		}
		l.Server.Index.RegisterFd(u)
		metrics.ConnectCount.Inc()

		if l.Resolver == nil {
			u.Phase &^= state.WaitDNS
			continue
		}
		l.Resolver.Submit(u.ConnID, ip)
	}
}

func (l *Loop) findListener(fd int) *netio.Listener {
	for _, ln := range l.Listeners {
		if ln.Fd == fd {
			return ln
		}
	}
	return nil
}

// applyDNSCompletions drains the resolver's completed lookups and applies
// each result to its originating connection, clearing WaitDNS and letting
// registration complete once every other phase bit has cleared.
func (l *Loop) applyDNSCompletions() {
	if l.Resolver == nil {
		return
	}
	for _, res := range l.Resolver.Drain() {
		u := l.Server.Index.UserByConnID(res.ConnID)
		if u == nil {
			continue
		}
		u.DisplayHost = res.Host
		u.Phase &^= state.WaitDNS
		command.CompleteIfReady(l.Server, u)
	}
}
