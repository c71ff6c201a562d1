// Package eventloop assembles the single-threaded readiness loop: one
// thread owns every User, multiplexing non-blocking sockets through a
// Poller and fanning readiness events out to command.Dispatch. It
// generalizes a ticker-plus-bounded-rep for loop — a time.NewTicker paired
// with a bounded iteration count, printing stats every so many iterations —
// from "poll on a fixed period" to "wait for socket readiness, but never
// later than the next one-second tick", with the background sweep (X-line
// expiry, registration timeout, ping, BackgroundTimer hook) taking the
// place of the periodic stats line.
package eventloop

import (
	"context"
	"log"
	"time"

	"github.com/m-lab/go/logx"

	"github.com/m-lab/ircd/command"
	"github.com/m-lab/ircd/config"
	"github.com/m-lab/ircd/dns"
	"github.com/m-lab/ircd/hooks"
	"github.com/m-lab/ircd/ircmsg"
	"github.com/m-lab/ircd/metrics"
	"github.com/m-lab/ircd/netio"
	"github.com/m-lab/ircd/state"
	"github.com/m-lab/ircd/xline"
)

// xlineLog and floodLog rate-limit the per-tick X-line walk's expiry
// logging and per-connection flood warnings, the same logx.NewLogEvery
// guard used elsewhere around noisy per-record log lines.
var (
	xlineLog = logx.NewLogEvery(nil, time.Minute)
	floodLog = logx.NewLogEvery(nil, time.Minute)
)

// tickInterval is the X-line-expiry/background-sweep period.
const tickInterval = time.Second

// backgroundTimerEvery is how many one-second ticks elapse between
// hooks.BackgroundTimer firings — roughly every five seconds.
const backgroundTimerEvery = 5

// Loop owns the poller, the listeners, the DNS resolver and the per-fd
// bookkeeping (write-pending, truncating-line state) the codec needs across
// calls.
type Loop struct {
	Server    *state.Server
	Registry  *command.Registry
	Resolver  *dns.Resolver
	Poller    *netio.Poller
	Listeners []*netio.Listener

	// ConfigPath is re-read on RequestRehash, if set.
	ConfigPath string

	writePending map[int]bool
	truncating   map[int]bool
	tickCount    int
	lastTick     time.Time

	rehash   chan struct{}
	shutdown chan string
}

// New builds a Loop. Resolver may be nil, in which case every accepted
// connection resolves to its raw IP immediately.
func New(srv *state.Server, reg *command.Registry, resolver *dns.Resolver, poller *netio.Poller, listeners []*netio.Listener) *Loop {
	return &Loop{
		Server:       srv,
		Registry:     reg,
		Resolver:     resolver,
		Poller:       poller,
		Listeners:    listeners,
		writePending: make(map[int]bool),
		truncating:   make(map[int]bool),
		lastTick:     time.Now(),
		rehash:       make(chan struct{}, 1),
		shutdown:     make(chan string, 1),
	}
}

// Start registers every listener with the poller. Call once before Run.
func (l *Loop) Start() error {
	for _, ln := range l.Listeners {
		if err := l.Poller.Add(ln.Fd, false); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the loop, either for reps iterations of the readiness wait or,
// if reps == 0, until ctx is cancelled. The shutdown channel is always
// checked before ctx, since a caller's signal handler typically calls
// Shutdown immediately followed by cancelling ctx — were ctx checked first,
// cancellation could win the race and exit Run without ever reaching
// broadcastShutdown.
func (l *Loop) Run(ctx context.Context, reps int) {
	for i := 0; reps == 0 || i < reps; i++ {
		select {
		case reason := <-l.shutdown:
			l.broadcastShutdown(reason)
			return
		default:
		}
		if ctx.Err() != nil {
			return
		}
		start := time.Now()

		select {
		case <-l.rehash:
			l.doRehash()
		default:
		}

		wait := tickInterval - time.Since(l.lastTick)
		if wait < 0 {
			wait = 0
		}
		events, err := l.Poller.Wait(int(wait / time.Millisecond))
		if err != nil {
			log.Println("poller wait:", err)
			continue
		}
		for _, ev := range events {
			l.handleEvent(ev)
		}

		if time.Since(l.lastTick) >= tickInterval {
			l.tick()
			l.lastTick = time.Now()
		}

		metrics.LoopIterationLatency.Observe(time.Since(start).Seconds())
	}
}

// handleEvent dispatches one readiness notification to either the accept
// path (listener fd) or the per-connection read/write path.
func (l *Loop) handleEvent(ev netio.Event) {
	if l.isListener(ev.Fd) {
		l.acceptAll(ev.Fd)
		return
	}
	u := l.Server.Index.UserByFd(ev.Fd)
	if u == nil {
		return
	}
	if ev.Error {
		command.Disconnect(l.Server, u, "Connection reset by peer")
		l.finalize(u, "error")
		return
	}
	if ev.Readable {
		if l.handleReadable(u) {
			l.finalize(u, "command")
			return
		}
	}
	l.flush(u, "write error")
}

func (l *Loop) isListener(fd int) bool {
	for _, ln := range l.Listeners {
		if ln.Fd == fd {
			return true
		}
	}
	return false
}

// handleReadable drains one readiness-triggered read, feeds it through the
// line codec and dispatches every complete line. It reports whether u was
// torn down (by a handler, or by a recvQ/sendQ overrun) during this call,
// so the caller knows to finalize rather than flush.
func (l *Loop) handleReadable(u *state.User) bool {
	data, ok, err := netio.ReadAvailable(u.Fd)
	if err != nil {
		command.Disconnect(l.Server, u, "Read error: "+err.Error())
		return true
	}
	if !ok {
		return false
	}
	if len(data) == 0 {
		command.Disconnect(l.Server, u, "Connection closed")
		return true
	}

	recvQ, within := netio.AppendRecv(u.RecvQ, data, l.Server.Config.RecvQLimit)
	if !within {
		metrics.DisconnectCount.WithLabelValues("recvq").Inc()
		command.Disconnect(l.Server, u, "RecvQ exceeded")
		return true
	}
	u.RecvQ = recvQ
	metrics.RecvQHighWater.Observe(float64(len(u.RecvQ)))

	lines, remaining, stillTruncating := netio.ExtractLines(u.RecvQ, l.truncating[u.Fd])
	u.RecvQ = append([]byte(nil), remaining...)
	if stillTruncating {
		l.truncating[u.Fd] = true
	} else {
		delete(l.truncating, u.Fd)
	}

	u.LastActivity = time.Now()
	for _, line := range lines {
		msg, perr := ircmsg.Parse(line)
		if perr != nil {
			continue
		}
		command.Dispatch(l.Registry, l.Server, u, msg.Command, msg.Params)
		if l.Server.Index.UserByFd(u.Fd) == nil {
			return true
		}
		if u.SendQError {
			metrics.DisconnectCount.WithLabelValues("sendq").Inc()
			command.Disconnect(l.Server, u, "SendQ exceeded")
			return true
		}
		if u.CheckFlood(u.LastActivity) {
			metrics.FloodKillCount.Inc()
			floodLog.Println("flood kill", u.Mask())
			command.Disconnect(l.Server, u, "Excess Flood")
			return true
		}
	}
	return false
}

// flush writes as much of u's sendQ as the socket will currently accept,
// enabling or disabling EPOLLOUT interest to match whether more is left.
func (l *Loop) flush(u *state.User, errReason string) {
	if len(u.SendQ) == 0 {
		l.disableWriteInterest(u.Fd)
		return
	}
	res := netio.WriteSendQ(u.Fd, u.SendQ)
	u.SendQ = u.SendQ[res.Written:]
	if res.Err != nil {
		command.Disconnect(l.Server, u, errReason+": "+res.Err.Error())
		l.finalize(u, "error")
		return
	}
	if res.WritePending && len(u.SendQ) > 0 {
		l.enableWriteInterest(u.Fd)
		return
	}
	l.disableWriteInterest(u.Fd)
}

func (l *Loop) enableWriteInterest(fd int) {
	if l.writePending[fd] {
		return
	}
	l.writePending[fd] = true
	l.Poller.Modify(fd, true)
}

func (l *Loop) disableWriteInterest(fd int) {
	if !l.writePending[fd] {
		return
	}
	delete(l.writePending, fd)
	l.Poller.Modify(fd, false)
}

// finalize flushes whatever sendQ remains synchronously, then closes and
// unregisters the fd. Called once a User has already been removed from the
// Nick Index by command.Disconnect; reason labels the disconnect metric.
func (l *Loop) finalize(u *state.User, reason string) {
	if len(u.SendQ) > 0 {
		res := netio.WriteSendQ(u.Fd, u.SendQ)
		u.SendQ = u.SendQ[res.Written:]
	}
	l.Poller.Remove(u.Fd)
	netio.CloseFd(u.Fd)
	delete(l.writePending, u.Fd)
	delete(l.truncating, u.Fd)
	metrics.DisconnectCount.WithLabelValues(reason).Inc()
}

// tick runs the once-a-second background work: X-line expiry, the X-line
// apply walk (disconnecting any connected User a K/G/Z/Q line now
// matches), DNS completions, the periodic BackgroundTimer hook, and the
// registration/ping/sendQ-error sweep over every connected User.
func (l *Loop) tick() {
	now := time.Now()

	l.Server.Xlines.Expire(now, func(e *xline.Entry) {
		xlineLog.Println("expiring", e.Kind, e.Mask, "set by", e.Setter)
		l.notifyOpers("Expiring " + string(e.Kind) + "-Line " + e.Mask + " (" + e.Reason + ")")
	})
	command.ApplyXlines(l.Server, now)

	l.applyDNSCompletions()

	l.tickCount++
	if l.tickCount%backgroundTimerEvery == 0 {
		l.Server.Index.Hooks.FireAdvisory(hooks.BackgroundTimer, &BackgroundTimerContext{Server: l.Server, Now: now})
		l.dumpStats(now)
	}

	l.sweep(now)
}

// BackgroundTimerContext is the ctx payload fired at hooks.BackgroundTimer.
type BackgroundTimerContext struct {
	Server *state.Server
	Now    time.Time
}

// dumpStats writes the current channel/user snapshot to
// Config.StatsDumpPath, if configured, for cmd/ircd-statsdump to read. A
// write failure is logged, not fatal: a stale or missing dump file shouldn't
// take the server down.
func (l *Loop) dumpStats(now time.Time) {
	path := l.Server.Config.StatsDumpPath
	if path == "" {
		return
	}
	if err := l.Server.TakeSnapshot(now).WriteJSON(path); err != nil {
		log.Println("stats dump:", err)
	}
}

// notifyOpers sends a server NOTICE to every +w user, the same fan-out
// WALLOPS uses.
func (l *Loop) notifyOpers(text string) {
	for _, peer := range l.Server.Index.Users() {
		if peer.UserModes&state.UserModeWallops != 0 {
			command.FromServer(l.Server, peer, "NOTICE", peer.Nick, text)
		}
	}
}

// RequestRehash asks the loop to reload ConfigPath and fire hooks.Rehash on
// its own goroutine at the top of the next iteration. Safe to call from a
// signal handler: it never touches Server state itself, only a buffered
// channel.
func (l *Loop) RequestRehash() {
	select {
	case l.rehash <- struct{}{}:
	default:
	}
}

// doRehash reloads ConfigPath in place (so every existing *config.Config
// pointer held by Server/Users keeps seeing live values) and fires the
// advisory Rehash hook, mirroring command.handleRehash's OPER-triggered
// path. If loading reports any diagnostic, each one is logged and noticed
// to +w users, and the current config is kept unchanged.
func (l *Loop) doRehash() {
	if l.ConfigPath == "" {
		return
	}
	cfg, diags := config.LoadFile(l.ConfigPath)
	if len(diags) > 0 {
		for _, d := range diags {
			log.Println("rehash:", d.String())
			l.notifyOpers("*** Rehash failed, keeping current config: " + d.String())
		}
		return
	}
	*l.Server.Config = *cfg
	l.Server.Index.Hooks.FireAdvisory(hooks.Rehash, l.Server)
}

// Shutdown requests a graceful stop: every connection gets a final ERROR
// line on the next iteration, then Run returns. Safe to call from a
// signal handler for the same reason RequestRehash is.
func (l *Loop) Shutdown(reason string) {
	select {
	case l.shutdown <- reason:
	default:
	}
}

// broadcastShutdown tears every connection down with reason, flushing each
// one synchronously before Run returns.
func (l *Loop) broadcastShutdown(reason string) {
	for _, u := range l.Server.Index.Connections() {
		command.Disconnect(l.Server, u, reason)
		l.finalize(u, "shutdown")
	}
}
