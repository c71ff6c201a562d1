package eventloop

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/m-lab/ircd/command"
	"github.com/m-lab/ircd/config"
	"github.com/m-lab/ircd/netio"
	"github.com/m-lab/ircd/state"
)

// newTestLoop builds a Loop with a real epoll Poller and a connected
// AF_UNIX socketpair standing in for a client connection: fd is the
// "client" end registered with the Server/Poller, peer is the other end
// the test reads from/writes to as if it were the remote client.
func newTestLoop(t *testing.T) (l *Loop, srv *state.Server, u *state.User, peer int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	fd, peer := fds[0], fds[1]
	t.Cleanup(func() {
		unix.Close(peer)
	})

	poller, err := netio.NewPoller(16)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	t.Cleanup(func() { poller.Close() })

	cfg := config.Default()
	srv = state.NewServer(cfg, time.Unix(1000, 0))
	reg := command.NewBuiltinRegistry()

	l = New(srv, reg, nil, poller, nil)

	u = state.NewUser(fd, "127.0.0.1", time.Unix(1000, 0))
	u.Phase &^= state.WaitDNS // no resolver configured in this test loop
	srv.Index.RegisterFd(u)
	if err := poller.Add(fd, false); err != nil {
		t.Fatalf("poller add: %v", err)
	}
	return l, srv, u, peer
}

func TestHandleReadableDispatchesRegistration(t *testing.T) {
	l, srv, u, peer := newTestLoop(t)

	if _, err := unix.Write(peer, []byte("NICK alice\r\nUSER a 0 * :Alice A\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	disconnected := l.handleReadable(u)
	if disconnected {
		t.Fatal("expected registration to succeed, not disconnect")
	}
	if !u.Registered() {
		t.Fatal("expected user to be fully registered after NICK+USER")
	}
	if got := srv.Index.UserByNick("alice"); got != u {
		t.Fatalf("expected alice bound in the nick index, got %v", got)
	}
	if !strings.Contains(string(u.SendQ), " 001 ") {
		t.Fatalf("expected a welcome burst queued, got %q", u.SendQ)
	}
}

func TestHandleReadableRecvQCapDisconnects(t *testing.T) {
	l, srv, u, peer := newTestLoop(t)
	srv.Config.RecvQLimit = 8

	if _, err := unix.Write(peer, []byte("NICK abcdefghijklmnop\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !l.handleReadable(u) {
		t.Fatal("expected the recvQ overrun to disconnect the connection")
	}
	if srv.Index.UserByFd(u.Fd) != nil {
		t.Fatal("expected the fd to be forgotten once disconnected")
	}
}

func TestSweepOneRegistrationTimeout(t *testing.T) {
	l, srv, u, _ := newTestLoop(t)
	srv.Config.RegTimeout = 30 * time.Second

	now := u.ConnectedAt.Add(time.Minute)
	if !l.sweepOne(u, now) {
		t.Fatal("expected registration timeout to disconnect the connection")
	}
	if srv.Index.UserByFd(u.Fd) != nil {
		t.Fatal("expected fd forgotten after registration timeout")
	}
}

func TestSweepOneSendsPingAfterIdlePeriod(t *testing.T) {
	l, srv, u, _ := newTestLoop(t)
	srv.Config.PingPeriod = time.Minute
	u.Phase = 0 // already registered
	u.LastActivity = u.ConnectedAt

	now := u.ConnectedAt.Add(2 * time.Minute)
	if l.sweepOne(u, now) {
		t.Fatal("expected sweepOne to send a PING, not disconnect")
	}
	if !strings.Contains(string(u.SendQ), "PING") {
		t.Fatalf("expected a PING queued, got %q", u.SendQ)
	}
	if u.LastPingSent != now {
		t.Fatalf("expected LastPingSent updated to %v, got %v", now, u.LastPingSent)
	}
	_ = srv
}

func TestSweepOnePingTimeoutDisconnects(t *testing.T) {
	l, srv, u, _ := newTestLoop(t)
	srv.Config.PingPeriod = time.Minute
	u.Phase = 0
	u.LastPingSent = u.ConnectedAt
	u.LastPong = time.Time{} // never ponged

	now := u.ConnectedAt.Add(2 * time.Minute)
	if !l.sweepOne(u, now) {
		t.Fatal("expected an unanswered PING past PingPeriod to disconnect")
	}
	if srv.Index.UserByFd(u.Fd) != nil {
		t.Fatal("expected fd forgotten after ping timeout")
	}
}

func TestSweepOneSendQErrorDisconnects(t *testing.T) {
	l, srv, u, _ := newTestLoop(t)
	u.SendQError = true

	if !l.sweepOne(u, time.Unix(2000, 0)) {
		t.Fatal("expected a pre-set SendQError to disconnect on the next sweep")
	}
	if srv.Index.UserByFd(u.Fd) != nil {
		t.Fatal("expected fd forgotten once swept")
	}
}

// TestShutdownWinsRaceAgainstCancel reproduces the signal-handler shape in
// cmd/ircd/main.go: Shutdown is called and ctx is cancelled immediately
// after, with no guarantee Run has observed the shutdown channel before the
// cancellation lands. Run must still reach broadcastShutdown rather than
// exiting silently on the cancelled context.
func TestShutdownWinsRaceAgainstCancel(t *testing.T) {
	l, srv, u, _ := newTestLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	l.Shutdown("Server shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown+cancel")
	}

	if srv.Index.UserByFd(u.Fd) != nil {
		t.Fatal("expected broadcastShutdown to have torn down the connected user")
	}
}
