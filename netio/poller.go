package netio

import (
	"golang.org/x/sys/unix"
)

// Event is one readiness notification returned by Poller.Wait.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Error    bool
}

// Poller wraps a single epoll instance: non-blocking sockets multiplexed
// by a single readiness mechanism, built on the epoll_create1/epoll_ctl/
// epoll_wait triad via golang.org/x/sys/unix.
type Poller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates an epoll instance sized for up to maxEvents readiness
// notifications per Wait call.
func NewPoller(maxEvents int) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if maxEvents <= 0 {
		maxEvents = 1024
	}
	return &Poller{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

// Close releases the underlying epoll fd.
func (p *Poller) Close() error { return unix.Close(p.epfd) }

// Add registers fd for read readiness (and write readiness too, if
// writeInterest is set — used while a sendQ flush is write-pending).
func (p *Poller) Add(fd int, writeInterest bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: epollMask(writeInterest),
		Fd:     int32(fd),
	})
}

// Modify updates fd's interest set, used to enable/disable EPOLLOUT once a
// write-pending sendQ has drained.
func (p *Poller) Modify(fd int, writeInterest bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: epollMask(writeInterest),
		Fd:     int32(fd),
	})
}

// Remove unregisters fd, e.g. once its connection is closed.
func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func epollMask(writeInterest bool) uint32 {
	mask := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if writeInterest {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Wait blocks up to timeoutMS milliseconds — the readiness wait at the
// top of the loop iteration, the loop's only suspension point — and
// returns every ready fd. A negative timeout blocks indefinitely; this is
// never used here since the event loop always passes the time until the
// next tick.
func (p *Poller) Wait(timeoutMS int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		out = append(out, Event{
			Fd:       int(ev.Fd),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Error:    ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return out, nil
}
