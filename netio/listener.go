package netio

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/m-lab/ircd/config"
)

// Listener owns one non-blocking listening socket bound to a TCP port,
// accepting and registering new Users. Multiple binds (config.Bind
// entries) each get their own Listener, all registered with the same
// Poller.
type Listener struct {
	Fd      int
	Address string
	Port    int
}

// Listen creates a non-blocking, SO_REUSEADDR TCP listening socket bound
// to b, as a raw non-blocking socket so it can be registered directly
// with a Poller instead of handed to goroutine-based net.Listener.Accept.
func Listen(b config.Bind) (*Listener, error) {
	ip := net.ParseIP(b.Address)
	if ip == nil {
		ip = net.IPv4zero
	}
	if v4 := ip.To4(); v4 != nil {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			return nil, fmt.Errorf("socket: %w", err)
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("setsockopt: %w", err)
		}
		var addr [4]byte
		copy(addr[:], v4)
		if err := unix.Bind(fd, &unix.SockaddrInet4{Port: b.Port, Addr: addr}); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("bind %s:%d: %w", b.Address, b.Port, err)
		}
		if err := unix.Listen(fd, 128); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("listen: %w", err)
		}
		return &Listener{Fd: fd, Address: b.Address, Port: b.Port}, nil
	}

	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt: %w", err)
	}
	var addr [16]byte
	copy(addr[:], ip.To16())
	if err := unix.Bind(fd, &unix.SockaddrInet6{Port: b.Port, Addr: addr}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind [%s]:%d: %w", b.Address, b.Port, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Listener{Fd: fd, Address: b.Address, Port: b.Port}, nil
}

// Close releases the listening socket.
func (l *Listener) Close() error { return unix.Close(l.Fd) }

// Accept accepts one pending connection, already non-blocking, returning
// its fd and the peer's IP address string. A nil error with fd == -1 means
// no connection was ready (EAGAIN), which the caller treats as a no-op.
func (l *Listener) Accept() (fd int, remoteIP string, err error) {
	connFd, sa, err := unix.Accept4(l.Fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return -1, "", nil
		}
		return -1, "", err
	}
	return connFd, sockaddrIP(sa), nil
}

func sockaddrIP(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String()
	default:
		return ""
	}
}
