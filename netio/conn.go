package netio

import (
	"golang.org/x/sys/unix"
)

// ReadChunkSize is the per-readable-event read size: up to 16 KiB is
// appended to recvQ on each readable notification.
const ReadChunkSize = 16 * 1024

// ReadAvailable performs one non-blocking read from fd. ok is false and err
// is nil on EAGAIN/EWOULDBLOCK (nothing to do this iteration); ok is true
// and err is nil with a zero-length data slice on EOF (peer closed cleanly).
func ReadAvailable(fd int) (data []byte, ok bool, err error) {
	buf := make([]byte, ReadChunkSize)
	n, rerr := unix.Read(fd, buf)
	if rerr != nil {
		if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, rerr
	}
	if n == 0 {
		return nil, true, nil // EOF
	}
	return buf[:n], true, nil
}

// FlushResult reports the outcome of one WriteSendQ attempt.
type FlushResult struct {
	Written      int
	WritePending bool // EAGAIN hit; caller should enable EPOLLOUT interest
	Err          error
}

// WriteSendQ writes as much of sendQ as the socket will currently accept,
// flushing opportunistically: on EAGAIN/EWOULDBLOCK the connection is
// marked write-pending and the caller re-enables write interest. It never
// blocks.
func WriteSendQ(fd int, sendQ []byte) FlushResult {
	total := 0
	for total < len(sendQ) {
		n, err := unix.Write(fd, sendQ[total:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return FlushResult{Written: total, WritePending: true}
			}
			return FlushResult{Written: total, Err: err}
		}
		if n == 0 {
			break
		}
		total += n
	}
	return FlushResult{Written: total}
}

// CloseFd closes a raw connection fd once the event loop is done with it.
func CloseFd(fd int) error { return unix.Close(fd) }
