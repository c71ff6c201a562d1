// Package netio implements the non-blocking socket layer: an epoll-backed
// readiness poller, a multi-bind TCP listener, and the line codec that
// turns raw recvQ bytes into complete protocol lines. It favors a
// single-threaded, readiness-driven model over a goroutine-per-client,
// mutex-guarded design: one thread owns every User, and the poller's Wait
// is the only blocking call in the loop.
package netio

// maxLineLen is the wire limit: 512 bytes including the terminating CRLF,
// i.e. 510 bytes of content.
const maxLineLen = 510

// ExtractLines scans buf for complete lines, sanitizing 0x00/0x07 to space
// and dropping a trailing \r before each \n. A line that reaches
// maxLineLen bytes without finding a terminator is truncated to 510 bytes
// and emitted immediately as if terminated, then every further byte up to
// the next \n is discarded: the rest of the oversized line is thrown
// away, not buffered.
//
// truncating carries the "still discarding an oversized line" state across
// calls, since one read may split the discarded remainder across two
// recvQ appends. remaining is whatever trailing, not-yet-terminated bytes
// should be kept in recvQ for the next call.
func ExtractLines(buf []byte, truncating bool) (lines []string, remaining []byte, stillTruncating bool) {
	var cur []byte
	for _, b := range buf {
		if b == '\n' {
			if !truncating {
				lines = append(lines, finishLine(cur))
			}
			cur = cur[:0]
			truncating = false
			continue
		}
		if truncating {
			continue
		}
		if b == 0x00 || b == 0x07 {
			b = ' '
		}
		cur = append(cur, b)
		if len(cur) >= maxLineLen {
			lines = append(lines, finishLine(cur))
			cur = cur[:0]
			truncating = true
		}
	}
	if truncating {
		return lines, nil, true
	}
	return lines, cur, false
}

// finishLine drops a trailing \r, if any, and returns the line as a string.
func finishLine(cur []byte) string {
	if n := len(cur); n > 0 && cur[n-1] == '\r' {
		cur = cur[:n-1]
	}
	return string(cur)
}

// AppendRecv appends data to recvQ, enforcing the hard recvQ cap: recvQ
// is capped at limit, and exceeding it should kill the connection with a
// "RecvQ exceeded" error. It reports whether the append stayed within
// limit; on overflow recvQ is returned unchanged so the caller can
// disconnect without having grown the buffer further.
func AppendRecv(recvQ []byte, data []byte, limit int) (out []byte, ok bool) {
	if len(recvQ)+len(data) > limit {
		return recvQ, false
	}
	return append(recvQ, data...), true
}
