package state

import "github.com/m-lab/ircd/metrics"

// QueueLine appends one CRLF-terminated line to u's sendQ, enforcing the
// configured SendQLimit: SendQ is hard-capped, and exceeding it sets the
// User's write-error flag rather than queuing a partial line. It reports
// whether the line was queued; on cap overrun it sets SendQError, leaving
// disconnection to the event loop's next tick.
func (u *User) QueueLine(raw string) bool {
	if u.SendQError {
		return false
	}
	line := raw + "\r\n"
	limit := u.SendQLimitOrDefault()
	if len(u.SendQ)+len(line) > limit {
		u.SendQError = true
		return false
	}
	u.SendQ = append(u.SendQ, line...)
	if hw := float64(len(u.SendQ)); hw > 0 {
		metrics.SendQHighWater.Observe(hw)
	}
	return true
}

// SendQLimitOrDefault returns the connect-class-assigned SendQ cap, or a
// conservative default if none has been applied yet (e.g. during the brief
// pre-registration window before ApplyConnectClass runs).
func (u *User) SendQLimitOrDefault() int {
	if u.sendQLimit > 0 {
		return u.sendQLimit
	}
	return 1024 * 1024
}

// SetSendQLimit records the connect class's sendq cap for this user.
func (u *User) SetSendQLimit(n int) { u.sendQLimit = n }
