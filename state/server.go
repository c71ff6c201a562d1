package state

import (
	"net"
	"time"

	"github.com/m-lab/go/anonymize"

	"github.com/m-lab/ircd/config"
	"github.com/m-lab/ircd/xline"
)

// Server bundles the Index, the X-line store and the live configuration
// into a single value threaded through every handler instead of reaching
// into package-level globals. It owns no I/O of its own; netio and
// eventloop hold the fds and the poller, and call into Server's
// state-mutation helpers.
type Server struct {
	Index  *Index
	Xlines *xline.Store
	Config *config.Config

	// Anonymizer masks a User's IP in the WHO/WHOIS/USERHOST host field
	// and in stats snapshots once they've set +x (host-hiding); the same
	// "anonymize before it leaves the process" concern inetdiag.Anonymize
	// applies to captured connection tuples.
	Anonymizer anonymize.IPAnonymizer

	StartedAt time.Time
}

// NewServer wires an Index, a fresh X-line store seeded from cfg, and cfg
// itself into a Server.
func NewServer(cfg *config.Config, now time.Time) *Server {
	s := &Server{
		Index:      NewIndex(),
		Xlines:     xline.New(),
		Config:     cfg,
		Anonymizer: anonymize.New(anonymize.Netblock),
		StartedAt:  now,
	}
	for _, seed := range cfg.XlineSeeds {
		s.Xlines.Add(&xline.Entry{
			Kind:     xline.Kind(seed.Kind),
			Mask:     seed.Mask,
			Setter:   seed.Setter,
			Reason:   seed.Reason,
			SetTime:  now,
			Duration: time.Duration(seed.Duration) * time.Second,
		})
	}
	return s
}

// CheckConnect runs the K/G/Z/Q X-line check (skipped when an E-line
// matches) for a connection that is completing registration. It does not
// consult the connect classes.
func (s *Server) CheckConnect(identHost, ip, nick string) *xline.Entry {
	return xline.CheckConnect(s.Xlines, identHost, ip, nick)
}

// ApplyConnectClass sets u's flood/queue/channel limits from the connect
// class matching its display host, falling back to Config defaults if no
// class matches (an empty ConnectClasses list after a bad rehash, say).
func (s *Server) ApplyConnectClass(u *User) {
	host := u.DisplayHost
	if host == "" {
		host = u.RealHost
	}
	if host == "" {
		host = u.IP
	}
	cc := s.Config.MatchConnectClass(host)
	if cc == nil {
		return
	}
	u.FloodLimit = cc.FloodLimit
	u.FloodWindowMS = cc.ThresholdMS
	u.MaxChannels = cc.MaxChannels
	u.SetSendQLimit(cc.SendQLimit)
}

// HostFor returns the host string to show for target in WHO/WHOIS replies
// and stats snapshots: its resolved DisplayHost normally, or the Server's
// Anonymizer applied to its raw IP once it has set user mode +x
// (host-hiding).
func (s *Server) HostFor(target *User) string {
	if target.UserModes&UserModeHostHiding == 0 {
		if target.DisplayHost != "" {
			return target.DisplayHost
		}
		return target.RealHost
	}
	ip := net.ParseIP(target.IP)
	if ip == nil {
		return target.DisplayHost
	}
	masked := append(net.IP(nil), ip...)
	s.Anonymizer.IP(masked)
	return masked.String()
}
