package state

import (
	"encoding/json"
	"os"
	"time"
)

// ChannelSnapshot is one row of a point-in-time channel dump, tagged for
// gocsv so cmd/ircd-statsdump can export it as a CSV table.
type ChannelSnapshot struct {
	Name        string `csv:"name"`
	CreatedUnix int64  `csv:"created_unix"`
	Topic       string `csv:"topic"`
	Members     int    `csv:"members"`
}

// UserSnapshot is one row of a point-in-time connected-user dump.
type UserSnapshot struct {
	Nick        string `csv:"nick"`
	Ident       string `csv:"ident"`
	Host        string `csv:"host"`
	GECOS       string `csv:"gecos"`
	Channels    int    `csv:"channels"`
	IdleSeconds int64  `csv:"idle_seconds"`
	Oper        bool   `csv:"oper"`
}

// ChannelSnapshots returns one ChannelSnapshot per currently-indexed
// channel, for STATS-style introspection and cmd/ircd-statsdump.
func (s *Server) ChannelSnapshots() []ChannelSnapshot {
	chans := s.Index.Channels()
	out := make([]ChannelSnapshot, 0, len(chans))
	for _, ch := range chans {
		out = append(out, ChannelSnapshot{
			Name:        ch.Name,
			CreatedUnix: ch.CreatedAt.Unix(),
			Topic:       ch.Topic,
			Members:     len(ch.Members),
		})
	}
	return out
}

// UserSnapshots returns one UserSnapshot per fully-registered User, as of
// now (used to compute idle time).
func (s *Server) UserSnapshots(now time.Time) []UserSnapshot {
	users := s.Index.Users()
	out := make([]UserSnapshot, 0, len(users))
	for _, u := range users {
		out = append(out, UserSnapshot{
			Nick:        u.Nick,
			Ident:       u.Ident,
			Host:        s.HostFor(u),
			GECOS:       u.GECOS,
			Channels:    len(u.ChannelNames),
			IdleSeconds: int64(now.Sub(u.LastActivity) / time.Second),
			Oper:        u.IsOper(),
		})
	}
	return out
}

// Snapshot bundles both tables into a single point-in-time dump.
type Snapshot struct {
	TakenUnix int64             `json:"taken_unix"`
	Channels  []ChannelSnapshot `json:"channels"`
	Users     []UserSnapshot    `json:"users"`
}

// TakeSnapshot captures both tables as of now.
func (s *Server) TakeSnapshot(now time.Time) Snapshot {
	return Snapshot{
		TakenUnix: now.Unix(),
		Channels:  s.ChannelSnapshots(),
		Users:     s.UserSnapshots(now),
	}
}

// WriteJSON writes snap to path as indented JSON, overwriting any existing
// file — the live status file cmd/ircd-statsdump reads.
func (snap Snapshot) WriteJSON(path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
