// Package config loads the server's on-disk JSON configuration and holds
// the collaborator-supplied values the core consumes. Loading never panics:
// malformed or missing values are collected into a diagnostics slice and the
// last-known-good config is kept, an explicit-error-return discipline rather
// than an abort-on-first-error one.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/m-lab/ircd/glob"
)

// OperBlock is one configured operator credential.
type OperBlock struct {
	Name             string `json:"name"`
	HostGlob         string `json:"host_glob"`
	PasswordHashKind string `json:"password_hash_kind"`
	Password         string `json:"password"`
	Type             string `json:"type"`
}

// OperType is a named bundle of operator privileges.
type OperType struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	ChannelModes string  `json:"chmodes"`
	UserModes   string   `json:"umodes"`
	VHost       string   `json:"vhost"`
}

// ConnectClass bundles flood/limit parameters matched by host glob.
type ConnectClass struct {
	HostGlob   string `json:"host_glob"`
	FloodLimit int    `json:"flood_limit"`
	// ThresholdMS is the flood window width, in milliseconds.
	ThresholdMS int   `json:"threshold_ms"`
	SendQLimit  int   `json:"sendq"`
	RecvQLimit  int   `json:"recvq"`
	MaxChannels int   `json:"max_chans"`
}

// Bind describes one listening port.
type Bind struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	TLS     bool   `json:"tls"`
}

// XlineSeed is an initial K/G/Z/Q/E entry loaded at startup.
type XlineSeed struct {
	Kind     string `json:"kind"` // K, G, Z, Q, E
	Mask     string `json:"mask"`
	Setter   string `json:"setter"`
	Reason   string `json:"reason"`
	Duration int64  `json:"duration_seconds"` // 0 = permanent
}

// Config is the full set of values the core consumes. MOTD text, daemonizing
// and module loading are out of scope and live with the external
// collaborator, not here.
type Config struct {
	ServerName    string `json:"server_name"`
	NetworkName   string `json:"network_name"`
	MaxClientsSoft int   `json:"max_clients_soft"`
	NetBufferSize int    `json:"net_buffer_size"`
	RecvQLimit    int    `json:"recvq_limit"`
	SendQLimit    int    `json:"sendq_limit"`
	PingPeriod    time.Duration `json:"-"`
	PingPeriodSeconds int       `json:"ping_period"`
	RegTimeout        time.Duration `json:"-"`
	RegTimeoutSeconds int           `json:"reg_timeout"`
	DNSTimeout        time.Duration `json:"-"`
	DNSTimeoutSeconds int           `json:"dns_timeout"`

	OperBlocks       []OperBlock    `json:"oper_block"`
	OperTypes        []OperType     `json:"oper_type"`
	ConnectClasses   []ConnectClass `json:"connect_class"`
	Binds            []Bind         `json:"bind"`
	XlineSeeds       []XlineSeed    `json:"xline_seed"`
	DisabledCommands []string       `json:"disabled_commands"`

	// StatsDumpPath, if set, is where the event loop periodically writes a
	// JSON snapshot of connected users and channels for cmd/ircd-statsdump
	// to read. Empty disables the dump.
	StatsDumpPath string `json:"stats_dump_path"`
}

// Default returns a minimal, internally consistent configuration suitable
// for tests and for a first run with no config file present.
func Default() *Config {
	return &Config{
		ServerName:        "irc.example.net",
		NetworkName:       "ExampleNet",
		MaxClientsSoft:    4096,
		NetBufferSize:     16 * 1024,
		RecvQLimit:        8 * 1024,
		SendQLimit:        1024 * 1024,
		PingPeriod:        90 * time.Second,
		PingPeriodSeconds: 90,
		RegTimeout:        60 * time.Second,
		RegTimeoutSeconds: 60,
		DNSTimeout:        0,
		DNSTimeoutSeconds: 0,
		ConnectClasses: []ConnectClass{
			{HostGlob: "*", FloodLimit: 20, ThresholdMS: 2000, SendQLimit: 1024 * 1024, RecvQLimit: 8 * 1024, MaxChannels: 20},
		},
		Binds: []Bind{{Address: "0.0.0.0", Port: 6667}},
	}
}

// Diagnostic is one problem encountered while loading a config document.
// Loading collects these instead of aborting: a bad rehash notices operators
// and keeps the last-good config rather than tearing the server down.
type Diagnostic struct {
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Field, d.Message)
}

// Load reads and validates a JSON config document from r. On any structural
// or semantic problem it returns the default config together with a
// non-empty diagnostics slice; the caller decides whether to keep the
// previous config or adopt partial defaults. Load never panics.
func Load(r io.Reader) (*Config, []Diagnostic) {
	cfg := Default()
	var diags []Diagnostic

	dec := json.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return Default(), []Diagnostic{{Field: "(root)", Message: "empty config document"}}
		}
		return Default(), []Diagnostic{{Field: "(root)", Message: err.Error()}}
	}

	diags = append(diags, validate(cfg)...)
	cfg.PingPeriod = time.Duration(cfg.PingPeriodSeconds) * time.Second
	cfg.RegTimeout = time.Duration(cfg.RegTimeoutSeconds) * time.Second
	cfg.DNSTimeout = time.Duration(cfg.DNSTimeoutSeconds) * time.Second
	return cfg, diags
}

// LoadFile opens path and calls Load on its contents. A missing file is not
// an error: it returns the default config with no diagnostics, matching the
// "reasonable zero-config startup" shape operators expect from -conf.
func LoadFile(path string) (*Config, []Diagnostic) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), []Diagnostic{{Field: "(file)", Message: err.Error()}}
	}
	defer f.Close()
	return Load(f)
}

func validate(cfg *Config) []Diagnostic {
	var diags []Diagnostic
	if cfg.ServerName == "" {
		diags = append(diags, Diagnostic{Field: "server_name", Message: "must not be empty"})
		cfg.ServerName = Default().ServerName
	}
	if len(cfg.Binds) == 0 {
		diags = append(diags, Diagnostic{Field: "bind", Message: "no listen addresses configured"})
		cfg.Binds = Default().Binds
	}
	if len(cfg.ConnectClasses) == 0 {
		diags = append(diags, Diagnostic{Field: "connect_class", Message: "no connect classes configured"})
		cfg.ConnectClasses = Default().ConnectClasses
	}
	if cfg.PingPeriodSeconds <= 0 {
		diags = append(diags, Diagnostic{Field: "ping_period", Message: "must be positive, using default"})
		cfg.PingPeriodSeconds = Default().PingPeriodSeconds
	}
	if cfg.RegTimeoutSeconds <= 0 {
		diags = append(diags, Diagnostic{Field: "reg_timeout", Message: "must be positive, using default"})
		cfg.RegTimeoutSeconds = Default().RegTimeoutSeconds
	}
	for i := range cfg.XlineSeeds {
		k := cfg.XlineSeeds[i].Kind
		if k != "K" && k != "G" && k != "Z" && k != "Q" && k != "E" {
			diags = append(diags, Diagnostic{Field: "xline_seed", Message: fmt.Sprintf("unknown kind %q", k)})
		}
	}
	return diags
}

// MatchConnectClass returns the first ConnectClass whose host glob matches
// host, or the last entry in the list as a catch-all default if none match
// and the list is non-empty (by convention the last entry's glob is "*").
func (c *Config) MatchConnectClass(host string) *ConnectClass {
	for i := range c.ConnectClasses {
		if glob.Match(c.ConnectClasses[i].HostGlob, host) {
			return &c.ConnectClasses[i]
		}
	}
	if len(c.ConnectClasses) > 0 {
		return &c.ConnectClasses[len(c.ConnectClasses)-1]
	}
	return nil
}
