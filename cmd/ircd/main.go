// Command ircd runs the server: it loads configuration, binds every
// configured listener, and drives eventloop.Loop until SIGTERM (or its
// iteration budget, in tests) is reached. Flag/startup/signal handling
// follows a familiar daemon shape (flag vars, flagx.ArgsFromEnv, rtx.Must
// for fatal startup errors, prometheusx.MustStartPrometheus on a side
// port) generalized from a fixed one-shot run to a long-lived daemon, with
// SIGHUP/SIGTERM handling added for the config-reload and
// graceful-shutdown operations an IRC server needs.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ircd/command"
	"github.com/m-lab/ircd/config"
	"github.com/m-lab/ircd/dns"
	"github.com/m-lab/ircd/eventloop"
	"github.com/m-lab/ircd/netio"
	"github.com/m-lab/ircd/state"
)

var (
	confPath = flag.String("conf", "ircd.json", "Path to the JSON configuration file")
	promAddr = flag.String("prom", ":9090", "Prometheus metrics export address and port")
	pidFile  = flag.String("pidfile", "", "If set, write the process id to this path on startup")
	logFile  = flag.String("logfile", "", "If set, write logs to this path instead of stderr")
	noLog    = flag.Bool("nolog", false, "Discard all log output")
	debug    = flag.Bool("debug", false, "Enable verbose (file:line) logging")
	noFork   = flag.Bool("nofork", true, "Accepted for daemon-CLI parity; this binary never forks to the background")
	wait     = flag.Duration("wait", 0, "Sleep this long before binding listeners, for orchestrated startup")
	reps     = flag.Int("reps", 0, "If >0, run only this many event-loop iterations then return instead of serving forever (for tests)")

	ctx, cancel = context.WithCancel(context.Background())
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	configureLogging()
	if *noFork {
		log.Println("running in the foreground (this binary never daemonizes)")
	}
	if *wait > 0 {
		time.Sleep(*wait)
	}
	if *pidFile != "" {
		rtx.Must(writePidFile(*pidFile), "could not write pidfile %s", *pidFile)
	}

	cfg, diags := config.LoadFile(*confPath)
	for _, d := range diags {
		log.Println("config:", d.String())
	}

	promSrv := prometheusx.MustStartPrometheus(*promAddr)
	defer promSrv.Shutdown(ctx)

	srv := state.NewServer(cfg, time.Now())
	registry := command.NewBuiltinRegistry()

	resolver := dns.NewResolver(cfg.DNSTimeout)
	resolver.Start(ctx, 4)

	poller, err := netio.NewPoller(1024)
	rtx.Must(err, "could not create epoll instance")
	defer poller.Close()

	listeners := make([]*netio.Listener, 0, len(cfg.Binds))
	for _, b := range cfg.Binds {
		ln, err := netio.Listen(b)
		rtx.Must(err, "could not bind %s:%d", b.Address, b.Port)
		listeners = append(listeners, ln)
		log.Printf("listening on %s:%d", b.Address, b.Port)
	}

	loop := eventloop.New(srv, registry, resolver, poller, listeners)
	loop.ConfigPath = *confPath
	rtx.Must(loop.Start(), "could not register listeners with the poller")

	handleSignals(loop)

	loop.Run(ctx, *reps)

	for _, ln := range listeners {
		ln.Close()
	}
	log.Println("ircd shut down")
}

// handleSignals wires SIGHUP to reopening -logfile (when set) and a rehash
// request (serviced on the loop's own goroutine, never from the signal
// handler itself — only one goroutine may touch Server state) and SIGTERM
// to a graceful shutdown: every
// connection gets a final ERROR line, then the loop's context is
// cancelled so Run returns.
func handleSignals(loop *eventloop.Loop) {
	sigc := make(chan os.Signal, 4)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for sig := range sigc {
			switch sig {
			case syscall.SIGHUP:
				log.Println("SIGHUP received, rehashing")
				if *logFile != "" && !*noLog {
					f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
					if err != nil {
						log.Println("could not reopen logfile:", err)
					} else {
						old := log.Writer()
						log.SetOutput(f)
						if c, ok := old.(*os.File); ok && c != os.Stderr {
							c.Close()
						}
					}
				}
				loop.RequestRehash()
			case syscall.SIGTERM, syscall.SIGINT:
				log.Println("shutdown signal received, closing connections")
				loop.Shutdown("Server shutdown")
				cancel()
				return
			}
		}
	}()
}

func configureLogging() {
	if *noLog {
		log.SetOutput(io.Discard)
		return
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		rtx.Must(err, "could not open logfile %s", *logFile)
		log.SetOutput(f)
	}
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
}

func writePidFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}
