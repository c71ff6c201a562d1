// Command ircd-statsdump converts a JSON snapshot file written by the
// running server (Config.StatsDumpPath) into CSV: open a file or stdin,
// decode the internal record type, hand it to gocsv.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/ircd/state"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var table = flag.String("type", "users", "Which table to emit: \"users\" or \"channels\"")

// readSnapshot decodes one JSON Snapshot document from rdr.
func readSnapshot(rdr io.Reader) (*state.Snapshot, error) {
	var snap state.Snapshot
	if err := json.NewDecoder(rdr).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func toCSV(snap *state.Snapshot, which string, wtr io.Writer) error {
	switch which {
	case "channels":
		return gocsv.Marshal(snap.Channels, wtr)
	default:
		return gocsv.Marshal(snap.Users, wtr)
	}
}

// openFile opens fn, or returns os.Stdin if fn is empty.
func openFile(fn string) (io.ReadCloser, error) {
	if fn == "" {
		return os.Stdin, nil
	}
	return os.Open(fn)
}

func main() {
	flag.Parse()
	args := flag.Args()

	var fn string
	if len(args) == 1 {
		fn = args[0]
	} else if len(args) > 1 {
		log.Fatal("Too many command-line arguments.")
	}

	source, err := openFile(fn)
	rtx.Must(err, "Could not open file %q", fn)
	defer source.Close()

	snap, err := readSnapshot(source)
	rtx.Must(err, "Could not read snapshot")
	rtx.Must(toCSV(snap, *table, os.Stdout), "Could not convert snapshot to CSV")
}
