// Package connid generates process-unique correlation IDs for connections,
// used to match asynchronous reverse-DNS completions back to the
// connection that requested them. It follows a
// "hostname + boot instant" uniqueness strategy, simplified here to
// "process start instant + atomic counter" since an IRC server has no
// SO_COOKIE-equivalent kernel identifier to read back.
package connid

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var (
	prefix  string
	counter uint64
)

func init() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	prefix = fmt.Sprintf("%s_%d", hostname, time.Now().Unix())
}

// Next returns the next globally-unique-for-this-process connection ID.
func Next() string {
	n := atomic.AddUint64(&counter, 1)
	return fmt.Sprintf("%s_%X", prefix, n)
}
