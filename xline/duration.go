package xline

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses a line-command duration argument into a
// time.Duration: a bare integer is a count of seconds, and a string of
// digit-run+unit pairs ("1h", "2d12h", "1w") sums each component. "0"
// (or "") means permanent. Recognized units are s/m/h/d/w/y.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("xline: negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}

	units := map[byte]time.Duration{
		's': time.Second,
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
		'y': 365 * 24 * time.Hour,
	}

	var total time.Duration
	var num int64
	haveDigits := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num = num*10 + int64(c-'0')
			haveDigits = true
		default:
			unit, ok := units[c]
			if !ok || !haveDigits {
				return 0, fmt.Errorf("xline: invalid duration %q", s)
			}
			total += time.Duration(num) * unit
			num = 0
			haveDigits = false
		}
	}
	if haveDigits {
		return 0, fmt.Errorf("xline: invalid duration %q", s)
	}
	return total, nil
}
