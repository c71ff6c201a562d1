// Package glob implements the small IRC-style wildcard matcher used for
// host globs, ban masks and X-line masks throughout the server: '*' matches
// any run of characters (including none), '?' matches exactly one
// character, matching is case-insensitive under casemap folding.
package glob

import (
	"net"

	"github.com/m-lab/ircd/casemap"
)

// Match reports whether s matches pattern under '*'/'?' wildcard rules,
// case-insensitively.
func Match(pattern, s string) bool {
	return match(casemap.Fold(pattern), casemap.Fold(s))
}

// MatchHost reports whether host satisfies pattern: a textual glob match
// against host, or — when pattern parses as a CIDR and ip is a valid
// address — a numeric containment check against ip. Callers that only
// have an address and no separate hostname pass the same string for both.
func MatchHost(pattern, host, ip string) bool {
	if Match(pattern, host) {
		return true
	}
	if ip == "" {
		return false
	}
	_, ipnet, err := net.ParseCIDR(pattern)
	if err != nil {
		return false
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return ipnet.Contains(addr)
}

// match is an iterative glob matcher. Patterns in this domain are short
// (host masks), and the classic two-pointer algorithm
// (track the last '*' seen and retry from there) is used instead of
// recursion to avoid pathological backtracking on adversarial masks.
func match(pattern, s string) bool {
	pi, si := 0, 0
	starIdx, match := -1, 0
	for si < len(s) {
		if pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]) {
			pi++
			si++
		} else if pi < len(pattern) && pattern[pi] == '*' {
			starIdx = pi
			match = si
			pi++
		} else if starIdx != -1 {
			pi = starIdx + 1
			match++
			si = match
		} else {
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
