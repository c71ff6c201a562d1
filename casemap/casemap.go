// Package casemap implements RFC 1459 case folding for nick, channel and
// ident keys. Every index lookup in the server folds through this table
// rather than through strings.ToLower, since IRC casefolding additionally
// maps [ ] \ to { } |.
package casemap

// table is the fixed byte-to-byte mapping. ASCII A-Z fold to a-z, and
// [ ] \ ^ fold to { } | ~, per RFC 1459 section 2.2.
var table [256]byte

func init() {
	for i := 0; i < 256; i++ {
		table[i] = byte(i)
	}
	for c := byte('A'); c <= 'Z'; c++ {
		table[c] = c + ('a' - 'A')
	}
	table['['] = '{'
	table[']'] = '}'
	table['\\'] = '|'
	table['^'] = '~'
}

// Fold returns the case-folded form of s, suitable for use as a map key.
// Fold is idempotent: Fold(Fold(s)) == Fold(s).
func Fold(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[i] = table[s[i]]
	}
	return string(b)
}

// Equal reports whether a and b are the same nick/channel/ident under
// RFC 1459 folding.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if table[a[i]] != table[b[i]] {
			return false
		}
	}
	return true
}
