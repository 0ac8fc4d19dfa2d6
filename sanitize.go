package wikigraph

import "strings"

var titleReplacer = strings.NewReplacer("_", " ")

func isLineBreak(r rune) bool { return r == '\n' || r == '\r' }

// Sanitize converts a raw title or link target into the key used for
// every store lookup.
//
// Keys are case-insensitive and treat underscores as spaces.  Each
// run of line breaks becomes a single space.  A single leading colon
// (as in [[:Category:Foo]]) is dropped.
func Sanitize(raw string) string {
	s := strings.Join(strings.FieldsFunc(strings.TrimSpace(raw), isLineBreak), " ")
	s = strings.ToLower(titleReplacer.Replace(s))
	return strings.TrimPrefix(s, ":")
}
