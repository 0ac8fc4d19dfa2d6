package wikigraph

import (
	"strings"
)

// Link prefixes naming pages that are never articles.  A candidate
// is abandoned as soon as its accumulated text equals one of these.
var ignoredLinkPrefixes = map[string]bool{
	"File:":      true,
	"Image:":     true,
	"Wikipedia:": true,
	"WP:":        true,
	"Template:":  true,
	"MOS:":       true,
	"Help:":      true,
	"Draft:":     true,
	"User:":      true,
}

const maxLinkPrefix = len("Wikipedia:")

// Elements whose content is dropped up to the matching closing tag.
// Every other tag ends at its own '>'; many of them (<p>, <li>, <td>,
// <br>) are routinely left unclosed.
var skippedElements = map[string]bool{
	"ref":        true,
	"references": true,
	"gallery":    true,
	"imagemap":   true,
	"timeline":   true,
}

// Elements whose content is not markup; they end at their own
// closing tag regardless of what's inside.
var rawTextElements = map[string]bool{
	"nowiki":          true,
	"pre":             true,
	"math":            true,
	"chem":            true,
	"ce":              true,
	"score":           true,
	"source":          true,
	"syntaxhighlight": true,
}

// FindLinks finds all the article links from within an article body.
//
// Links are returned sanitized, in the order they appear, duplicates
// included.  Display aliases and section anchors are dropped.
// Templates ({{...}}), comments, references, galleries and the raw
// text elements (nowiki, pre, math, source) are skipped along with
// their content, as are links into non-article namespaces and
// disambiguation pages.  Other tags are dropped but their content is
// scanned.  A '<' that isn't followed by a letter, '/' or '!', or
// whose tag never closes, is plain text.
func FindLinks(text string) []string {
	s := linkScanner{text: text}
	s.scan()
	return s.links
}

type linkScanner struct {
	text   string
	pos    int
	inLink bool
	cur    strings.Builder
	links  []string
}

func (s *linkScanner) at(marker string) bool {
	return strings.HasPrefix(s.text[s.pos:], marker)
}

func (s *linkScanner) scan() {
	for s.pos < len(s.text) {
		c := s.text[s.pos]
		switch {
		case c == '[' && s.at("[["):
			s.pos += 2
			s.inLink = true
			s.cur.Reset()
		case c == ']' && s.at("]]"):
			s.pos += 2
			if s.inLink {
				s.closeLink()
			}
		case c == '{' && s.at("{{"):
			s.skipTemplate()
		case c == '<' && s.tagAt(s.pos):
			s.skipMarkup()
		case s.inLink:
			s.cur.WriteByte(c)
			s.pos++
			if s.cur.Len() <= maxLinkPrefix && ignoredLinkPrefixes[s.cur.String()] {
				s.inLink = false
				s.cur.Reset()
			}
		default:
			s.pos++
		}
	}
}

func (s *linkScanner) closeLink() {
	target := s.cur.String()
	s.inLink = false
	s.cur.Reset()

	if i := strings.IndexByte(target, '|'); i >= 0 {
		target = target[:i]
	}
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if strings.Contains(target, "(disambiguation)") {
		return
	}
	if key := Sanitize(target); key != "" {
		s.links = append(s.links, key)
	}
}

// skipTemplate consumes a {{...}} block, including nested ones.
func (s *linkScanner) skipTemplate() {
	depth := 0
	for s.pos < len(s.text) {
		switch {
		case s.at("{{"):
			depth++
			s.pos += 2
		case s.at("}}"):
			depth--
			s.pos += 2
			if depth == 0 {
				return
			}
		default:
			s.pos++
		}
	}
}

// tagAt reports whether the '<' at i starts a tag rather than being
// a bare less-than sign.
func (s *linkScanner) tagAt(i int) bool {
	if i+1 >= len(s.text) {
		return false
	}
	c := s.text[i+1]
	return c == '/' || c == '!' || isASCIILetter(c)
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

type tag struct {
	name        string
	closing     bool
	selfClosing bool
	comment     bool
}

// readTag consumes the tag starting at s.pos.  It returns false if
// the tag is never terminated.
func (s *linkScanner) readTag() (tag, bool) {
	if s.at("<!--") {
		end := strings.Index(s.text[s.pos+4:], "-->")
		if end < 0 {
			return tag{}, false
		}
		s.pos += 4 + end + 3
		return tag{comment: true}, true
	}

	end := strings.IndexByte(s.text[s.pos+1:], '>')
	if end < 0 {
		return tag{}, false
	}
	inner := s.text[s.pos+1 : s.pos+1+end]
	s.pos += end + 2

	t := tag{}
	switch {
	case strings.HasPrefix(inner, "!"):
		t.comment = true
		return t, true
	case strings.HasPrefix(inner, "/"):
		t.closing = true
		inner = inner[1:]
	case strings.HasSuffix(inner, "/"):
		t.selfClosing = true
	}
	n := 0
	for n < len(inner) && (isASCIILetter(inner[n]) || ('0' <= inner[n] && inner[n] <= '9')) {
		n++
	}
	t.name = strings.ToLower(inner[:n])
	return t, true
}

// skipMarkup consumes the tag at s.pos.  Skipped elements take their
// content with them, tracked per element, so <ref><ref></ref></ref>
// ends at the last </ref>.
func (s *linkScanner) skipMarkup() {
	depth := 0
	for {
		t, ok := s.readTag()
		if !ok {
			if depth == 0 && !s.at("<!--") {
				s.pos++
				return
			}
			s.pos = len(s.text)
			return
		}
		switch {
		case t.comment, t.selfClosing:
		case rawTextElements[t.name] && !t.closing:
			s.skipRawText(t.name)
		case !skippedElements[t.name]:
		case t.closing:
			depth--
		default:
			depth++
		}
		if depth <= 0 {
			return
		}
		if !s.nextTag() {
			return
		}
	}
}

// nextTag advances to the next tag start, or to the end of the text.
func (s *linkScanner) nextTag() bool {
	for s.pos < len(s.text) {
		i := strings.IndexByte(s.text[s.pos:], '<')
		if i < 0 {
			break
		}
		s.pos += i
		if s.tagAt(s.pos) {
			return true
		}
		s.pos++
	}
	s.pos = len(s.text)
	return false
}

// skipRawText consumes everything up to and including </name>.
func (s *linkScanner) skipRawText(name string) {
	for {
		i := strings.Index(s.text[s.pos:], "</")
		if i < 0 {
			s.pos = len(s.text)
			return
		}
		s.pos += i + 2
		if len(s.text)-s.pos >= len(name) && strings.EqualFold(s.text[s.pos:s.pos+len(name)], name) {
			end := strings.IndexByte(s.text[s.pos:], '>')
			if end < 0 {
				s.pos = len(s.text)
				return
			}
			s.pos += end + 1
			return
		}
	}
}
