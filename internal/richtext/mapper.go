// Package richtext maps between stored rich markup and the plain-text
// projection that AI providers read and write.
//
// The projection strips tags, decodes entities and renders every closing
// block tag (and every <br>) as a single space. Offsets in the projection
// count runes; offsets into markup are byte offsets.
package richtext

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Span is a half-open byte range [Start, End) inside a markup string
type Span struct {
	Start int
	End   int
}

// Len returns the byte length of the span
func (s Span) Len() int {
	return s.End - s.Start
}

// separator is the projection of a block boundary
const separator = ' '

// maxEntityLen bounds how far an entity reference is searched for its ';'
const maxEntityLen = 32

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"pre": true, "code": true,
}

// MapRange converts a plain-text range into a byte span of markup.
// ok is false when either boundary cannot be located, either because the
// range runs past the content or the markup is malformed.
func MapRange(markup string, start, length int) (span Span, ok bool) {
	if start < 0 || length < 0 {
		return Span{}, false
	}
	end := start + length
	startOff, endOff := -1, -1

	// The start boundary binds lazily to the next visible character so
	// opening tags stay outside the span; the end boundary binds eagerly
	// right after the last character so closing tags stay outside too.
	if length == 0 {
		endOff = -2 // resolved from startOff below
	}

	err := scan(markup, func(tok token) bool {
		if startOff < 0 && tok.plain <= start && start < tok.plain+tok.width {
			startOff = tok.pos
		}
		if endOff == -1 && tok.plain+tok.width >= end && tok.plain < end {
			endOff = tok.pos + tok.size
		}
		return startOff < 0 || endOff == -1
	})
	if err != nil {
		return Span{}, false
	}

	total := plainLen(markup)
	if startOff < 0 && start == total {
		startOff = len(markup)
	}
	if endOff == -2 {
		endOff = startOff
	}
	if startOff < 0 || endOff < 0 {
		return Span{}, false
	}
	if endOff < startOff {
		startOff, endOff = endOff, startOff
	}
	return Span{Start: startOff, End: endOff}, true
}

// MapRangeOrWhole maps the range, falling back to the whole markup when a
// boundary cannot be located. whole reports whether the fallback was taken.
func MapRangeOrWhole(markup string, start, length int) (span Span, whole bool) {
	if s, ok := MapRange(markup, start, length); ok {
		return s, false
	}
	return Span{Start: 0, End: len(markup)}, true
}

// Replace splices HTML-encoded text over the plain-text range.
// It reports whether the whole markup was replaced instead.
func Replace(markup string, start, length int, text string) (string, bool) {
	span, whole := MapRangeOrWhole(markup, start, length)
	return markup[:span.Start] + EncodeText(text) + markup[span.End:], whole
}

// EncodeText escapes text for insertion into markup
func EncodeText(text string) string {
	return html.EscapeString(text)
}

// token is one unit of the projection: a visible rune, a decoded entity or
// a block separator. plain is its offset in the projection, width the number
// of projected runes it produces, pos and size its byte range in markup.
type token struct {
	plain int
	width int
	pos   int
	size  int
	text  string
	sep   bool
}

type malformedError struct {
	pos int
}

func (e *malformedError) Error() string {
	return "malformed markup at byte " + strconv.Itoa(e.pos)
}

// scan walks markup emitting projection tokens until fn returns false
func scan(markup string, fn func(token) bool) error {
	plain := 0
	i := 0
	for i < len(markup) {
		c := markup[i]
		switch c {
		case '<':
			if strings.HasPrefix(markup[i:], "<!--") {
				j := strings.Index(markup[i+4:], "-->")
				if j < 0 {
					return &malformedError{pos: i}
				}
				i += 4 + j + 3
				continue
			}
			j := strings.IndexByte(markup[i:], '>')
			if j < 0 {
				return &malformedError{pos: i}
			}
			tag := markup[i : i+j+1]
			if tag[1] == '!' || tag[1] == '?' {
				i += len(tag)
				continue
			}
			name, closing := tagName(tag)
			if name == "" {
				return &malformedError{pos: i}
			}
			if name == "br" || (closing && blockTags[name]) {
				tok := token{plain: plain, width: 1, pos: i, size: len(tag), text: string(separator), sep: true}
				if !fn(tok) {
					return nil
				}
				plain++
			}
			i += len(tag)
		case '&':
			if ref, decoded, ok := entityAt(markup, i); ok {
				w := utf8.RuneCountInString(decoded)
				if !fn(token{plain: plain, width: w, pos: i, size: len(ref), text: decoded}) {
					return nil
				}
				plain += w
				i += len(ref)
				continue
			}
			fallthrough
		default:
			r, size := utf8.DecodeRuneInString(markup[i:])
			if !fn(token{plain: plain, width: 1, pos: i, size: size, text: string(r)}) {
				return nil
			}
			plain++
			i += size
		}
	}
	return nil
}

// tagName returns the lower-cased element name of a tag like "</P >"
func tagName(tag string) (name string, closing bool) {
	body := strings.TrimSpace(tag[1 : len(tag)-1])
	if strings.HasPrefix(body, "/") {
		closing = true
		body = strings.TrimSpace(body[1:])
	}
	end := strings.IndexFunc(body, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-')
	})
	if end < 0 {
		end = len(body)
	}
	return strings.ToLower(body[:end]), closing
}

// entityAt decodes the character reference starting at markup[i]
func entityAt(markup string, i int) (ref, decoded string, ok bool) {
	limit := min(len(markup), i+maxEntityLen)
	j := strings.IndexByte(markup[i:limit], ';')
	if j < 2 {
		return "", "", false
	}
	ref = markup[i : i+j+1]
	decoded = html.UnescapeString(ref)
	if decoded == ref {
		return "", "", false
	}
	return ref, decoded, true
}

func plainLen(markup string) int {
	n := 0
	_ = scan(markup, func(tok token) bool {
		n = tok.plain + tok.width
		return true
	})
	return n
}
