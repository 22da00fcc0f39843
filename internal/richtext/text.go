package richtext

import "strings"

// PlainText returns the plain-text projection of markup.
// Malformed markup projects up to the first malformed tag.
func PlainText(markup string) string {
	var b strings.Builder
	_ = scan(markup, func(tok token) bool {
		b.WriteString(tok.text)
		return true
	})
	return b.String()
}

// Slice returns the projected text of a plain-text range, clamped to the content
func Slice(markup string, start, length int) string {
	runes := []rune(PlainText(markup))
	lo, hi := clamp(start, len(runes)), clamp(start+length, len(runes))
	if hi < lo {
		lo, hi = hi, lo
	}
	return string(runes[lo:hi])
}

// Excerpt is the text around a selection
type Excerpt struct {
	Selected  string
	Before    string // Up to radius runes before the selection
	After     string // Up to radius runes after the selection
	Paragraph string // Block containing the selection start
}

// ExcerptAt extracts the selection and its surroundings from markup
func ExcerptAt(markup string, start, length, radius int) Excerpt {
	var (
		runes  []rune
		breaks []int // projection offsets of block separators
	)
	_ = scan(markup, func(tok token) bool {
		if tok.sep {
			breaks = append(breaks, tok.plain)
		}
		runes = append(runes, []rune(tok.text)...)
		return true
	})

	n := len(runes)
	lo, hi := clamp(start, n), clamp(start+length, n)
	if hi < lo {
		lo, hi = hi, lo
	}

	ex := Excerpt{
		Selected: string(runes[lo:hi]),
		Before:   string(runes[clamp(lo-radius, n):lo]),
		After:    string(runes[hi:clamp(hi+radius, n)]),
	}

	pStart, pEnd := 0, n
	for _, b := range breaks {
		if b < lo {
			pStart = b + 1
			continue
		}
		pEnd = b
		break
	}
	ex.Paragraph = strings.TrimSpace(string(runes[pStart:pEnd]))
	return ex
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
