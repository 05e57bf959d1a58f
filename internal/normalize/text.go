package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/clinical-rosetta/internal/debug"
)

// Text is lab test text in comparison form. The zero value is the empty sentinel
// that short-circuits resolution with a "no input" outcome.
type Text string

// IsEmpty reports whether the text is the empty sentinel
func (t Text) IsEmpty() bool {
	return t == ""
}

func (t Text) String() string {
	return string(t)
}

// Tokens splits the text on whitespace
func (t Text) Tokens() []string {
	return strings.Fields(string(t))
}

// A transform.Chain keeps internal buffers, so each caller takes its own
var foldAccents = sync.Pool{
	New: func() interface{} {
		return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

func foldString(s string) (string, error) {
	t := foldAccents.Get().(transform.Transformer)
	defer foldAccents.Put(t)
	out, _, err := transform.String(t, s)
	return out, err
}

// Normalize canonicalizes raw test shorthand for comparison
func Normalize(raw string) Text {
	return NormalizeDebug(false, raw)
}

// NormalizeDebug normalizes with optional debug output.
// Casing and accents are folded, punctuation becomes whitespace except hyphens
// between alphanumerics ("1558-6", "c-reactive") and decimal points between digits,
// and whitespace is collapsed and trimmed.
func NormalizeDebug(localDebug bool, raw string) Text {
	if strings.TrimSpace(raw) == "" {
		debug.DebugOutput(localDebug, "Empty input")
		return ""
	}

	s := strings.ToLower(norm.NFKC.String(raw))
	if folded, err := foldString(s); err == nil {
		s = folded
	}
	debug.DebugOutput(localDebug, "Folded: %q", s)

	rs := []rune(s)
	b := strings.Builder{}
	b.Grow(len(s))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case keepSeparator(rs, i):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	out := Text(strings.Join(strings.Fields(b.String()), " "))
	debug.DebugOutput(localDebug, "Normalized: %q -> %q", raw, out)
	return out
}

// keepSeparator reports whether the punctuation rune at i is clinically meaningful
func keepSeparator(rs []rune, i int) bool {
	if i == 0 || i == len(rs)-1 {
		return false
	}
	prev, next := rs[i-1], rs[i+1]
	switch rs[i] {
	case '-':
		return isAlnum(prev) && isAlnum(next)
	case '.':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
