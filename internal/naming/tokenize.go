package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unsafeChars are never valid inside a destination name (path separators and
// characters FAT filesystems reject). They delimit tokens unless configured
// as fill punctuation.
const unsafeChars = "/\\:*?\"<>|"

// runeSet is a set of punctuation characters.
type runeSet map[rune]struct{}

func newRuneSet(chars string) runeSet {
	s := make(runeSet, len(chars))
	for _, r := range chars {
		s[r] = struct{}{}
	}
	return s
}

func (s runeSet) has(r rune) bool {
	_, ok := s[r]
	return ok
}

// stripAccents builds a fresh decompose/remove-marks/recompose chain.
// transform.Transformer values carry state, so one is built per call.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// foldASCII strips accents ("Café" -> "Cafe") and drops whatever is still
// outside ASCII afterwards.
func foldASCII(s string) string {
	folded, _, err := transform.String(stripAccents(), s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)
}

// Tokenize splits a raw segment into its ordered word tokens. Fill
// characters are deleted, split characters (and whitespace) delimit tokens,
// and empty tokens are dropped. Case is preserved. Results are memoized.
func (n *Normalizer) Tokenize(raw string) []string {
	if cached, ok := n.cache.Get(raw); ok {
		return append([]string(nil), cached...)
	}
	tokens := n.tokenize(raw)
	n.cache.Add(raw, tokens)
	return append([]string(nil), tokens...)
}

func (n *Normalizer) tokenize(raw string) []string {
	s := norm.NFC.String(raw)
	if n.opts.ASCIIOnly {
		s = foldASCII(s)
	}

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case n.fill.has(r):
			// deleted outright
		case n.split.has(r), unicode.IsSpace(r), unicode.IsControl(r), strings.ContainsRune(unsafeChars, r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
