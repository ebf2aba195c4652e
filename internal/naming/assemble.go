package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// scope records the words already used within one destination path. A word
// also reserves its plural-flipped form, so "kick" removes a later "kicks"
// and vice versa.
type scope map[string]struct{}

func (s scope) add(word string) {
	lower := strings.ToLower(word)
	s[lower] = struct{}{}
	if flipped := flipPlural(lower); flipped != "" {
		s[flipped] = struct{}{}
	}
}

func (s scope) has(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

func flipPlural(word string) string {
	if strings.HasSuffix(word, "s") {
		return strings.TrimSuffix(word, "s")
	}
	return word + "s"
}

// dedupe drops tokens already present in seen and records the survivors.
// It is a no-op when path deduplication is disabled.
func (n *Normalizer) dedupe(tokens []Token, seen scope) []Token {
	if !n.opts.DedupePath {
		return tokens
	}
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if seen.has(t.Text) {
			continue
		}
		seen.add(t.Text)
		out = append(out, t)
	}
	return out
}

// dedupeLocal deduplicates a segment against itself only.
func (n *Normalizer) dedupeLocal(tokens []Token) []Token {
	return n.dedupe(tokens, scope{})
}

// formatAll applies the configured word case to every token.
func (n *Normalizer) formatAll(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if w := n.format(t.Text); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func (n *Normalizer) format(word string) string {
	switch n.opts.WordFormat {
	case FormatLower:
		return strings.ToLower(word)
	case FormatUpper:
		return strings.ToUpper(word)
	case FormatTitle:
		return cases.Title(language.Und).String(word)
	default:
		return word
	}
}

// assemble joins formatted words and bounds the result to limit runes,
// falling back to the placeholder when nothing is left.
func (n *Normalizer) assemble(words []string, limit int) string {
	out, _ := n.fit(words, limit)
	if out == "" {
		out = n.truncate(n.format(n.opts.Placeholder), limit)
	}
	return out
}

// fit joins words with the join separator. When the result exceeds limit it
// keeps the longest prefix of whole words that fits; if even the first word
// is too long it is hard-truncated. kept is the number of words that survive
// intact (zero after a hard truncation).
func (n *Normalizer) fit(words []string, limit int) (out string, kept int) {
	if len(words) == 0 || limit <= 0 {
		return "", 0
	}
	sep := n.opts.JoinSep
	sepLen := runeLen(sep)

	total := 0
	for i, w := range words {
		add := runeLen(w)
		if i > 0 {
			add += sepLen
		}
		if total+add > limit {
			break
		}
		total += add
		kept++
	}
	if kept == 0 {
		return n.truncate(words[0], limit), 0
	}
	return strings.Join(words[:kept], sep), kept
}

// truncate cuts s to at most limit runes following the truncation policy.
func (n *Normalizer) truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	if n.opts.Truncate == TruncateMiddle && limit > 1 {
		head := (limit + 1) / 2
		tail := limit - head
		return string(r[:head]) + string(r[len(r)-tail:])
	}
	return string(r[:limit])
}
